package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/secure"
	"github.com/Fib3301/HeadHunterAssistant/internal/store"
)

// errUndecryptable marks a stored record whose ciphertext cannot be opened.
var errUndecryptable = errors.New("stored credentials cannot be decrypted")

// CredentialStore persists credentials, encrypting tokens on the way in and
// decrypting them on the way out.
type CredentialStore struct {
	repo   store.Repository
	cipher *secure.TokenCipher
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(repo store.Repository, cipher *secure.TokenCipher) *CredentialStore {
	return &CredentialStore{repo: repo, cipher: cipher}
}

// Load returns the decrypted credentials for an extension user, or nil when none are stored.
func (s *CredentialStore) Load(ctx context.Context, extensionUserID string) (*domain.Credentials, error) {
	rec, err := s.repo.GetCredential(ctx, extensionUserID)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	access, err := s.cipher.Decrypt(rec.EncryptedAccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUndecryptable, err)
	}
	refresh, err := s.cipher.Decrypt(rec.EncryptedRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUndecryptable, err)
	}

	creds := &domain.Credentials{
		ExtensionUserID: rec.ExtensionUserID,
		HHUserID:        rec.HHUserID,
		AccessToken:     access,
		RefreshToken:    refresh,
	}

	employer, err := s.repo.GetEmployer(ctx, extensionUserID)
	if err != nil {
		return nil, fmt.Errorf("load employer: %w", err)
	}
	if employer != nil {
		creds.EmployerID = employer.EmployerID
		creds.ManagerID = employer.ManagerID
		creds.ManagerEmail = employer.ManagerEmail
	}

	return creds, nil
}

// Save encrypts and upserts the token pair for creds.ExtensionUserID.
func (s *CredentialStore) Save(ctx context.Context, creds domain.Credentials) error {
	access, err := s.cipher.Encrypt(creds.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := s.cipher.Encrypt(creds.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	return s.repo.UpsertCredential(ctx, &domain.CredentialRecord{
		ExtensionUserID:       creds.ExtensionUserID,
		HHUserID:              creds.HHUserID,
		EncryptedAccessToken:  access,
		EncryptedRefreshToken: refresh,
	})
}

// Delete removes the stored credentials and employer metadata for an
// extension user.
func (s *CredentialStore) Delete(ctx context.Context, extensionUserID string) error {
	return s.repo.DeleteCredential(ctx, extensionUserID)
}

// ClearEmployer drops employer metadata, for accounts without an employer.
func (s *CredentialStore) ClearEmployer(ctx context.Context, extensionUserID string) error {
	return s.repo.DeleteEmployer(ctx, extensionUserID)
}

// SaveEmployer upserts employer metadata.
func (s *CredentialStore) SaveEmployer(ctx context.Context, info *domain.EmployerInfo) error {
	return s.repo.UpsertEmployer(ctx, info)
}
