package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/hh"
)

// IdentityFetcher fetches the identity behind an access token.
type IdentityFetcher interface {
	Identity(ctx context.Context, token string) (*hh.Identity, error)
}

// TokenExchanger performs OAuth grants.
type TokenExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// validationTimeout bounds one shared token validation, including a refresh.
const validationTimeout = 30 * time.Second

// Manager owns the credential lifecycle: validation, refresh, revocation and
// the authorization callback.
type Manager struct {
	store    *CredentialStore
	oauth    TokenExchanger
	identity IdentityFetcher

	// validations are collapsed per extension user so concurrent turns never
	// spend the same refresh token twice.
	validations singleflight.Group
}

// NewManager creates a Manager.
func NewManager(store *CredentialStore, oauth TokenExchanger, identity IdentityFetcher) *Manager {
	return &Manager{store: store, oauth: oauth, identity: identity}
}

// LoginURL returns the authorization URL for an extension user.
func (m *Manager) LoginURL(extensionUserID string) (string, error) {
	if extensionUserID == "" {
		return "", domain.Validationf("extension user id is required")
	}
	state, err := NewState(extensionUserID)
	if err != nil {
		return "", err
	}
	return m.oauth.AuthCodeURL(state), nil
}

// EnsureValid returns usable credentials for an extension user. A rejected
// access token is refreshed once; any other failure revokes the stored record
// and yields ErrNotAuthenticated.
//
// The shared validation runs detached from any one caller's context, bounded
// by validationTimeout; each caller stops waiting when its own ctx is done.
func (m *Manager) EnsureValid(ctx context.Context, extensionUserID string) (*domain.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := m.validations.DoChan(extensionUserID, func() (any, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), validationTimeout)
		defer cancel()
		return m.ensureValid(workCtx, extensionUserID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		creds := res.Val.(domain.Credentials)
		return &creds, nil
	}
}

func (m *Manager) ensureValid(ctx context.Context, extensionUserID string) (domain.Credentials, error) {
	creds, err := m.store.Load(ctx, extensionUserID)
	if errors.Is(err, errUndecryptable) {
		slog.Warn("Stored credentials unreadable, revoking", "extension_user_id", extensionUserID, "error", err)
		return domain.Credentials{}, m.revoke(ctx, extensionUserID)
	}
	if err != nil {
		return domain.Credentials{}, err
	}
	if creds == nil {
		return domain.Credentials{}, domain.ErrNotAuthenticated
	}

	_, err = m.identity.Identity(ctx, creds.AccessToken)
	if err == nil {
		return *creds, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.Credentials{}, ctxErr
	}
	if isContextErr(err) {
		return domain.Credentials{}, err
	}

	if !domain.IsAuthRejection(err) {
		slog.Warn("Token probe failed, revoking credentials", "extension_user_id", extensionUserID, "error", err)
		return domain.Credentials{}, m.revoke(ctx, extensionUserID)
	}

	slog.Info("Access token rejected, refreshing", "extension_user_id", extensionUserID)
	tok, err := m.oauth.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Credentials{}, ctxErr
		}
		slog.Warn("Token refresh failed, revoking credentials", "extension_user_id", extensionUserID, "error", err)
		return domain.Credentials{}, m.revoke(ctx, extensionUserID)
	}

	refreshed := creds.WithTokens(tok.AccessToken, tok.RefreshToken)
	if err := m.store.Save(ctx, refreshed); err != nil {
		return domain.Credentials{}, fmt.Errorf("persist refreshed tokens: %w", err)
	}

	slog.Info("Tokens refreshed", "extension_user_id", extensionUserID)
	return refreshed, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) revoke(ctx context.Context, extensionUserID string) error {
	if err := m.store.Delete(ctx, extensionUserID); err != nil {
		return fmt.Errorf("revoke credentials: %w", err)
	}
	return domain.ErrNotAuthenticated
}

// IsAuthenticated reports whether the extension user holds usable credentials.
func (m *Manager) IsAuthenticated(ctx context.Context, extensionUserID string) bool {
	_, err := m.EnsureValid(ctx, extensionUserID)
	if err != nil && !errors.Is(err, domain.ErrNotAuthenticated) {
		slog.Error("Auth check failed", "extension_user_id", extensionUserID, "error", err)
	}
	return err == nil
}

// CompleteAuthorization handles the OAuth callback: it exchanges code, fetches
// the identity and upserts credentials and employer metadata for the extension
// user named in state.
func (m *Manager) CompleteAuthorization(ctx context.Context, code, state string) (string, error) {
	extensionUserID, err := ParseState(state)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", domain.Validationf("authorization code is required")
	}

	tok, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	ident, err := m.identity.Identity(ctx, tok.AccessToken)
	if err != nil {
		return "", fmt.Errorf("fetch identity: %w", err)
	}

	creds := domain.Credentials{
		ExtensionUserID: extensionUserID,
		HHUserID:        string(ident.ID),
		AccessToken:     tok.AccessToken,
		RefreshToken:    tok.RefreshToken,
	}
	if err := m.store.Save(ctx, creds); err != nil {
		return "", fmt.Errorf("save credentials: %w", err)
	}

	if ident.Employer != nil && ident.Manager != nil {
		info := &domain.EmployerInfo{
			ExtensionUserID: extensionUserID,
			EmployerID:      string(ident.Employer.ID),
			EmployerName:    ident.Employer.Name,
			ManagerID:       string(ident.Manager.ID),
			ManagerEmail:    ident.Email,
		}
		if err := m.store.SaveEmployer(ctx, info); err != nil {
			return "", fmt.Errorf("save employer: %w", err)
		}
	} else if err := m.store.ClearEmployer(ctx, extensionUserID); err != nil {
		return "", fmt.Errorf("clear employer: %w", err)
	}

	slog.Info("Authorization completed", "extension_user_id", extensionUserID, "hh_user_id", creds.HHUserID)
	return extensionUserID, nil
}
