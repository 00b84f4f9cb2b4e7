// Package domain contains core domain types for the assistant.
package domain

import (
	"time"
)

// CredentialRecord is the persisted form of a user's OAuth credentials.
// Token fields hold ciphertext only.
type CredentialRecord struct {
	ExtensionUserID       string
	HHUserID              string
	EncryptedAccessToken  string
	EncryptedRefreshToken string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// EmployerInfo is employer metadata captured from the identity payload.
type EmployerInfo struct {
	ExtensionUserID string    `json:"extension_user_id"`
	EmployerID      string    `json:"employer_id"`
	EmployerName    string    `json:"employer_name"`
	ManagerID       string    `json:"manager_id"`
	ManagerEmail    string    `json:"manager_email,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Credentials are decrypted credentials held in memory for one request or session.
type Credentials struct {
	ExtensionUserID string
	HHUserID        string
	AccessToken     string
	RefreshToken    string
	EmployerID      string
	ManagerID       string
	ManagerEmail    string
}

// WithTokens returns a copy of c carrying a new token pair.
func (c Credentials) WithTokens(access, refresh string) Credentials {
	c.AccessToken = access
	c.RefreshToken = refresh
	return c
}

// HasEmployer reports whether employer metadata was resolved.
func (c Credentials) HasEmployer() bool {
	return c.EmployerID != ""
}
