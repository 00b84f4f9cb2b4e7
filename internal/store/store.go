// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
)

// Repository defines the persistence boundary for credentials, employer
// metadata and audit snapshots. Lookups return (nil, nil) when no row exists.
type Repository interface {
	// GetCredential retrieves the credential record for an extension user.
	GetCredential(ctx context.Context, extensionUserID string) (*domain.CredentialRecord, error)

	// UpsertCredential creates or replaces the credential record for an extension user.
	UpsertCredential(ctx context.Context, record *domain.CredentialRecord) error

	// DeleteCredential removes the credential record together with the
	// employer metadata captured for it. Missing rows are not an error.
	DeleteCredential(ctx context.Context, extensionUserID string) error

	// GetEmployer retrieves employer metadata for an extension user.
	GetEmployer(ctx context.Context, extensionUserID string) (*domain.EmployerInfo, error)

	// UpsertEmployer creates or replaces employer metadata for an extension user.
	UpsertEmployer(ctx context.Context, info *domain.EmployerInfo) error

	// DeleteEmployer removes employer metadata. Missing rows are not an error.
	DeleteEmployer(ctx context.Context, extensionUserID string) error

	// SaveAuditSnapshot stores a raw remote result.
	SaveAuditSnapshot(ctx context.Context, snapshot *domain.AuditSnapshot) error

	// CleanupAuditSnapshots removes snapshots older than retention.
	CleanupAuditSnapshots(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
