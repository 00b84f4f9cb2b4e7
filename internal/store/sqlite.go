package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	writeRetries   = 3
	writeBaseDelay = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writes to keep SQLITE_BUSY rare
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS credentials (
		extension_user_id TEXT PRIMARY KEY,
		hh_user_id TEXT NOT NULL,
		encrypted_access_token TEXT NOT NULL,
		encrypted_refresh_token TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employers (
		extension_user_id TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		employer_name TEXT NOT NULL,
		manager_id TEXT NOT NULL,
		manager_email TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_snapshots (
		id TEXT PRIMARY KEY,
		extension_user_id TEXT NOT NULL,
		capability TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_snapshots_created ON audit_snapshots(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetCredential retrieves the credential record for an extension user.
func (s *SQLiteStore) GetCredential(ctx context.Context, extensionUserID string) (*domain.CredentialRecord, error) {
	query := `
		SELECT extension_user_id, hh_user_id, encrypted_access_token,
		       encrypted_refresh_token, created_at, updated_at
		FROM credentials WHERE extension_user_id = ?`

	var rec domain.CredentialRecord
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, extensionUserID).Scan(
		&rec.ExtensionUserID, &rec.HHUserID, &rec.EncryptedAccessToken,
		&rec.EncryptedRefreshToken, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan credential row: %w", err)
	}

	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

// UpsertCredential creates or replaces the credential record for an extension user.
func (s *SQLiteStore) UpsertCredential(ctx context.Context, record *domain.CredentialRecord) error {
	query := `
	INSERT INTO credentials (extension_user_id, hh_user_id, encrypted_access_token,
	                         encrypted_refresh_token, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(extension_user_id) DO UPDATE SET
		hh_user_id = excluded.hh_user_id,
		encrypted_access_token = excluded.encrypted_access_token,
		encrypted_refresh_token = excluded.encrypted_refresh_token,
		updated_at = excluded.updated_at`

	now := time.Now()
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	return s.write(ctx, "upsert credential", func() error {
		_, err := s.db.ExecContext(ctx, query,
			record.ExtensionUserID, record.HHUserID,
			record.EncryptedAccessToken, record.EncryptedRefreshToken,
			createdAt.Unix(), now.Unix(),
		)
		return err
	})
}

// DeleteCredential removes the credential record and its employer metadata
// in one transaction.
func (s *SQLiteStore) DeleteCredential(ctx context.Context, extensionUserID string) error {
	return s.write(ctx, "delete credential", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE extension_user_id = ?`, extensionUserID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM employers WHERE extension_user_id = ?`, extensionUserID); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// DeleteEmployer removes employer metadata.
func (s *SQLiteStore) DeleteEmployer(ctx context.Context, extensionUserID string) error {
	return s.write(ctx, "delete employer", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM employers WHERE extension_user_id = ?`, extensionUserID)
		return err
	})
}

// GetEmployer retrieves employer metadata for an extension user.
func (s *SQLiteStore) GetEmployer(ctx context.Context, extensionUserID string) (*domain.EmployerInfo, error) {
	query := `
		SELECT extension_user_id, employer_id, employer_name, manager_id,
		       manager_email, created_at, updated_at
		FROM employers WHERE extension_user_id = ?`

	var info domain.EmployerInfo
	var email sql.NullString
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, extensionUserID).Scan(
		&info.ExtensionUserID, &info.EmployerID, &info.EmployerName, &info.ManagerID,
		&email, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan employer row: %w", err)
	}

	info.ManagerEmail = email.String
	info.CreatedAt = time.Unix(createdAt, 0)
	info.UpdatedAt = time.Unix(updatedAt, 0)
	return &info, nil
}

// UpsertEmployer creates or replaces employer metadata for an extension user.
func (s *SQLiteStore) UpsertEmployer(ctx context.Context, info *domain.EmployerInfo) error {
	query := `
	INSERT INTO employers (extension_user_id, employer_id, employer_name, manager_id,
	                       manager_email, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(extension_user_id) DO UPDATE SET
		employer_id = excluded.employer_id,
		employer_name = excluded.employer_name,
		manager_id = excluded.manager_id,
		manager_email = excluded.manager_email,
		updated_at = excluded.updated_at`

	var email interface{}
	if info.ManagerEmail != "" {
		email = info.ManagerEmail
	}

	now := time.Now()
	createdAt := info.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	return s.write(ctx, "upsert employer", func() error {
		_, err := s.db.ExecContext(ctx, query,
			info.ExtensionUserID, info.EmployerID, info.EmployerName, info.ManagerID,
			email, createdAt.Unix(), now.Unix(),
		)
		return err
	})
}

// SaveAuditSnapshot stores a raw remote result.
func (s *SQLiteStore) SaveAuditSnapshot(ctx context.Context, snapshot *domain.AuditSnapshot) error {
	query := `
	INSERT INTO audit_snapshots (id, extension_user_id, capability, payload_json, created_at)
	VALUES (?, ?, ?, ?, ?)`

	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return s.write(ctx, "save audit snapshot", func() error {
		_, err := s.db.ExecContext(ctx, query,
			snapshot.ID, snapshot.ExtensionUserID, snapshot.Capability,
			snapshot.PayloadJSON, createdAt.Unix(),
		)
		return err
	})
}

// CleanupAuditSnapshots removes snapshots older than retention.
func (s *SQLiteStore) CleanupAuditSnapshots(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).Unix()

	var deleted int64
	err := s.write(ctx, "cleanup audit snapshots", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM audit_snapshots WHERE created_at < ?`, threshold)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// CountAuditSnapshots returns the number of stored snapshots for a capability.
func (s *SQLiteStore) CountAuditSnapshots(ctx context.Context, capability string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_snapshots WHERE capability = ?`, capability).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit snapshots: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) write(ctx context.Context, op string, fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := shared.RetryOnConflict(ctx, op, writeRetries, writeBaseDelay, fn); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
