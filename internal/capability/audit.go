package capability

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/store"
)

// AuditSink keeps raw results for later inspection. Record must not block the
// caller.
type AuditSink interface {
	Record(extensionUserID, capability string, payload Result)
}

// StoreAuditSink writes snapshots to the repository in the background.
type StoreAuditSink struct {
	repo    store.Repository
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewStoreAuditSink creates a StoreAuditSink.
func NewStoreAuditSink(repo store.Repository, timeout time.Duration) *StoreAuditSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StoreAuditSink{repo: repo, timeout: timeout}
}

// Record implements AuditSink.
func (s *StoreAuditSink) Record(extensionUserID, capability string, payload Result) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to encode audit snapshot", "capability", capability, "error", err)
		return
	}

	snapshot := &domain.AuditSnapshot{
		ID:              uuid.NewString(),
		ExtensionUserID: extensionUserID,
		Capability:      capability,
		PayloadJSON:     string(raw),
		CreatedAt:       time.Now(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.repo.SaveAuditSnapshot(ctx, snapshot); err != nil {
			slog.Error("Failed to save audit snapshot", "capability", capability, "error", err)
			return
		}
		slog.Debug("Audit snapshot saved", "id", snapshot.ID, "capability", capability)
	}()
}

// Wait blocks until pending writes finish.
func (s *StoreAuditSink) Wait() {
	s.wg.Wait()
}
