package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/session"
)

// CredentialResolver yields usable credentials for an extension user.
type CredentialResolver interface {
	EnsureValid(ctx context.Context, extensionUserID string) (*domain.Credentials, error)
}

// Service coordinates chat turns across sessions.
type Service struct {
	registry   *session.Registry
	creds      CredentialResolver
	loadBundle session.BundleLoader
	pipeline   *Pipeline
	log        ConversationLogger
}

// NewService creates a Service. log may be nil.
func NewService(registry *session.Registry, creds CredentialResolver, loadBundle session.BundleLoader, pipeline *Pipeline, log ConversationLogger) *Service {
	if log == nil {
		log = noopConversationLogger{}
	}
	return &Service{
		registry:   registry,
		creds:      creds,
		loadBundle: loadBundle,
		pipeline:   pipeline,
		log:        log,
	}
}

// Chat runs one turn. A missing, expired or foreign session id starts a new
// conversation; the id actually used is returned.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, domain.Validationf("message is required")
	}
	if req.ExtensionUserID == "" {
		return nil, domain.Validationf("extension user id is required")
	}

	sess, err := s.resolveSession(req.SessionID, req.ExtensionUserID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()

	s.logEvent(req.ExtensionUserID, sess.ID(), "outbound", "chat_user_message", req.Message, nil)

	start := time.Now()
	if err := sess.EnsureInitialized(ctx, req.ExtensionUserID, s.loadBundle, s.creds.EnsureValid); err != nil {
		s.logEvent(req.ExtensionUserID, sess.ID(), "inbound", "chat_error", err.Error(), nil)
		return nil, err
	}

	reply, err := s.pipeline.Run(ctx, sess, req.Message)
	if err != nil {
		slog.Warn("Chat turn failed",
			"session_id", sess.ID(),
			"extension_user_id", req.ExtensionUserID,
			"error", err,
		)
		s.logEvent(req.ExtensionUserID, sess.ID(), "inbound", "chat_error", err.Error(), nil)
		return nil, err
	}

	s.logEvent(req.ExtensionUserID, sess.ID(), "inbound", "chat_assistant_message", reply, map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return &ChatResponse{SessionID: sess.ID(), Response: reply}, nil
}

func (s *Service) resolveSession(id, extensionUserID string) (*session.Session, error) {
	if sess, ok := s.registry.Get(id); ok {
		if owner := sess.Owner(); owner == "" || owner == extensionUserID {
			return sess, nil
		}
		slog.Warn("Session id presented by another user, starting a new session",
			"session_id", id, "extension_user_id", extensionUserID)
	}

	newID := s.registry.Create()
	sess, ok := s.registry.Get(newID)
	if !ok {
		return nil, fmt.Errorf("session %s expired on creation", newID)
	}
	return sess, nil
}

// ClearSession drops a conversation. Unknown ids are ignored.
func (s *Service) ClearSession(id string) {
	s.registry.Destroy(id)
}

func (s *Service) logEvent(extensionUserID, sessionID, direction, eventType, content string, meta map[string]any) {
	s.log.Log(ConversationLogEvent{
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
		ExtensionUserID: extensionUserID,
		SessionID:       sessionID,
		Channel:         "chat_http",
		Direction:       direction,
		EventType:       eventType,
		ContentRaw:      content,
		Meta:            meta,
	})
}
