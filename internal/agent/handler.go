package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Fib3301/HeadHunterAssistant/internal/api"
	"github.com/Fib3301/HeadHunterAssistant/internal/identity"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// Chatter runs chat turns and drops conversations.
type Chatter interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	ClearSession(id string)
}

// Handler serves the chat endpoints.
type Handler struct {
	agent       Chatter
	rateLimiter *RateLimiter
	maxBodySize int64
}

// NewHandler creates a Handler. A nil limiter disables throttling.
func NewHandler(agent Chatter, limiter *RateLimiter, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxRequestBodySize
	}
	return &Handler{
		agent:       agent,
		rateLimiter: limiter,
		maxBodySize: maxBodySize,
	}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(identity.Require).Post("/chat", h.HandleChat)
	r.Post("/clear_session", h.HandleClearSession)
}

// HandleChat handles POST /chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	extensionUserID := identity.ExtensionUserIDFromContext(r.Context())

	if h.rateLimiter != nil && !h.rateLimiter.Allow(extensionUserID) {
		slog.Warn("Chat rate limit exceeded",
			"extension_user_id", extensionUserID,
			"remote_ip", identity.IPFromRequest(r),
		)
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SessionID == "" {
		req.SessionID = identity.SessionIDFromContext(r.Context())
	}
	req.ExtensionUserID = extensionUserID

	resp, err := h.agent.Chat(r.Context(), req)
	if err != nil {
		slog.Warn("Chat request failed",
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"extension_user_id", extensionUserID,
			"remote_ip", identity.IPFromRequest(r),
			"error", err,
		)
		api.WriteError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, resp)
}

// HandleClearSession handles POST /clear_session. The id comes from the
// session_id query parameter, the X-Session-Id header or a JSON body.
func (h *Handler) HandleClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" && r.Body != nil {
		var req ClearSessionRequest
		body := http.MaxBytesReader(w, r.Body, h.maxBodySize)
		if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sessionID = req.SessionID
	}
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	h.agent.ClearSession(sessionID)
	api.JSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Session cleared",
	})
}
