package api

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/Fib3301/HeadHunterAssistant/internal/identity"
	"github.com/go-chi/chi/v5"
)

// Authenticator drives the OAuth flow for extension users.
type Authenticator interface {
	LoginURL(extensionUserID string) (string, error)
	IsAuthenticated(ctx context.Context, extensionUserID string) bool
	CompleteAuthorization(ctx context.Context, code, state string) (string, error)
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<p>{{.Message}}</p>
{{if .Success}}<script>
if (window.opener) {
  window.opener.postMessage('auth_success', '*');
}
window.close();
</script>{{end}}
</body>
</html>
`))

type callbackView struct {
	Title   string
	Message string
	Success bool
}

// AuthHandler serves the OAuth endpoints used by the browser extension.
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes registers the OAuth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.With(identity.Require).Get("/auth/login", h.Login)
	r.Get("/auth/callback", h.Callback)
	r.With(identity.Require).Get("/auth/check", h.Check)
}

// Login returns the authorization URL the extension should open.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	url, err := h.auth.LoginURL(identity.ExtensionUserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"auth_url": url})
}

// Check reports whether the extension user has usable credentials.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ok := h.auth.IsAuthenticated(r.Context(), identity.ExtensionUserIDFromContext(r.Context()))
	JSON(w, http.StatusOK, map[string]bool{"is_authenticated": ok})
}

// Callback completes the authorization code flow and renders a page that
// notifies the opener window.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		slog.Warn("Authorization denied", "error", e)
		renderCallback(w, http.StatusBadRequest, callbackView{
			Title:   "Authorization failed",
			Message: "Authorization was denied: " + e,
		})
		return
	}

	extensionUserID, err := h.auth.CompleteAuthorization(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		slog.Error("Authorization callback failed", "error", err)
		status := StatusFromError(err)
		msg := "Authorization failed. Please try again."
		if status == http.StatusBadRequest {
			msg = err.Error()
		}
		renderCallback(w, status, callbackView{Title: "Authorization failed", Message: msg})
		return
	}

	slog.Info("Authorization completed", "extension_user_id", extensionUserID)
	renderCallback(w, http.StatusOK, callbackView{
		Title:   "Authorization successful",
		Message: "Authorization successful. You can close this window.",
		Success: true,
	})
}

func renderCallback(w http.ResponseWriter, status int, v callbackView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := callbackPage.Execute(w, v); err != nil {
		slog.Error("Failed to render callback page", "error", err)
	}
}
