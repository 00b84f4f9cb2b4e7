// Package identity resolves the calling extension instance and conversation
// from request headers.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
)

const (
	// ExtensionUserHeader carries the browser-extension instance id.
	ExtensionUserHeader = "X-Extension-User-Id"
	// SessionHeaderName carries the conversation id.
	SessionHeaderName = "X-Session-Id"
)

type contextKey int

const (
	extensionUserIDKey contextKey = iota
	sessionIDKey
)

var (
	extensionUserIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:@-]{1,128}$`)
	sessionIDPattern       = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
)

// ExtensionUserIDFromContext extracts the extension user id from the request context.
func ExtensionUserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(extensionUserIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the conversation id from the request context.
// An empty string means the caller did not supply one.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithExtensionUserID returns ctx carrying id.
func WithExtensionUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, extensionUserIDKey, id)
}

func sanitize(id string, pattern *regexp.Regexp) string {
	id = strings.TrimSpace(id)
	if id == "" || !pattern.MatchString(id) {
		return ""
	}
	return id
}

func extensionUserIDFromRequest(r *http.Request) string {
	id := r.Header.Get(ExtensionUserHeader)
	if id == "" {
		id = r.URL.Query().Get("extension_user_id")
	}
	return sanitize(id, extensionUserIDPattern)
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitize(sid, sessionIDPattern)
}

// Middleware injects the extension user id and session id when present and well formed.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := extensionUserIDFromRequest(r); id != "" {
				ctx = WithExtensionUserID(ctx, id)
			}
			if sid := sessionIDFromRequest(r); sid != "" {
				ctx = context.WithValue(ctx, sessionIDKey, sid)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require rejects requests without an extension user id.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ExtensionUserIDFromContext(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"missing or invalid X-Extension-User-Id header"}`, http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
