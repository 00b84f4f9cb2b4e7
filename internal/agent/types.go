// Package agent runs chat turns: session resolution, the query pipeline and
// the HTTP surface for the browser extension.
package agent

// ChatRequest is one user turn.
type ChatRequest struct {
	Message         string `json:"message"`
	SessionID       string `json:"session_id,omitempty"`
	ExtensionUserID string `json:"-"`
}

// ChatResponse is the reply to one turn.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

// ClearSessionRequest names the conversation to drop.
type ClearSessionRequest struct {
	SessionID string `json:"session_id"`
}
