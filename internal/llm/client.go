package llm

import "context"

// Client is the interface chat-completion providers implement.
type Client interface {
	// Chat sends messages plus optional tool schemas and returns either text or tool calls.
	Chat(ctx context.Context, messages []Message, tools []map[string]any) (*ChatResponse, error)
}
