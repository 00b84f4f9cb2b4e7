package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/Fib3301/HeadHunterAssistant/internal/capability"
	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/llm"
)

// Humanizer renders structured results as prose. It never fails: any problem
// yields the configured fallback text.
type Humanizer struct {
	model    llm.Client
	fallback string
}

// NewHumanizer creates a Humanizer.
func NewHumanizer(model llm.Client, fallback string) *Humanizer {
	return &Humanizer{model: model, fallback: fallback}
}

// Humanize answers query using result.
func (h *Humanizer) Humanize(ctx context.Context, result capability.Result, query string) string {
	raw, err := json.Marshal(result)
	if err != nil {
		slog.Error("Humanizer could not encode result", "error", err)
		return h.fallback
	}

	resp, err := h.model.Chat(ctx, []llm.Message{
		{Role: domain.RoleSystem, Content: humanizerInstruction},
		{Role: domain.RoleUser, Content: humanizerPrompt(query, string(raw))},
	}, nil)
	if err != nil {
		slog.Error("Humanizer call failed", "error", err)
		return h.fallback
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		slog.Error("Humanizer returned empty text", "tool_calls", len(resp.Message.ToolCalls))
		return h.fallback
	}
	return text
}
