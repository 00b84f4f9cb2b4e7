package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Fib3301/HeadHunterAssistant/internal/capability"
	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/llm"
	"github.com/Fib3301/HeadHunterAssistant/internal/session"
)

// Dispatcher runs a selected capability.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any, creds domain.Credentials) (capability.Result, error)
}

// Pipeline turns one utterance into at most one remote action and a reply.
type Pipeline struct {
	model      llm.Client
	dispatcher Dispatcher
	humanizer  *Humanizer
}

// NewPipeline creates a Pipeline.
func NewPipeline(model llm.Client, dispatcher Dispatcher, humanizer *Humanizer) *Pipeline {
	return &Pipeline{model: model, dispatcher: dispatcher, humanizer: humanizer}
}

// Run executes one turn. The caller must hold the session's turn lock.
func (p *Pipeline) Run(ctx context.Context, sess *session.Session, utterance string) (string, error) {
	bundle := sess.Bundle()
	creds := sess.Credentials()
	if bundle == nil || creds == nil {
		return "", domain.ErrNotInitialized
	}

	messages := composeMessages(sess.History(), utterance)
	resp, err := p.model.Chat(ctx, messages, bundle.Tools())
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}

	var reply string
	if !resp.HasToolCall() {
		reply = resp.Message.Content
		if strings.TrimSpace(reply) == "" {
			return "", fmt.Errorf("%w: empty reply without tool selection", domain.ErrLLMUnavailable)
		}
		slog.Info("Direct answer", "session_id", sess.ID())
	} else {
		calls := resp.Message.ToolCalls
		if len(calls) > 1 {
			slog.Warn("Model selected several tools, using the first", "session_id", sess.ID(), "count", len(calls))
		}
		call := calls[0]

		slog.Info("Tool selected", "session_id", sess.ID(), "capability", call.Function.Name)
		result, err := p.dispatcher.Dispatch(ctx, call.Function.Name, call.Function.Arguments, *creds)
		if err != nil {
			if domain.IsAuthRejection(err) {
				sess.InvalidateCredentials()
			}
			return "", err
		}
		reply = p.humanizer.Humanize(ctx, result, utterance)
	}

	sess.Append(domain.RoleUser, utterance)
	sess.Append(domain.RoleAssistant, reply)
	return reply, nil
}

// composeMessages prepends the system prompt unless history already starts
// with one.
func composeMessages(history []domain.Message, utterance string) []llm.Message {
	out := make([]llm.Message, 0, len(history)+2)
	if len(history) == 0 || history[0].Role != domain.RoleSystem {
		out = append(out, llm.Message{Role: domain.RoleSystem, Content: SystemPrompt})
	}
	for _, m := range history {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(out, llm.Message{Role: domain.RoleUser, Content: utterance})
}
