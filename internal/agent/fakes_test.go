package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fib3301/HeadHunterAssistant/internal/capability"
	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/llm"
	"github.com/Fib3301/HeadHunterAssistant/internal/session"
)

type chatCall struct {
	Messages []llm.Message
	Tools    []map[string]any
}

// fakeLLM replays scripted replies in order; once exhausted it returns the last one.
type fakeLLM struct {
	mu      sync.Mutex
	replies []*llm.ChatResponse
	errs    []error
	calls   []chatCall
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, tools []map[string]any) (*llm.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, chatCall{Messages: messages, Tools: tools})
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i], nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func textReply(text string) *llm.ChatResponse {
	return &llm.ChatResponse{Message: llm.Message{Role: domain.RoleAssistant, Content: text}}
}

func toolReply(names ...string) *llm.ChatResponse {
	resp := &llm.ChatResponse{Message: llm.Message{Role: domain.RoleAssistant}}
	for _, name := range names {
		var tc llm.ToolCall
		tc.ID = "call-" + name
		tc.Function.Name = name
		tc.Function.Arguments = map[string]any{}
		resp.Message.ToolCalls = append(resp.Message.ToolCalls, tc)
	}
	return resp
}

type dispatchCall struct {
	Name  string
	Args  map[string]any
	Creds domain.Credentials
}

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []dispatchCall
	result capability.Result
	err    error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, name string, args map[string]any, creds domain.Credentials) (capability.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{Name: name, Args: args, Creds: creds})
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeResolver struct {
	mu    sync.Mutex
	creds *domain.Credentials
	err   error
	calls int
}

func (f *fakeResolver) EnsureValid(_ context.Context, extensionUserID string) (*domain.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c := *f.creds
	c.ExtensionUserID = extensionUserID
	return &c, nil
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testCreds() *domain.Credentials {
	return &domain.Credentials{
		ExtensionUserID: "ext-1",
		AccessToken:     "access",
		RefreshToken:    "refresh",
		EmployerID:      "emp-7",
		ManagerID:       "mgr-1",
	}
}

func newRegistry() *session.Registry {
	return session.NewRegistry(session.Options{HistoryLimit: 10, SystemPrompt: SystemPrompt})
}

// initializedSession returns a live session with bundle and credentials loaded.
func initializedSession(t *testing.T, reg *session.Registry) *session.Session {
	t.Helper()
	sess, ok := reg.Get(reg.Create())
	require.True(t, ok)
	resolver := &fakeResolver{creds: testCreds()}
	require.NoError(t, sess.EnsureInitialized(context.Background(), "ext-1", capability.LoadBundle, resolver.EnsureValid))
	return sess
}
