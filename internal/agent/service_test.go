package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fib3301/HeadHunterAssistant/internal/capability"
	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/llm"
)

func newTestService(model *fakeLLM, dispatcher *fakeDispatcher, resolver *fakeResolver) *Service {
	p := NewPipeline(model, dispatcher, NewHumanizer(model, fallbackText))
	return NewService(newRegistry(), resolver, capability.LoadBundle, p, nil)
}

func TestServiceChatCreatesSessionForUnknownID(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{textReply("hi")}}
	svc := newTestService(model, &fakeDispatcher{}, &fakeResolver{creds: testCreds()})

	resp, err := svc.Chat(context.Background(), ChatRequest{
		Message:         "hello",
		SessionID:       "does-not-exist",
		ExtensionUserID: "ext-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEqual(t, "does-not-exist", resp.SessionID)
	assert.Equal(t, "hi", resp.Response)
}

func TestServiceChatReusesSessionAndCredentials(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{textReply("one"), textReply("two")}}
	resolver := &fakeResolver{creds: testCreds()}
	svc := newTestService(model, &fakeDispatcher{}, resolver)
	ctx := context.Background()

	first, err := svc.Chat(ctx, ChatRequest{Message: "a", ExtensionUserID: "ext-1"})
	require.NoError(t, err)
	second, err := svc.Chat(ctx, ChatRequest{Message: "b", SessionID: first.SessionID, ExtensionUserID: "ext-1"})
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, resolver.callCount())

	// second call sees system + first turn + new utterance
	assert.Len(t, model.calls[1].Messages, 4)
}

func TestServiceChatForeignSessionStartsFresh(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{textReply("ok")}}
	svc := newTestService(model, &fakeDispatcher{}, &fakeResolver{creds: testCreds()})
	ctx := context.Background()

	mine, err := svc.Chat(ctx, ChatRequest{Message: "a", ExtensionUserID: "ext-1"})
	require.NoError(t, err)
	theirs, err := svc.Chat(ctx, ChatRequest{Message: "b", SessionID: mine.SessionID, ExtensionUserID: "ext-2"})
	require.NoError(t, err)

	assert.NotEqual(t, mine.SessionID, theirs.SessionID)
}

func TestServiceChatNotAuthenticated(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{textReply("ok")}}
	svc := newTestService(model, &fakeDispatcher{}, &fakeResolver{err: domain.ErrNotAuthenticated})

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "a", ExtensionUserID: "ext-1"})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Zero(t, model.callCount())
}

func TestServiceChatValidatesInput(t *testing.T) {
	svc := newTestService(&fakeLLM{}, &fakeDispatcher{}, &fakeResolver{creds: testCreds()})

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "  ", ExtensionUserID: "ext-1"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Chat(context.Background(), ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestServiceChatSerializesTurnsOnOneSession(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{textReply("ok")}}
	svc := newTestService(model, &fakeDispatcher{}, &fakeResolver{creds: testCreds()})
	ctx := context.Background()

	first, err := svc.Chat(ctx, ChatRequest{Message: "start", ExtensionUserID: "ext-1"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Chat(ctx, ChatRequest{Message: "turn", SessionID: first.SessionID, ExtensionUserID: "ext-1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, ok := svc.registry.Get(first.SessionID)
	require.True(t, ok)
	history := sess.History()
	require.Len(t, history, 10)
	assert.Equal(t, domain.RoleSystem, history[0].Role)
	assert.Equal(t, domain.RoleAssistant, history[len(history)-1].Role)
	for i := 1; i < len(history)-1; i++ {
		assert.NotEqual(t, history[i].Role, history[i+1].Role, "turns interleaved at %d", i)
	}
}

func TestServiceClearSession(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{textReply("ok")}}
	svc := newTestService(model, &fakeDispatcher{}, &fakeResolver{creds: testCreds()})

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "a", ExtensionUserID: "ext-1"})
	require.NoError(t, err)

	svc.ClearSession(resp.SessionID)
	svc.ClearSession(resp.SessionID)

	_, ok := svc.registry.Get(resp.SessionID)
	assert.False(t, ok)
}
