package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fib3301/HeadHunterAssistant/internal/capability"
	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/llm"
)

const fallbackText = "Не удалось преобразовать ответ в человекочитаемый формат."

func TestPipelineDirectAnswerSkipsDispatch(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{textReply("Привет! Чем помочь?")}}
	dispatcher := &fakeDispatcher{}
	p := NewPipeline(model, dispatcher, NewHumanizer(model, fallbackText))
	sess := initializedSession(t, newRegistry())

	reply, err := p.Run(context.Background(), sess, "hello")
	require.NoError(t, err)

	assert.Equal(t, "Привет! Чем помочь?", reply)
	assert.Empty(t, dispatcher.calls)
	assert.Equal(t, 1, model.callCount())

	history := sess.History()
	require.Len(t, history, 3)
	assert.Equal(t, domain.RoleSystem, history[0].Role)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "hello"}, history[1])
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: "Привет! Чем помочь?"}, history[2])
}

func TestPipelineSendsHistoryAndAllTools(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{textReply("ok")}}
	p := NewPipeline(model, &fakeDispatcher{}, NewHumanizer(model, fallbackText))
	sess := initializedSession(t, newRegistry())

	_, err := p.Run(context.Background(), sess, "hello")
	require.NoError(t, err)

	call := model.calls[0]
	require.Len(t, call.Messages, 2)
	assert.Equal(t, domain.RoleSystem, call.Messages[0].Role)
	assert.Equal(t, SystemPrompt, call.Messages[0].Content)
	assert.Equal(t, "hello", call.Messages[1].Content)

	bundle, err := capability.LoadBundle()
	require.NoError(t, err)
	assert.Len(t, call.Tools, len(bundle.Names()))
}

func TestPipelineToolSelectionDispatchesAndHumanizes(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{
		toolReply("get-active-vacancy-list"),
		textReply("У вас одна активная вакансия: Go developer."),
	}}
	dispatcher := &fakeDispatcher{result: capability.Result{
		"items": []any{map[string]any{"id": "1", "name": "Go developer"}},
	}}
	p := NewPipeline(model, dispatcher, NewHumanizer(model, fallbackText))
	sess := initializedSession(t, newRegistry())

	reply, err := p.Run(context.Background(), sess, "покажи мои активные вакансии")
	require.NoError(t, err)

	assert.Equal(t, "У вас одна активная вакансия: Go developer.", reply)
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "get-active-vacancy-list", dispatcher.calls[0].Name)
	assert.Equal(t, "emp-7", dispatcher.calls[0].Creds.EmployerID)

	require.Equal(t, 2, model.callCount())
	humanizerCall := model.calls[1]
	assert.Nil(t, humanizerCall.Tools)
	assert.Contains(t, humanizerCall.Messages[1].Content, "Go developer")
	assert.Contains(t, humanizerCall.Messages[1].Content, "покажи мои активные вакансии")

	history := sess.History()
	require.Len(t, history, 3)
	assert.Equal(t, reply, history[2].Content)
}

func TestPipelineDispatchesOnlyFirstTool(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{
		toolReply("get-vacancy", "get-negotiations-list"),
		textReply("done"),
	}}
	dispatcher := &fakeDispatcher{result: capability.Result{"id": "1"}}
	p := NewPipeline(model, dispatcher, NewHumanizer(model, fallbackText))

	_, err := p.Run(context.Background(), initializedSession(t, newRegistry()), "vacancy 1")
	require.NoError(t, err)

	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "get-vacancy", dispatcher.calls[0].Name)
}

func TestPipelineHumanizerFailureFallsBack(t *testing.T) {
	model := &fakeLLM{
		replies: []*llm.ChatResponse{toolReply("get-current-user-info")},
		errs:    []error{nil, errors.New("upstream timeout")},
	}
	dispatcher := &fakeDispatcher{result: capability.Result{"id": "42"}}
	p := NewPipeline(model, dispatcher, NewHumanizer(model, fallbackText))

	reply, err := p.Run(context.Background(), initializedSession(t, newRegistry()), "who am I")
	require.NoError(t, err)
	assert.Equal(t, fallbackText, reply)
}

func TestPipelineRequiresInitializedSession(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{textReply("ok")}}
	p := NewPipeline(model, &fakeDispatcher{}, NewHumanizer(model, fallbackText))
	reg := newRegistry()
	sess, ok := reg.Get(reg.Create())
	require.True(t, ok)

	_, err := p.Run(context.Background(), sess, "hello")
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	assert.Zero(t, model.callCount())
}

func TestPipelineModelFailureIsLLMUnavailable(t *testing.T) {
	model := &fakeLLM{errs: []error{errors.New("connection refused")}}
	p := NewPipeline(model, &fakeDispatcher{}, NewHumanizer(model, fallbackText))
	sess := initializedSession(t, newRegistry())

	_, err := p.Run(context.Background(), sess, "hello")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Len(t, sess.History(), 1, "failed turns must not be recorded")
}

func TestPipelineEmptyReplyIsLLMUnavailable(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{textReply("   ")}}
	p := NewPipeline(model, &fakeDispatcher{}, NewHumanizer(model, fallbackText))

	_, err := p.Run(context.Background(), initializedSession(t, newRegistry()), "hello")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestPipelineAuthRejectionInvalidatesCredentials(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{toolReply("get-vacancy")}}
	dispatcher := &fakeDispatcher{err: &domain.RemoteAPIError{Operation: "get-vacancy", Status: 403, Detail: "forbidden"}}
	p := NewPipeline(model, dispatcher, NewHumanizer(model, fallbackText))
	sess := initializedSession(t, newRegistry())

	_, err := p.Run(context.Background(), sess, "vacancy 1")
	var remote *domain.RemoteAPIError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 403, remote.Status)
	assert.Nil(t, sess.Credentials())
	assert.NotNil(t, sess.Bundle())
}

func TestPipelineValidationErrorKeepsCredentials(t *testing.T) {
	model := &fakeLLM{replies: []*llm.ChatResponse{toolReply("get-vacancy")}}
	dispatcher := &fakeDispatcher{err: domain.Validationf("missing required argument vacancy_id")}
	p := NewPipeline(model, dispatcher, NewHumanizer(model, fallbackText))
	sess := initializedSession(t, newRegistry())

	_, err := p.Run(context.Background(), sess, "vacancy")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NotNil(t, sess.Credentials())
}
