package llm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible chat-completions client.
type OpenAIConfig struct {
	BaseURL            string
	APIKey             string
	Model              string
	Temperature        float64
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// OpenAIClient talks to any /chat/completions endpoint that follows the
// OpenAI wire format.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient creates a new client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // some providers ship self-signed chains
	}

	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	openaiConfig.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: &argumentsTransport{base: transport},
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(openaiConfig),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
	}
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	wireTools, err := toOpenAITools(tools)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Tools:       wireTools,
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}

	choice := resp.Choices[0]
	out := &ChatResponse{
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Message: Message{
			Role:    choice.Message.Role,
			Content: choice.Message.Content,
		},
	}

	calls := choice.Message.ToolCalls
	if len(calls) == 0 && choice.Message.FunctionCall != nil {
		calls = []openai.ToolCall{{Type: openai.ToolTypeFunction, Function: *choice.Message.FunctionCall}}
	}
	for _, wc := range calls {
		tc, err := fromOpenAIToolCall(wc)
		if err != nil {
			return nil, err
		}
		out.Message.ToolCalls = append(out.Message.ToolCalls, tc)
	}

	slog.Debug("LLM completion",
		"model", out.Model,
		"tool_calls", len(out.Message.ToolCalls),
		"input_tokens", out.InputTokens,
		"output_tokens", out.OutputTokens,
		"duration", time.Since(start),
	)

	return out, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		wm := openai.ChatCompletionMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Function.Arguments)
			wm.ToolCalls = append(wm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: string(args),
				},
			})
		}
		out = append(out, wm)
	}
	return out
}

// toOpenAITools converts `{"type":"function","function":{...}}` schemas.
func toOpenAITools(tools []map[string]any) ([]openai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		fn, ok := t["function"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tool schema has no function block")
		}
		name, _ := fn["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("tool schema has no name")
		}
		description, _ := fn["description"].(string)
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        name,
				Description: description,
				Parameters:  fn["parameters"],
			},
		})
	}
	return out, nil
}

func fromOpenAIToolCall(wc openai.ToolCall) (ToolCall, error) {
	var tc ToolCall
	tc.ID = wc.ID
	tc.Function.Name = wc.Function.Name
	tc.Function.Arguments = map[string]any{}

	raw := strings.TrimSpace(wc.Function.Arguments)
	if raw == "" || raw == "null" {
		return tc, nil
	}
	if err := json.Unmarshal([]byte(raw), &tc.Function.Arguments); err != nil {
		return tc, fmt.Errorf("decode tool arguments for %s: %w", wc.Function.Name, err)
	}
	return tc, nil
}
