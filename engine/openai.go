package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"llmbridge/bridge"
)

// OpenAICompatConfig configures an OpenAICompat engine.
type OpenAICompatConfig struct {
	// BaseURL points at an OpenAI-compatible completions endpoint, e.g.
	// a llama.cpp server at "http://127.0.0.1:8080/v1". Required.
	BaseURL string
	// APIKey is sent as the bearer token. Local servers usually ignore
	// it; "none" is a common placeholder.
	APIKey string
	// Model names the model on the remote side. Local single-model
	// servers accept any non-empty string.
	Model string
	// SystemPrompt, when set, is prepended as a system message on
	// every request.
	SystemPrompt string
}

// OpenAICompat adapts an OpenAI-compatible chat completions server to
// the bridge.Engine contract. llama.cpp's built-in server, Ollama, and
// vLLM all speak this protocol.
type OpenAICompat struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

var _ bridge.Engine = (*OpenAICompat)(nil)

// NewOpenAICompat builds an engine talking to cfg.BaseURL.
func NewOpenAICompat(cfg OpenAICompatConfig) (*OpenAICompat, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("engine: base URL is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("engine: model name is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	return &OpenAICompat{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// Generate sends a single-turn chat completion and returns the first
// choice. Sampling params map onto their protocol equivalents; knobs
// the protocol has no field for (TopK, RepeatWindow) are applied
// server-side from the server's own defaults.
func (e *OpenAICompat) Generate(ctx context.Context, prompt string, params bridge.GenerationParams) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if e.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: e.systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:            e.model,
		Messages:         messages,
		Temperature:      float32(params.Temperature),
		TopP:             float32(params.TopP),
		FrequencyPenalty: float32(params.RepeatPenalty - 1.0),
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}
	if len(params.StopSequences) > 0 {
		req.Stop = params.StopSequences
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		// Surface context errors unchanged so the bridge can
		// classify cancellations.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
