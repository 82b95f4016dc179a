package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts the OpenAI chat API to the Client contract. It also
// serves OpenAI-compatible endpoints (llama.cpp, vLLM, Ollama) via a custom
// base URL.
type OpenAIClient struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIClient creates an adapter against the OpenAI API.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
		name:   "openai",
	}
}

// NewLlamaClient creates an adapter for an OpenAI-compatible local endpoint.
func NewLlamaClient(baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig("")
	if baseURL == "" {
		baseURL = "http://localhost:8000/v1"
	}
	cfg.BaseURL = baseURL
	if model == "" {
		model = "llama-3.1-8b-instruct"
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   "llama",
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return c.name }

// Complete sends one chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Result, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.ResponseFormat == FormatJSONObject {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if req.Tool != nil {
		chatReq.Tools = []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        req.Tool.Name,
				Description: req.Tool.Description,
				Parameters:  req.Tool.Parameters,
			},
		}}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		log.Warn().Err(err).Str("provider", c.name).Msg("LLM completion failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no completion returned", ErrUnavailable)
	}

	choice := resp.Choices[0].Message
	if len(choice.ToolCalls) > 0 {
		tc := choice.ToolCalls[0]
		return &Result{FunctionCall: &FunctionCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}}, nil
	}
	return &Result{Content: choice.Content}, nil
}
