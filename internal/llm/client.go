package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"legal-assistant/internal/contextutil"
)

// Client is a client for an OpenAI-compatible chat completions API.
type Client struct {
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	client      *openai.Client
}

// NewClient creates a new LLM client. baseURL includes the API version path,
// e.g. https://api.openai.com/v1.
func NewClient(baseURL, apiKey, model string, temperature float32, maxTokens int) *Client {
	return &Client{
		BaseURL:     baseURL,
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		client:      newOpenAIClient(baseURL, apiKey),
	}
}

func newOpenAIClient(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// ChatWithMessages sends a chat completion request with the given messages and returns
// the first choice together with its finish reason.
func (c *Client) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (Completion, error) {
	if len(messages) == 0 {
		return Completion{}, fmt.Errorf("no messages to send")
	}

	model := params.Model
	if model == "" {
		model = c.Model
	}
	temperature := params.Temperature
	if temperature == 0 {
		temperature = c.Temperature
	}
	maxTokens := params.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.MaxTokens
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	logger := contextutil.LoggerFromContext(ctx)
	logger.Debug("sending chat completion", "model", model, "messages", len(messages))

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Completion{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	out := Completion{
		Text:             choice.Message.Content,
		FinishReason:     string(choice.FinishReason),
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	logger.Debug("chat completion received",
		"finish_reason", out.FinishReason,
		"prompt_tokens", out.PromptTokens,
		"completion_tokens", out.CompletionTokens,
	)
	return out, nil
}
