package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	CostPer1K       float64
	CostPer1KOutput float64
}

// OpenAIClient implements Client on the go-openai SDK.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client. A BaseURL points it at any
// OpenAI-compatible endpoint.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		oc.BaseURL = base
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &OpenAIClient{cfg: cfg, client: openai.NewClientWithConfig(oc)}
}

// Complete sends the conversation and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (Completion, error) {
	if c.cfg.APIKey == "" {
		return Completion{}, fmt.Errorf("llm api key not configured")
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: float32(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("no response from model %s", c.cfg.Model)
	}
	usage := Usage{
		PromptTokens:     int64(resp.Usage.PromptTokens),
		CompletionTokens: int64(resp.Usage.CompletionTokens),
	}
	return Completion{
		Content: resp.Choices[0].Message.Content,
		Usage:   usage,
		Cost:    CalculateCost(usage, c.cfg.CostPer1K, c.cfg.CostPer1KOutput),
	}, nil
}
