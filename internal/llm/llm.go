package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports the tokens billed for one completion.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// Completion is the model answer together with its cost.
type Completion struct {
	Content string
	Usage   Usage
	Cost    float64
}

// Client produces chat completions.
type Client interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
}

// System and User build messages with the corresponding role.
func System(content string) Message {
	return Message{Role: openai.ChatMessageRoleSystem, Content: content}
}

func User(content string) Message { return Message{Role: openai.ChatMessageRoleUser, Content: content} }

// CalculateCost prices token usage using per-1K token rates.
func CalculateCost(u Usage, costPer1KInput, costPer1KOutput float64) float64 {
	return float64(u.PromptTokens)/1000*costPer1KInput + float64(u.CompletionTokens)/1000*costPer1KOutput
}
