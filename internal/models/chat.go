package models

type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatDialog is an ordered list of messages, built once and consumed once by
// the chat model.
type ChatDialog struct {
	Messages []ChatMessage `json:"messages"`
}

// SamplingParams tune chat generation; nil fields keep model defaults.
type SamplingParams struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MaxTokens   *int32   `json:"max_tokens,omitempty"`
}
