package llm

import (
	openai "github.com/sashabaranov/go-openai"
)

// GroqBaseURL is Groq's OpenAI-compatible completions endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// NewGroqClient builds a chat-completions client pointed at Groq.
func NewGroqClient(apiKey string) *openai.Client {
	return NewGroqClientWithBaseURL(apiKey, GroqBaseURL)
}

// NewGroqClientWithBaseURL exists so tests can point the client at a fake
// server.
func NewGroqClientWithBaseURL(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return openai.NewClientWithConfig(cfg)
}
