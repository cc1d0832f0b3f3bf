package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/huzaifa321s/proposal-maker/logger"
	"github.com/huzaifa321s/proposal-maker/progress"
)

// maxInputChars caps the transcript handed to the model, roughly 3000 tokens.
const maxInputChars = 12000

// PolishResult is the polish stage's only output shape. UsedFallback means
// the provider was unreachable or errored and Text is the original transcript
// verbatim.
type PolishResult struct {
	Text         string `json:"text"`
	UsedFallback bool   `json:"usedFallback"`
}

// Polisher translates and cleans up a raw transcript. A broken polish
// provider degrades quality, never availability: every failure path returns
// the input text unchanged.
type Polisher struct {
	apiKey string
	model  string
	client *openai.Client
	log    *logger.Logger
}

func NewPolisher(apiKey, model string) *Polisher {
	p := &Polisher{
		apiKey: apiKey,
		model:  model,
		log:    logger.New(),
	}
	if apiKey != "" {
		p.client = NewGroqClient(apiKey)
	}
	return p
}

// NewPolisherWithClient lets tests inject a client bound to a fake server.
func NewPolisherWithClient(client *openai.Client, model string) *Polisher {
	return &Polisher{
		apiKey: "test",
		model:  model,
		client: client,
		log:    logger.New(),
	}
}

// Polish sends the raw transcript through the model and returns the cleaned
// English version. Never returns an error: any failure falls back to the
// original text.
func (p *Polisher) Polish(ctx context.Context, raw string, emit progress.Func) PolishResult {
	emit("llm_status", map[string]any{"step": "Starting Urdu to English translation with Groq..."})

	if p.apiKey == "" || p.client == nil {
		p.log.Warn("GROQ_API_KEY missing, skipping polish")
		emit("llm_status", map[string]any{"step": "LLM polish skipped"})
		return PolishResult{Text: raw, UsedFallback: true}
	}

	shortTranscript := raw
	if len(raw) > maxInputChars {
		shortTranscript = raw[:maxInputChars] + "... [truncated]"
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPolishPrompt(shortTranscript)},
		},
		MaxTokens:   2048,
		Temperature: 0.3,
	})
	if err != nil {
		p.log.WithError(err).Error("polish request failed")
		emit("llm_status", map[string]any{"step": "LLM polish failed"})
		return PolishResult{Text: raw, UsedFallback: true}
	}
	if len(resp.Choices) == 0 {
		p.log.Error("polish response had no choices")
		emit("llm_status", map[string]any{"step": "LLM polish failed"})
		return PolishResult{Text: raw, UsedFallback: true}
	}

	polished := strings.TrimSpace(resp.Choices[0].Message.Content)
	if polished == "" {
		emit("llm_status", map[string]any{"step": "LLM polish failed"})
		return PolishResult{Text: raw, UsedFallback: true}
	}

	emit("llm_status", map[string]any{"step": "Translation & polish complete"})
	return PolishResult{Text: polished}
}

func buildPolishPrompt(transcript string) string {
	return fmt.Sprintf(`You are a professional translator, editor, and linguistic expert with strong knowledge of Roman Urdu and English.

Task:
1. Convert the Roman Urdu transcript to natural, fluent, professional English.
2. Keep speaker labels exactly as: Speaker 0, Speaker 1, etc.
3. Fix grammar, punctuation, sentence structure, and flow.
4. Correct misspelled or phonetically written words by replacing them with the most likely correct English word based on:
   - Sound similarity (e.g., "baje" -> "o'clock", "kaha" -> "said")
   - Context (e.g., "trafik" -> "traffic", "meating" -> "meeting")
   - Common Roman Urdu patterns (e.g., "hn" -> "yes", "nhn" -> "no")
5. Do not add, remove, or change the original meaning.
6. Output only the corrected English transcript with speaker labels.

Transcript:
%s
Output only the cleaned English transcript with speaker labels.
Return only the final English version. No explanations.
`, transcript)
}
