package nlp

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/huzaifa321s/proposal-maker/llm"
	"github.com/huzaifa321s/proposal-maker/logger"
)

// BusinessExtract is the fixed schema the extraction model must fill.
// ProposedSolution is a free-text block laid out in three sections: problem
// statement, 5-point plan, platform list.
type BusinessExtract struct {
	BusinessDetails       *string  `json:"business_details"`
	BusinessType          *string  `json:"business_type"`
	Goals                 string   `json:"goals"`
	TargetAudience        string   `json:"target_audience"`
	TechnologyPreferences []string `json:"technology_preferences"`
	PainPoints            string   `json:"pain_points"`
	ProposedSolution      string   `json:"proposed_solution"`
}

// ExtractError is the degraded result when the model's output cannot be
// repaired into the schema. The raw model text is always preserved for
// diagnosis, never discarded.
type ExtractError struct {
	Error     string `json:"error"`
	Raw       string `json:"raw,omitempty"`
	Attempted string `json:"attempted,omitempty"`
	Details   string `json:"details,omitempty"`
}

// Extractor pulls structured business fields out of a polished transcript.
// Extract never returns a Go error and never panics past this boundary;
// every failure becomes an ExtractError value.
type Extractor struct {
	apiKey string
	model  string
	client *openai.Client
	log    *logger.Logger
}

func NewExtractor(apiKey, model string) *Extractor {
	e := &Extractor{
		apiKey: apiKey,
		model:  model,
		log:    logger.New(),
	}
	if apiKey != "" {
		e.client = llm.NewGroqClient(apiKey)
	}
	return e
}

// NewExtractorWithClient lets tests inject a client bound to a fake server.
func NewExtractorWithClient(client *openai.Client, model string) *Extractor {
	return &Extractor{
		apiKey: "test",
		model:  model,
		client: client,
		log:    logger.New(),
	}
}

// Extract asks the model for a single JSON object matching the schema and
// runs the response through the repair ladder. Exactly one of the two return
// values is non-nil.
func (e *Extractor) Extract(ctx context.Context, polished string) (*BusinessExtract, *ExtractError) {
	if e.apiKey == "" || e.client == nil {
		e.log.Warn("GROQ_API_KEY missing, skipping business extraction")
		return nil, &ExtractError{Error: "GROQ_API_KEY missing"}
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildExtractPrompt(polished)},
		},
		MaxTokens:   1200,
		Temperature: 0.2,
	})
	if err != nil {
		e.log.WithError(err).Error("extraction request failed")
		return nil, &ExtractError{Error: "Request failed", Details: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return nil, &ExtractError{Error: "Empty response from model"}
	}

	return RepairAndParse(resp.Choices[0].Message.Content)
}

func buildExtractPrompt(polished string) string {
	return fmt.Sprintf(`You are a professional business analyst.
Analyze the transcript below and return ONLY a pure JSON object.
Do NOT include any markdown, code fences, or explanations.
JSON must exactly have:
{
  "business_details": "",
  "business_type": "",
  "goals": "",
  "target_audience": "",
  "technology_preferences": [],
  "pain_points": "",
  "proposed_solution": ""
}

For "proposed_solution", write three sections in order: a short problem
statement, a 5-point plan, and a list of recommended platforms.

Transcript:
%s
`, polished)
}
