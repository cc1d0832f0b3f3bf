package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/huzaifa321s/proposal-maker/config"
	"github.com/huzaifa321s/proposal-maker/progress"
)

// NoSpeech is the placeholder transcript returned when a provider finds no
// utterances. Silence is a normal outcome, not an error.
const NoSpeech = "No speech detected."

// Utterance is one diarized fragment of speech.
type Utterance struct {
	Speaker int    `json:"speaker"`
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// Result is what every provider variant converges on before the orchestrator
// takes over.
type Result struct {
	Utterances []Utterance `json:"utterances,omitempty"`
	// Text is the provider's undiarized transcript, used when no utterances
	// were returned.
	Text string `json:"text,omitempty"`
}

// Transcript renders the canonical serialization consumed by the polish
// stage: "Speaker N: text" lines, one per utterance, each preceded by a
// newline. Falls back to the flat text, then to the NoSpeech placeholder.
func (r *Result) Transcript() string {
	if len(r.Utterances) > 0 {
		var sb strings.Builder
		for _, u := range r.Utterances {
			fmt.Fprintf(&sb, "\nSpeaker %d: %s", u.Speaker, u.Text)
		}
		return sb.String()
	}
	if r.Text != "" {
		return r.Text
	}
	return NoSpeech
}

// Transcriber converts one uploaded audio file into a Result. Implementations
// emit transcription_status progress events while they work so long-running
// jobs stay observable.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath string, emit progress.Func) (*Result, error)
}

// New selects the batch provider variant from configuration. The live
// variant is session-scoped and constructed per websocket connection, not
// here.
func New(cfg *config.Config) (Transcriber, error) {
	switch cfg.TranscribeProvider {
	case "deepgram":
		return NewDeepgram(cfg.DeepgramAPIKey), nil
	case "assemblyai":
		return NewAssemblyAI(cfg.AssemblyAIAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown transcribe provider %q", cfg.TranscribeProvider)
	}
}

// ProviderError is any upstream transcription failure: network, auth,
// non-success status, or a malformed payload. It aborts the pipeline run.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
