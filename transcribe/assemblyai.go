package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/huzaifa321s/proposal-maker/logger"
	"github.com/huzaifa321s/proposal-maker/progress"
)

const assemblyAPI = "https://api.assemblyai.com/v2"

// assemblyPollInterval is the fixed wait between status checks.
const assemblyPollInterval = 3 * time.Second

// AssemblyAI is the async-poll variant: upload the audio, submit a transcript
// job, then poll the job id until the provider reports a terminal status.
type AssemblyAI struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	log          *logger.Logger
}

func NewAssemblyAI(apiKey string) *AssemblyAI {
	return &AssemblyAI{
		apiKey:       apiKey,
		baseURL:      assemblyAPI,
		client:       &http.Client{Timeout: deepgramTimeout},
		pollInterval: assemblyPollInterval,
		log:          logger.New(),
	}
}

type assemblyTranscript struct {
	ID         string `json:"id"`
	Status     string `json:"status"` // queued, processing, completed, error
	Error      string `json:"error"`
	Text       string `json:"text"`
	Utterances []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"utterances"`
}

func (a *AssemblyAI) Transcribe(ctx context.Context, filePath string, emit progress.Func) (*Result, error) {
	if a.apiKey == "" {
		return nil, &ProviderError{Provider: "assemblyai", Message: "missing ASSEMBLYAI_API_KEY"}
	}

	uploadURL, err := a.upload(ctx, filePath)
	if err != nil {
		return nil, err
	}

	id, err := a.submit(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	a.log.WithField("transcript_id", id).Info("transcript job submitted")

	final, err := a.awaitResult(ctx, id, emit)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, u := range final.Utterances {
		res.Utterances = append(res.Utterances, Utterance{
			Speaker: speakerIndex(u.Speaker),
			Text:    u.Text,
			IsFinal: true,
		})
	}
	if len(res.Utterances) == 0 {
		res.Text = final.Text
		if res.Text == "" {
			res.Text = NoSpeech
		}
	}
	return res, nil
}

// upload streams the audio file to the provider and returns its temporary URL.
func (a *AssemblyAI) upload(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", &ProviderError{Provider: "assemblyai", Message: "open audio file", Err: err}
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/upload", f)
	if err != nil {
		return "", &ProviderError{Provider: "assemblyai", Message: "build upload request", Err: err}
	}
	req.Header.Set("Authorization", a.apiKey)

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := a.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", &ProviderError{Provider: "assemblyai", Message: "upload returned no url"}
	}
	return out.UploadURL, nil
}

// submit creates the transcript job and returns the provider's id for it.
func (a *AssemblyAI) submit(ctx context.Context, audioURL string) (string, error) {
	payload, _ := json.Marshal(map[string]any{
		"audio_url":      audioURL,
		"speaker_labels": true,
		"punctuate":      true,
		"format_text":    true,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: "assemblyai", Message: "build submit request", Err: err}
	}
	req.Header.Set("Authorization", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out assemblyTranscript
	if err := a.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &ProviderError{Provider: "assemblyai", Message: "submit returned no transcript id"}
	}
	return out.ID, nil
}

// errStillProcessing marks a poll iteration that should be retried.
var errStillProcessing = fmt.Errorf("transcript still processing")

// awaitResult polls the transcript on a fixed interval until the provider
// reports completed or error. Each iteration emits a progress event so a
// long-running job stays observable; cancellation of ctx stops the loop.
func (a *AssemblyAI) awaitResult(ctx context.Context, id string, emit progress.Func) (*assemblyTranscript, error) {
	var final assemblyTranscript

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/transcript/"+id, nil)
		if err != nil {
			return backoff.Permanent(&ProviderError{Provider: "assemblyai", Message: "build poll request", Err: err})
		}
		req.Header.Set("Authorization", a.apiKey)

		var status assemblyTranscript
		if err := a.doJSON(req, &status); err != nil {
			return backoff.Permanent(err)
		}

		emit("transcription_status", map[string]any{"status": status.Status, "id": id})
		a.log.WithField("transcript_id", id).WithField("status", status.Status).Info("polling transcription")

		switch status.Status {
		case "completed":
			final = status
			return nil
		case "error":
			return backoff.Permanent(&ProviderError{Provider: "assemblyai", Message: status.Error})
		default:
			return errStillProcessing
		}
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(a.pollInterval), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, &ProviderError{Provider: "assemblyai", Message: "polling aborted", Err: err}
	}
	return &final, nil
}

func (a *AssemblyAI) doJSON(req *http.Request, target any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return &ProviderError{Provider: "assemblyai", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Provider: "assemblyai", Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{
			Provider: "assemblyai",
			Message:  fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)),
		}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &ProviderError{Provider: "assemblyai", Message: "malformed response body", Err: err}
	}
	return nil
}

// speakerIndex maps the provider's letter labels (A, B, ...) onto the
// 0-based integers used in the canonical transcript.
func speakerIndex(label string) int {
	if label == "" {
		return 0
	}
	c := label[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A')
	case c >= 'a' && c <= 'z':
		return int(c - 'a')
	case c >= '0' && c <= '9':
		return int(c - '0')
	default:
		return 0
	}
}
