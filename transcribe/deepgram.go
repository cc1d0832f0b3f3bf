package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/huzaifa321s/proposal-maker/logger"
	"github.com/huzaifa321s/proposal-maker/progress"
)

const deepgramAPI = "https://api.deepgram.com/v1/listen"

// deepgramTimeout is generous on purpose: the whole audio payload travels in
// one request body.
const deepgramTimeout = 300 * time.Second

// Deepgram is the sync-batch variant: the audio is streamed directly to the
// provider in a single blocking call that returns the finished transcript.
type Deepgram struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{
		apiKey:  apiKey,
		baseURL: deepgramAPI,
		client:  &http.Client{Timeout: deepgramTimeout},
		log:     logger.New(),
	}
}

type deepgramResponse struct {
	Results struct {
		Utterances []struct {
			Speaker    int     `json:"speaker"`
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"utterances"`
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Deepgram) Transcribe(ctx context.Context, filePath string, emit progress.Func) (*Result, error) {
	if d.apiKey == "" {
		return nil, &ProviderError{Provider: "deepgram", Message: "missing DEEPGRAM_API_KEY"}
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, &ProviderError{Provider: "deepgram", Message: "open audio file", Err: err}
	}
	defer f.Close()

	emit("transcription_status", map[string]any{"status": "Transcription Started"})

	u, _ := url.Parse(d.baseURL)
	q := u.Query()
	q.Set("model", "nova-2")
	q.Set("diarize", "true")
	q.Set("smart_format", "true")
	q.Set("utterances", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), f)
	if err != nil {
		return nil, &ProviderError{Provider: "deepgram", Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "audio/*")

	d.log.WithField("file", filePath).Info("sending audio to Deepgram")
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "deepgram", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "deepgram", Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{
			Provider: "deepgram",
			Message:  fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var parsed deepgramResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProviderError{Provider: "deepgram", Message: "malformed response body", Err: err}
	}

	emit("transcription_status", map[string]any{"status": "Transcripting..."})

	res := &Result{}
	if len(parsed.Results.Utterances) > 0 {
		for _, u := range parsed.Results.Utterances {
			res.Utterances = append(res.Utterances, Utterance{
				Speaker: u.Speaker,
				Text:    u.Transcript,
				IsFinal: true,
			})
		}
		return res, nil
	}

	// No diarized utterances: take the flat alternative transcript, or the
	// placeholder when the audio was silent.
	if len(parsed.Results.Channels) > 0 && len(parsed.Results.Channels[0].Alternatives) > 0 {
		res.Text = parsed.Results.Channels[0].Alternatives[0].Transcript
	}
	if res.Text == "" {
		res.Text = NoSpeech
	}
	return res, nil
}
