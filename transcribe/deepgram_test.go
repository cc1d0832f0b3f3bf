package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huzaifa321s/proposal-maker/progress"
)

func noProgress() progress.Func {
	return func(string, any) {}
}

func writeWav(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "audio-*.wav")
	require.NoError(t, err)
	_, err = f.Write([]byte("RIFF....WAVEfmt "))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func newTestDeepgram(url string) *Deepgram {
	d := NewDeepgram("test-key")
	d.baseURL = url
	return d
}

func TestDeepgramParsesUtterances(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("diarize"))
		w.Write([]byte(`{"results":{"utterances":[
			{"speaker":0,"transcript":"hello","confidence":0.98},
			{"speaker":1,"transcript":"hi there","confidence":0.95}
		]}}`))
	}))
	defer ts.Close()

	d := newTestDeepgram(ts.URL)
	res, err := d.Transcribe(context.Background(), writeWav(t), noProgress())
	require.NoError(t, err)

	require.Len(t, res.Utterances, 2)
	assert.Equal(t, Utterance{Speaker: 0, Text: "hello", IsFinal: true}, res.Utterances[0])
	assert.Equal(t, Utterance{Speaker: 1, Text: "hi there", IsFinal: true}, res.Utterances[1])
	assert.Equal(t, "\nSpeaker 0: hello\nSpeaker 1: hi there", res.Transcript())
}

func TestDeepgramFallsBackToAlternatives(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"plain transcript"}]}]}}`))
	}))
	defer ts.Close()

	d := newTestDeepgram(ts.URL)
	res, err := d.Transcribe(context.Background(), writeWav(t), noProgress())
	require.NoError(t, err)

	assert.Empty(t, res.Utterances)
	assert.Equal(t, "plain transcript", res.Text)
}

func TestDeepgramSilentAudioIsNoSpeech(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":""}]}]}}`))
	}))
	defer ts.Close()

	d := newTestDeepgram(ts.URL)
	res, err := d.Transcribe(context.Background(), writeWav(t), noProgress())
	require.NoError(t, err)

	assert.Equal(t, NoSpeech, res.Text)
	assert.Equal(t, NoSpeech, res.Transcript())
}

func TestDeepgramNonSuccessStatusIsProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer ts.Close()

	d := newTestDeepgram(ts.URL)
	_, err := d.Transcribe(context.Background(), writeWav(t), noProgress())

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "deepgram", pe.Provider)
	assert.Contains(t, pe.Message, "401")
}

func TestDeepgramMalformedBodyIsProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer ts.Close()

	d := newTestDeepgram(ts.URL)
	_, err := d.Transcribe(context.Background(), writeWav(t), noProgress())

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "malformed response body", pe.Message)
}

func TestDeepgramMissingKeyDetectedBeforeCall(t *testing.T) {
	d := NewDeepgram("")
	_, err := d.Transcribe(context.Background(), writeWav(t), noProgress())

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "DEEPGRAM_API_KEY")
}
