package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huzaifa321s/proposal-maker/llm"
)

func fakeExtractServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, `{"error":{"message":"boom"}}`, status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestExtractValidResponse(t *testing.T) {
	ts := fakeExtractServer(t, wellFormed, http.StatusOK)
	defer ts.Close()

	e := NewExtractorWithClient(llm.NewGroqClientWithBaseURL("k", ts.URL), "test-model")
	out, extractErr := e.Extract(context.Background(), "Speaker 0: we run a bakery")

	require.Nil(t, extractErr)
	assertWellFormed(t, out)
}

func TestExtractFencedResponseStillRecovers(t *testing.T) {
	ts := fakeExtractServer(t, "```json\n"+wellFormed+"\n```", http.StatusOK)
	defer ts.Close()

	e := NewExtractorWithClient(llm.NewGroqClientWithBaseURL("k", ts.URL), "test-model")
	out, extractErr := e.Extract(context.Background(), "Speaker 0: we run a bakery")

	require.Nil(t, extractErr)
	assertWellFormed(t, out)
}

func TestExtractGarbageNeverReturnsGoError(t *testing.T) {
	garbage := "sorry, no JSON here"
	ts := fakeExtractServer(t, garbage, http.StatusOK)
	defer ts.Close()

	e := NewExtractorWithClient(llm.NewGroqClientWithBaseURL("k", ts.URL), "test-model")
	out, extractErr := e.Extract(context.Background(), "Speaker 0: hello")

	assert.Nil(t, out)
	require.NotNil(t, extractErr)
	assert.Equal(t, garbage, extractErr.Raw)
}

func TestExtractProviderFailureBecomesExtractError(t *testing.T) {
	ts := fakeExtractServer(t, "", http.StatusInternalServerError)
	defer ts.Close()

	e := NewExtractorWithClient(llm.NewGroqClientWithBaseURL("k", ts.URL), "test-model")
	out, extractErr := e.Extract(context.Background(), "Speaker 0: hello")

	assert.Nil(t, out)
	require.NotNil(t, extractErr)
	assert.Equal(t, "Request failed", extractErr.Error)
	assert.NotEmpty(t, extractErr.Details)
}

func TestExtractMissingKeyShortCircuits(t *testing.T) {
	e := NewExtractor("", "test-model")
	out, extractErr := e.Extract(context.Background(), "Speaker 0: hello")

	assert.Nil(t, out)
	require.NotNil(t, extractErr)
	assert.Equal(t, "GROQ_API_KEY missing", extractErr.Error)
}
