package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huzaifa321s/proposal-maker/config"
	"github.com/huzaifa321s/proposal-maker/llm"
	"github.com/huzaifa321s/proposal-maker/logger"
	"github.com/huzaifa321s/proposal-maker/nlp"
	"github.com/huzaifa321s/proposal-maker/pipeline"
	"github.com/huzaifa321s/proposal-maker/progress"
	"github.com/huzaifa321s/proposal-maker/transcribe"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		UploadDir:        t.TempDir(),
		GroqPolishModel:  "test-model",
		GroqExtractModel: "test-model",
	}
	hub := progress.NewHub()
	pipe := pipeline.New(
		hub,
		transcribe.NewDeepgram(""), // no key; the background run degrades, the ack does not
		llm.NewPolisher("", cfg.GroqPolishModel),
		nlp.NewExtractor("", cfg.GroqExtractModel),
	)
	srv := &server{cfg: cfg, hub: hub, pipe: pipe, log: logger.New()}

	app := fiber.New()
	app.Post("/api/transcribe", srv.handleUpload)
	return app
}

func TestUploadWithoutFileIsRejected(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/transcribe", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "missing audio file upload")
}

func TestUploadReturnsImmediateAcknowledgment(t *testing.T) {
	app := newTestApp(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "call.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF....WAVEfmt "))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/transcribe", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Message string `json:"message"`
		JobID   string `json:"jobId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Processing started, watch SSE for updates.", body.Message)
	assert.NotEmpty(t, body.JobID)
}
