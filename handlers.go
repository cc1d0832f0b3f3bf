package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/huzaifa321s/proposal-maker/config"
	"github.com/huzaifa321s/proposal-maker/logger"
	"github.com/huzaifa321s/proposal-maker/pipeline"
	"github.com/huzaifa321s/proposal-maker/progress"
	"github.com/huzaifa321s/proposal-maker/transcribe"
)

type server struct {
	cfg  *config.Config
	hub  *progress.Hub
	pipe *pipeline.Pipeline
	log  *logger.Logger
}

// handleSSE keeps the response open and streams hub events to the client as
// they are published. The connection closes only when the client disconnects
// or the process shuts down.
func (s *server) handleSSE(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	l := s.hub.Subscribe()
	s.log.WithRequest(c).Info("SSE listener connected")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer s.hub.Unsubscribe(l)

		connected := progress.Event{
			Event: "connected",
			Data:  map[string]any{"message": "SSE connection established"},
		}
		if err := writeFrame(w, connected); err != nil {
			return
		}

		for ev := range l.Events() {
			if err := writeFrame(w, ev); err != nil {
				// client went away; unsubscribe and stop
				return
			}
		}
	}))
	return nil
}

func writeFrame(w *bufio.Writer, ev progress.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return err
	}
	return w.Flush()
}

// handleUpload accepts one audio file, kicks the pipeline off in the
// background, and returns immediately. The heavy payload travels over the
// SSE stream, not this response.
func (s *server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing audio file upload"})
	}

	jobID := uuid.New().String()
	dst := filepath.Join(s.cfg.UploadDir, jobID+filepath.Ext(fh.Filename))
	if err := c.SaveFile(fh, dst); err != nil {
		s.log.WithRequest(c).WithError(err).Error("failed to store upload")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store upload"})
	}

	s.log.WithRequest(c).WithField("job_id", jobID).WithField("file", fh.Filename).Info("upload accepted")
	go s.pipe.Run(context.Background(), jobID, dst)

	return c.JSON(fiber.Map{
		"message": "Processing started, watch SSE for updates.",
		"jobId":   jobID,
	})
}

// liveEvent is the envelope the browser sends over the live websocket.
type liveEvent struct {
	Event string `json:"event"` // "start", "media", "stop"
	Media struct {
		Payload string `json:"payload"` // base64 audio
	} `json:"media"`
	Start struct {
		SessionID string `json:"sessionId"`
	} `json:"start"`
}

// handleLive bridges a client websocket to the provider's duplex streaming
// session. Interim transcripts are echoed back as they arrive; on stop the
// session is drained and the rest of the pipeline runs on the collected
// utterances. A disconnect finalizes the upstream session immediately.
func (s *server) handleLive(ws *websocket.Conn) {
	defer ws.Close()

	log := s.log.WithField("handler", "live")
	session, err := transcribe.NewLiveSession(s.cfg.DeepgramAPIKey)
	if err != nil {
		log.WithError(err).Error("live session failed to open")
		_ = ws.WriteJSON(fiber.Map{"event": "error", "data": fiber.Map{"message": err.Error()}})
		return
	}
	defer session.Close()

	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteJSON(v)
	}

	go func() {
		for u := range session.Fragments() {
			_ = writeJSON(fiber.Map{"event": "transcript", "data": u})
		}
	}()

	jobID := uuid.New().String()
	log = log.WithField("job_id", jobID)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("live client disconnected")
			} else {
				log.WithError(err).Warn("live read error")
			}
			return
		}

		var ev liveEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			log.WithError(err).Warn("unparseable live event")
			continue
		}

		switch ev.Event {
		case "start":
			log.WithField("session_id", ev.Start.SessionID).Info("live stream started")

		case "media":
			chunk, err := base64.StdEncoding.DecodeString(ev.Media.Payload)
			if err != nil {
				log.WithError(err).Warn("base64 decode error")
				continue
			}
			if err := session.SendAudio(chunk); err != nil {
				log.WithError(err).Error("forwarding audio failed")
				return
			}

		case "stop":
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			utterances := session.Stop(drainCtx)
			cancel()

			log.WithField("utterances", len(utterances)).Info("live stream stopped")
			go s.pipe.RunFromUtterances(context.Background(), jobID, utterances)

			_ = writeJSON(fiber.Map{
				"message": "Processing started, watch SSE for updates.",
				"jobId":   jobID,
			})
			return

		default:
			log.WithField("event", ev.Event).Warn("unknown live event")
		}
	}
}
