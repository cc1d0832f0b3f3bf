package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	gws "github.com/gorilla/websocket"

	"github.com/huzaifa321s/proposal-maker/logger"
	"github.com/huzaifa321s/proposal-maker/queue"
)

const deepgramLiveURL = "wss://api.deepgram.com/v1/listen?model=nova-2&encoding=linear16&sample_rate=16000&channels=1&punctuate=true&smart_format=true&interim_results=true&diarize=true&vad_events=true"

// LiveSession is the live-stream variant: a duplex channel opened per client
// session. Audio chunks go up as they arrive; the provider pushes interim and
// final transcript fragments back asynchronously.
type LiveSession struct {
	conn      *gws.Conn
	writeMu   sync.Mutex
	fragments chan Utterance
	finals    *queue.Queue[Utterance]
	done      chan struct{}
	closeOnce sync.Once
	log       *logger.Logger
}

// NewLiveSession dials the provider's streaming endpoint and starts reading
// transcript fragments. The caller must Close the session when the client
// disconnects so the upstream resources are released.
func NewLiveSession(apiKey string) (*LiveSession, error) {
	return dialLiveSession(apiKey, deepgramLiveURL)
}

func dialLiveSession(apiKey, rawURL string) (*LiveSession, error) {
	if apiKey == "" {
		return nil, &ProviderError{Provider: "deepgram", Message: "missing DEEPGRAM_API_KEY"}
	}

	header := http.Header{"Authorization": {"Token " + apiKey}}
	conn, _, err := gws.DefaultDialer.Dial(rawURL, header)
	if err != nil {
		return nil, &ProviderError{Provider: "deepgram", Message: "dial live endpoint", Err: err}
	}

	s := &LiveSession{
		conn:      conn,
		fragments: make(chan Utterance, 64),
		finals:    queue.New[Utterance](),
		done:      make(chan struct{}),
		log:       logger.New(),
	}
	go s.readLoop()
	return s, nil
}

type liveMessage struct {
	IsFinal bool `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
			Words      []struct {
				Speaker int `json:"speaker"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// readLoop consumes provider messages until the connection closes. Final
// fragments are buffered for the eventual Stop drain; every fragment is also
// offered on the fragments channel for live forwarding.
func (s *LiveSession) readLoop() {
	defer close(s.done)
	defer close(s.fragments)

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.log.WithError(err).Debug("live session read ended")
			return
		}

		var m liveMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			s.log.WithError(err).Warn("unparseable live message")
			continue
		}
		if len(m.Channel.Alternatives) == 0 {
			continue
		}
		text := m.Channel.Alternatives[0].Transcript
		if text == "" {
			continue
		}

		speaker := 0
		if words := m.Channel.Alternatives[0].Words; len(words) > 0 {
			speaker = words[0].Speaker
		}

		u := Utterance{Speaker: speaker, Text: text, IsFinal: m.IsFinal}
		if m.IsFinal {
			s.finals.Enqueue(u)
		}
		select {
		case s.fragments <- u:
		default:
			// caller stopped consuming; keep the session alive regardless
		}
	}
}

// Fragments delivers interim and final transcript fragments as they arrive.
// The channel closes when the provider connection ends.
func (s *LiveSession) Fragments() <-chan Utterance {
	return s.fragments
}

// SendAudio pushes one raw audio chunk to the provider.
func (s *LiveSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(gws.BinaryMessage, chunk); err != nil {
		return &ProviderError{Provider: "deepgram", Message: "write audio chunk", Err: err}
	}
	return nil
}

// Stop asks the provider to flush whatever it is still holding, waits for the
// stream to drain (fragments may legitimately arrive after the caller signals
// stop), and returns the final utterances in arrival order.
func (s *LiveSession) Stop(ctx context.Context) []Utterance {
	s.writeMu.Lock()
	err := s.conn.WriteMessage(gws.TextMessage, []byte(`{"type":"CloseStream"}`))
	s.writeMu.Unlock()
	if err != nil {
		s.log.WithError(err).Warn("close stream request failed")
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		s.log.Warn("live session drain timed out")
	}
	return s.finals.Drain()
}

// Close finalizes the upstream session. Safe to call after Stop and on every
// disconnect path.
func (s *LiveSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, "session closed"))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
