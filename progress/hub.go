package progress

import (
	"sync"

	"github.com/google/uuid"

	"github.com/huzaifa321s/proposal-maker/logger"
)

// Event is one frame pushed to SSE subscribers. Events are transient: they
// exist only on the wire to listeners connected at publish time.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Func is the publish callback handed to pipeline stages so they can emit
// events without holding a reference to the hub itself. (*Hub).Publish
// satisfies it.
type Func func(event string, data any)

// listenerBuffer is how far a listener may fall behind before it is dropped.
const listenerBuffer = 64

// Listener is one subscribed client. Events arrive on Events() in publish
// order; the channel is closed when the listener is unsubscribed or dropped.
type Listener struct {
	id string
	ch chan Event
}

func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Hub broadcasts pipeline progress events to every connected listener.
// One Hub is created per process and injected into the pipeline; it is the
// only state shared across concurrent runs.
type Hub struct {
	mu        sync.Mutex
	listeners map[string]*Listener
	log       *logger.Logger
}

func NewHub() *Hub {
	return &Hub{
		listeners: make(map[string]*Listener),
		log:       logger.New(),
	}
}

// Subscribe registers a new listener and returns it.
func (h *Hub) Subscribe() *Listener {
	l := &Listener{
		id: uuid.New().String(),
		ch: make(chan Event, listenerBuffer),
	}

	h.mu.Lock()
	h.listeners[l.id] = l
	h.mu.Unlock()

	h.log.WithField("listener_id", l.id).Debug("listener subscribed")
	return l
}

// Unsubscribe deregisters a listener and closes its channel. Safe to call
// more than once; the second call is a no-op.
func (h *Hub) Unsubscribe(l *Listener) {
	if l == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(l)
}

// Publish delivers one event to every currently-registered listener.
// Best-effort and non-blocking: a listener whose buffer is full is treated as
// disconnected and deregistered so one dead client never stalls the pipeline.
// Publishing with zero listeners is a silent no-op.
func (h *Hub) Publish(event string, data any) {
	ev := Event{Event: event, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, l := range h.listeners {
		select {
		case l.ch <- ev:
		default:
			h.log.WithField("listener_id", l.id).Warn("listener too slow, dropping")
			h.removeLocked(l)
		}
	}
}

// ListenerCount reports the number of currently-connected listeners.
func (h *Hub) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Close drops every listener. Called once on process shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, l := range h.listeners {
		h.removeLocked(l)
	}
}

func (h *Hub) removeLocked(l *Listener) {
	if _, ok := h.listeners[l.id]; !ok {
		return
	}
	delete(h.listeners, l.id)
	close(l.ch)
}
