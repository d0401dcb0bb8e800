package devserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// Message is a server-sent event.
type Message struct {
	Event string
	Data  string
	ID    string
	Retry string
}

// String returns the wire form of the message, terminated by a blank line.
func (m Message) String() string {
	var b strings.Builder
	if m.Event != "" {
		b.WriteString("event: " + m.Event + "\n")
	}
	if m.Data != "" || m.Event != "" {
		for _, line := range strings.Split(m.Data, "\n") {
			b.WriteString("data: " + line + "\n")
		}
	}
	if m.ID != "" {
		b.WriteString("id: " + m.ID + "\n")
	}
	if m.Retry != "" {
		b.WriteString("retry: " + m.Retry + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Broker streams events to every connected browser.
type Broker struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	Logger  *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{clients: make(map[chan string]struct{}), Logger: logger}
}

// Clients returns the number of connected browsers.
func (b *Broker) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// SendEvent delivers an event to the connected browsers. Slow clients miss
// it.
func (b *Broker) SendEvent(event, data string) {
	msg := Message{Event: event, Data: data}.String()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.clients) == 0 {
		b.Logger.Debug("no browser connected, event skipped", "event", event)
		return
	}
	for c := range b.clients {
		select {
		case c <- msg:
		default:
			b.Logger.Warn("browser lagging, event dropped", "event", event)
		}
	}
}

func (b *Broker) subscribe() chan string {
	c := make(chan string, 8)
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	return c
}

func (b *Broker) unsubscribe(c chan string) {
	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()
}

func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fw, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, Message{Retry: "1000"}.String())
	fw.Flush()

	c := b.subscribe()
	defer b.unsubscribe(c)
	b.Logger.Debug("browser connected to the reload stream", "remote", r.RemoteAddr)

	for {
		select {
		case <-r.Context().Done():
			b.Logger.Debug("browser left the reload stream", "remote", r.RemoteAddr)
			return
		case msg := <-c:
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			fw.Flush()
		}
	}
}
