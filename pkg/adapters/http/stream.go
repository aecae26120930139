package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/taskgraph/pkg/domain"
)

// StreamManager fans fragment events out to server-sent event subscribers.
// It is an events consumer: register it with the engine to feed the stream.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- string]string
	logger      *slog.Logger
}

// NewStreamManager creates a stream manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{subscribers: make(map[chan<- string]string), logger: logger}
}

// Subscribe registers a subscriber for the events of task, or of every task when task is empty.
func (sm *StreamManager) Subscribe(task string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	sm.subscribers[ch] = task
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Accept broadcasts event to the matching subscribers. Slow subscribers miss events.
func (sm *StreamManager) Accept(_ context.Context, _ domain.ClientRequest, event domain.FragmentEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		sm.logger.Error("stream: event encode failed", "err", err)
		return
	}
	msg := string(data)

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch, task := range sm.subscribers {
		if task != "" && task != event.Task {
			continue
		}
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("stream: subscriber buffer full, dropping event", "task", event.Task)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// SubscribeEvents handles GET /events/stream (SSE). ?task= filters by task.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.Streams == nil {
		http.Error(w, "Streaming not configured", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(r.URL.Query().Get("task"))
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
