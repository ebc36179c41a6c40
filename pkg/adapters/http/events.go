package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// StreamManager fans state diffs out to the SSE subscribers of a session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel for sessionID. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of sessionID. Slow clients miss it.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Events handles GET /events (SSE). Without session_id it streams "reload"
// whenever the world changes; with it, the diffs of applied moves. The watch
// parameter (context, mood, concepts, unlocked, visited, exhausted, items)
// keeps only diffs touching one of the listed fields.
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	var reloads <-chan struct{}
	if sessionID == "" {
		if s.watcher == nil {
			http.Error(w, "world watching is not enabled", http.StatusNotImplemented)
			return
		}
		var err error
		reloads, err = s.watcher.Watch(r.Context())
		if err != nil {
			s.fail(w, r, fmt.Errorf("watch: %w", err))
			return
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	if reloads != nil {
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case _, ok := <-reloads:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: reload\ndata: reload\n\n")
				flusher.Flush()
			}
		}
	}

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()
	var watch []string
	if raw := r.URL.Query().Get("watch"); raw != "" {
		watch = strings.Split(raw, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !touches(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func touches(msg string, fields []string) bool {
	var diff domain.StateDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, f := range fields {
		switch strings.TrimSpace(f) {
		case "context":
			if diff.CurrentContext != nil {
				return true
			}
		case "mood":
			if diff.CurrentMood != nil {
				return true
			}
		case "concepts":
			if len(diff.Concepts) > 0 {
				return true
			}
		case "unlocked":
			if len(diff.Unlocked) > 0 {
				return true
			}
		case "visited":
			if len(diff.Visited) > 0 {
				return true
			}
		case "exhausted":
			if len(diff.Exhausted) > 0 {
				return true
			}
		case "items":
			if len(diff.SharedItems) > 0 {
				return true
			}
		}
	}
	return false
}
