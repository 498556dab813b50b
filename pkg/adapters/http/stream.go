package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/recalc/pkg/domain"
)

// subscriberBuffer is the per-client backlog before messages are dropped.
const subscriberBuffer = 16

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a client for a session and returns its channel and
// an unsubscribe func.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Broadcast sends msg to every subscriber of the session without blocking.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Hooks returns lifecycle hooks that stream every propagation to the
// subscribers of its session.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPropagation: func(_ context.Context, u *domain.VariableUpdate) {
			b, err := json.Marshal(u)
			if err != nil {
				return
			}
			sm.Broadcast(u.SessionID, string(b))
		},
	}
}

// SubscribeEvents handles GET /events (SSE). With ?session_id= it streams
// the session's variable updates, optionally filtered by ?watch=ns_name,...;
// without it, it streams the IDs of changed workbooks.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	var source <-chan string
	if sessionID == "" {
		events, err := s.Engine.Watch(r.Context())
		if err != nil {
			s.fail(w, r, "watch", err)
			return
		}
		source = events
	} else {
		ch, cancel := s.Streams.Subscribe(sessionID)
		defer cancel()
		source = ch
	}

	watch := map[string]bool{}
	if raw := r.URL.Query().Get("watch"); raw != "" {
		for _, key := range strings.Split(raw, ",") {
			watch[strings.TrimSpace(key)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-source:
			if !ok {
				return
			}
			if sessionID != "" && len(watch) > 0 && !watched(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func watched(msg string, watch map[string]bool) bool {
	var u domain.VariableUpdate
	if err := json.Unmarshal([]byte(msg), &u); err != nil {
		return true
	}
	return watch[u.Key().String()]
}
