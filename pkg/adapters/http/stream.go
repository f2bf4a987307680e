package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/spectate/pkg/domain"
)

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // model -> set of channels; "" receives every model
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe returns a channel receiving the JSON records of model, or of
// every model when model is empty, and a function ending the subscription.
func (sm *StreamManager) Subscribe(model string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[model]; !ok {
		sm.subscribers[model] = make(map[chan<- string]struct{})
	}
	sm.subscribers[model][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[model]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, model)
			}
		}
	}
}

// Broadcast sends rec to the subscribers of its model and to the catch-all
// subscribers. Slow clients miss records instead of blocking delivery.
func (sm *StreamManager) Broadcast(rec domain.Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Error("StreamManager: encode failed", "seq", rec.Seq, "err", err)
		return
	}
	msg := string(data)

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{rec.Model, ""} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				slog.Warn("SSE: Client buffer full, dropping record", "model", rec.Model, "seq", rec.Seq)
			}
		}
		if rec.Model == "" {
			break
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, subs := range sm.subscribers {
		n += len(subs)
	}
	return n
}
