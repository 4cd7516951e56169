package analysis

import (
	"sync"

	"github.com/threadscope/threadscope/pkg/model"
)

// ProgressHub provides in-process fan-out of run progress to subscribers
// (the WebSocket handler, primarily). Slow subscribers drop intermediate
// updates rather than blocking the workers. When a run reaches a terminal
// state the hub closes every subscriber channel, so readers always observe
// the end of the stream.
type ProgressHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan model.Progress]struct{} // runID → subscriber channels
}

// NewProgressHub creates a ProgressHub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subs: make(map[string]map[chan model.Progress]struct{}),
	}
}

// Subscribe registers interest in a run's progress. The returned channel is
// buffered and closes when the run finishes; call the returned cancel
// function to unsubscribe early.
func (h *ProgressHub) Subscribe(runID string) (<-chan model.Progress, func()) {
	ch := make(chan model.Progress, 16)

	h.mu.Lock()
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[chan model.Progress]struct{})
	}
	h.subs[runID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[runID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, runID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish sends a progress update to every subscriber of the run. Full
// subscriber buffers are skipped. A terminal update additionally closes and
// deregisters every subscriber channel, so the stream ends even when the
// final send itself was dropped.
func (h *ProgressHub) Publish(p model.Progress) {
	terminal := p.Status == model.RunCompleted || p.Status == model.RunFailed

	if !terminal {
		h.mu.RLock()
		defer h.mu.RUnlock()
		for ch := range h.subs[p.RunID] {
			select {
			case ch <- p:
			default:
			}
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[p.RunID] {
		select {
		case ch <- p:
		default:
		}
		close(ch)
	}
	delete(h.subs, p.RunID)
}

// SubscriberCount returns the number of active subscribers for a run.
func (h *ProgressHub) SubscriberCount(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[runID])
}
