package app

import (
	"sync"

	"whatsapp-quiz-bot/internal/domain"
)

// rankingHub fans group ranking snapshots out to live subscribers (the
// operator websocket). Slow subscribers only ever lag by one snapshot:
// stale updates are dropped in favor of the newest.
type rankingHub struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.RankingSnapshot]struct{}
}

func (h *rankingHub) subscribe(entityID string) (<-chan domain.RankingSnapshot, func()) {
	ch := make(chan domain.RankingSnapshot, 8)

	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[string]map[chan domain.RankingSnapshot]struct{})
	}
	if h.subs[entityID] == nil {
		h.subs[entityID] = make(map[chan domain.RankingSnapshot]struct{})
	}
	h.subs[entityID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[entityID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, entityID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *rankingHub) broadcast(entityID string, snap domain.RankingSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[entityID] {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
