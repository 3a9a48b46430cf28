package app

import (
	"sync"

	"review-game-service/internal/domain"
)

// Hub fans leaderboard rebuilds out to per-date subscribers. Slow
// consumers never block a publish: the stale board in a full channel
// is dropped in favor of the fresh one.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan []domain.LeaderboardEntry]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []domain.LeaderboardEntry]struct{})}
}

// Subscribe returns a channel receiving the date's leaderboard on each
// rebuild. The caller must invoke cancel to avoid leaks.
func (h *Hub) Subscribe(date string) (<-chan []domain.LeaderboardEntry, func()) {
	ch := make(chan []domain.LeaderboardEntry, 4)

	h.mu.Lock()
	if h.subs[date] == nil {
		h.subs[date] = make(map[chan []domain.LeaderboardEntry]struct{})
	}
	h.subs[date][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[date]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, date)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish sends the rebuilt leaderboard to every subscriber of the date.
func (h *Hub) Publish(date string, entries []domain.LeaderboardEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[date] {
		select {
		case ch <- entries:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- entries
		}
	}
}
