package app

import (
	"sync"

	"exam-practice-service/internal/domain"
)

// LeaderboardHub fans leaderboard updates out to live subscribers of a shared exam.
type LeaderboardHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardHub() *LeaderboardHub {
	return &LeaderboardHub{subscribers: make(map[string]map[chan domain.Leaderboard]struct{})}
}

// Subscribe registers a channel for shareID and primes it with the current board.
// snapshot is read after registration, so a board published in between is never
// lost; the channel starts with whichever of the two has more entries.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *LeaderboardHub) Subscribe(shareID string, snapshot func() (domain.Leaderboard, error)) (<-chan domain.Leaderboard, func(), error) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[shareID]
	if !ok {
		subs = make(map[chan domain.Leaderboard]struct{})
		h.subscribers[shareID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[shareID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, shareID)
		}
	}

	lb, err := snapshot()
	if err != nil {
		cancel()
		return nil, nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for pending := true; pending; {
		select {
		case published := <-ch:
			if published.TotalEntries >= lb.TotalEntries {
				lb = published
			}
		default:
			pending = false
		}
	}
	ch <- lb
	return ch, cancel, nil
}

// Publish delivers lb to every subscriber of its share id.
func (h *LeaderboardHub) Publish(lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[lb.ShareID] {
		select {
		case ch <- lb:
		default:
			// Slow reader: replace the oldest pending board instead of blocking.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// Subscribers returns the number of live subscribers for shareID.
func (h *LeaderboardHub) Subscribers(shareID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[shareID])
}
