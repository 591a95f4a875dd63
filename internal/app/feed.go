package app

import (
	"sync"

	"lesson-progress-service/internal/domain"
)

// LeaderboardFeed fans leaderboard snapshots out to live subscribers.
type LeaderboardFeed struct {
	mu          sync.Mutex
	last        domain.Leaderboard
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe returns a channel primed with the latest snapshot.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *LeaderboardFeed) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	initial := f.last
	f.mu.Unlock()

	ch <- initial

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// HasSubscribers lets publishers skip building snapshots nobody reads.
func (f *LeaderboardFeed) HasSubscribers() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers) > 0
}

// Publish records lb as the latest snapshot and delivers it to every subscriber.
func (f *LeaderboardFeed) Publish(lb domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = lb
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			// slow subscriber: drop its oldest pending snapshot so the newest one fits
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
