package app

import (
	"testing"

	"lesson-progress-service/internal/domain"
)

func TestFeedDropsStaleSnapshotsForSlowSubscribers(t *testing.T) {
	feed := NewLeaderboardFeed()
	ch, cancel := feed.Subscribe()
	defer cancel()

	<-ch // initial snapshot

	for i := 1; i <= 20; i++ {
		feed.Publish(domain.Leaderboard{Entries: []domain.LeaderboardEntry{{UserID: "u1", TotalScore: i}}})
	}

	var last domain.Leaderboard
	for len(ch) > 0 {
		last = <-ch
	}
	if len(last.Entries) != 1 || last.Entries[0].TotalScore != 20 {
		t.Fatalf("expected newest snapshot last, got %+v", last.Entries)
	}
}

func TestFeedCancelClosesChannel(t *testing.T) {
	feed := NewLeaderboardFeed()
	ch, cancel := feed.Subscribe()
	<-ch

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if feed.HasSubscribers() {
		t.Fatalf("expected no subscribers after cancel")
	}
	feed.Publish(domain.Leaderboard{}) // must not panic on closed channels
}
