package memory

import (
	"context"
	"sync"

	"lesson-progress-service/internal/domain"
)

// NotificationStore keeps notifications in memory and doubles as a Notifier.
type NotificationStore struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{byUser: make(map[string][]domain.Notification)}
}

func (s *NotificationStore) Save(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[n.UserID] = append(s.byUser[n.UserID], n)
	return nil
}

func (s *NotificationStore) Notify(ctx context.Context, n domain.Notification) error {
	return s.Save(ctx, n)
}

// ListByUser returns the user's notifications, oldest first.
func (s *NotificationStore) ListByUser(_ context.Context, userID string) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Notification, len(s.byUser[userID]))
	copy(out, s.byUser[userID])
	return out, nil
}
