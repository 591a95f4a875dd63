package postgres

import (
	"context"

	"github.com/uptrace/bun"
	"lesson-progress-service/internal/domain"
)

// NotificationStore persists notifications and doubles as a Notifier.
type NotificationStore struct {
	db bun.IDB
}

func NewNotificationStore(db bun.IDB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Save(ctx context.Context, n domain.Notification) error {
	row := notificationRow{
		ID:          n.ID,
		UserID:      n.UserID,
		Title:       n.Title,
		Description: n.Description,
		CreatedAt:   n.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(&row).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	return storageErr("save notification", err, nil)
}

func (s *NotificationStore) Notify(ctx context.Context, n domain.Notification) error {
	return s.Save(ctx, n)
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	var rows []notificationRow
	err := s.db.NewSelect().Model(&rows).
		Where("n.user_id = ?", userID).
		Order("n.created_at ASC", "n.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageErr("list notifications", err, nil)
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Notification{
			ID:          r.ID,
			UserID:      r.UserID,
			Title:       r.Title,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}
