package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"lesson-progress-service/internal/domain"
)

// Publisher delivers notifications on notifications:{user_id}.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Notify(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, NotificationChannel(n.UserID), payload).Err(); err != nil {
		return &domain.StorageError{Op: "publish notification", Err: err}
	}
	return nil
}

func NotificationChannel(userID string) string {
	return "notifications:" + userID
}
