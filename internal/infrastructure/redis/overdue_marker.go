package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// OverdueMarker remembers which auctions already had an overdue reminder.
type OverdueMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewOverdueMarker(client *redis.Client, ttl time.Duration) *OverdueMarker {
	return &OverdueMarker{client: client, ttl: ttl}
}

// MarkOnce reports true only for the first caller per auction within ttl.
func (m *OverdueMarker) MarkOnce(ctx context.Context, auctionID string) (bool, error) {
	key := fmt.Sprintf("auction:%s:overdue_notified", auctionID)
	return m.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
}
