package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"domain-auction/internal/domain"

	"github.com/go-redis/redis/v8"
)

// AuctionEventsChannel carries every auction event as a JSON document.
const AuctionEventsChannel = "auction_events"

type EventPublisherImpl struct {
	client  *redis.Client
	channel string
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client, channel: AuctionEventsChannel}
}

func (r *EventPublisherImpl) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}
