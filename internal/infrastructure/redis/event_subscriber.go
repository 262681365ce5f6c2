package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"domain-auction/internal/domain"
	"domain-auction/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

// SubscribeToAuctionEvents blocks, handing each event to handler until ctx is
// cancelled. Malformed payloads and handler errors are logged and skipped.
func (r *RedisEventSubscriber) SubscribeToAuctionEvents(ctx context.Context, handler domain.EventHandler) error {
	pubsub := r.client.Subscribe(ctx, AuctionEventsChannel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed so no event published after
	// this call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", AuctionEventsChannel, err)
	}

	ch := pubsub.Channel()

	r.log.Info("Subscribed to auction events")

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := parseEvent(msg.Payload)
			if err != nil {
				r.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(event); err != nil {
				r.log.Error("Failed to handle event", "type", event.Type, "auction_id", event.AuctionID, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}

func parseEvent(payload string) (*domain.AuctionEvent, error) {
	var event domain.AuctionEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	if event.Type == "" || event.AuctionID == "" {
		return nil, fmt.Errorf("invalid event payload: missing type or auction_id")
	}
	return &event, nil
}
