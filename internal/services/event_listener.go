package services

import (
	"context"
	"fmt"

	"domain-auction/internal/domain"
	"domain-auction/pkg/logger"
)

// EventListener turns auction events into feed messages for the watchers of
// each auction.
type EventListener struct {
	broadcaster       domain.AuctionBroadcaster
	connectionManager domain.ConnectionManager
	log               logger.Logger
}

func NewEventListener(connectionManager domain.ConnectionManager,
	broadcaster domain.AuctionBroadcaster, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster:       broadcaster,
		connectionManager: connectionManager,
		log:               log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.SubscribeToAuctionEvents(ctx, el.handleAuctionEvent)
}

func (el *EventListener) handleAuctionEvent(event *domain.AuctionEvent) error {
	el.log.Debug("Handling auction event", "type", event.Type, "auction_id", event.AuctionID)

	switch event.Type {
	case domain.EventBidAccepted:
		return el.handleBidAccepted(event)
	case domain.EventAuctionEnded:
		return el.handleAuctionEnded(event)
	case domain.EventAuctionOverdue:
		return el.handleAuctionOverdue(event)
	case domain.EventAuctionCreated:
		// Nobody can be watching an auction that did not exist.
		return nil
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}

func (el *EventListener) handleBidAccepted(event *domain.AuctionEvent) error {
	return el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
		"type":              "bid_update",
		"auction_id":        event.AuctionID,
		"current_bid":       event.Amount,
		"current_bidder_id": event.UserID,
		"bids_count":        event.BidsCount,
		"timestamp":         event.Timestamp,
	})
}

func (el *EventListener) handleAuctionEnded(event *domain.AuctionEvent) error {
	if err := el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
		"type":       "auction_ended",
		"auction_id": event.AuctionID,
		"winner_id":  event.UserID,
		"final_bid":  event.Amount,
		"bids_count": event.BidsCount,
		"timestamp":  event.Timestamp,
	}); err != nil {
		el.log.Error("Failed to broadcast auction ended event", "auction_id", event.AuctionID, "error", err)
		return err
	}

	if err := el.connectionManager.CloseAndUnregisterConnections(event.AuctionID); err != nil {
		el.log.Error("Failed to finalize connections for auction", "auction_id",
			event.AuctionID, "error", err)
		return err
	}
	return nil
}

func (el *EventListener) handleAuctionOverdue(event *domain.AuctionEvent) error {
	return el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
		"type":        "auction_overdue",
		"auction_id":  event.AuctionID,
		"current_bid": event.Amount,
		"bids_count":  event.BidsCount,
		"timestamp":   event.Timestamp,
	})
}
