package websocket

import (
	"context"

	"domain-auction/internal/domain"
)

// WebSocketNotifier adapts a ConnectionManager to domain.AuctionBroadcaster.
type WebSocketNotifier struct {
	connManager domain.ConnectionManager
}

func NewWebSocketNotifier(connManager domain.ConnectionManager) *WebSocketNotifier {
	return &WebSocketNotifier{connManager: connManager}
}

func (n *WebSocketNotifier) BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.connManager.BroadcastToAuction(auctionID, message)
}
