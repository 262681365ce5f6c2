package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks domain-auction/internal/domain AuctionStore,ProfileLookup,EventPublisher,LeaderElection

// AuctionStore owns auctions and their bids.
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	// ListActiveAuctions returns active auctions, soonest end_time first.
	ListActiveAuctions(ctx context.Context) ([]*Auction, error)
	// PlaceBid raises the auction to bid.Amount and appends bid in one
	// transaction, provided the auction is still active and its bids_count
	// still equals expectedBidsCount. Otherwise it returns ErrStaleAuction and
	// writes nothing.
	PlaceBid(ctx context.Context, bid *Bid, expectedBidsCount int) error
	// EndAuction moves an active auction to ended, snapshotting winner and
	// final bid from the row. ErrStaleAuction if it is no longer active.
	EndAuction(ctx context.Context, auctionID string, endedAt time.Time) error
	GetBidHistory(ctx context.Context, auctionID string) ([]*Bid, error)
	Ping(ctx context.Context) error
}

// ProfileLookup resolves user IDs to display names. Unknown IDs are absent
// from the result.
type ProfileLookup interface {
	DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Authenticator resolves a bearer credential to a caller identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Event interfaces
type EventPublisher interface {
	PublishAuctionEvent(ctx context.Context, event *AuctionEvent) error
}

type EventSubscriber interface {
	SubscribeToAuctionEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *AuctionEvent) error

type AuctionBroadcaster interface {
	BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	AuctionID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, auctionID string, conn WebSocketConnection) error
	UnregisterConnection(userID, auctionID string, conn WebSocketConnection) error
	GetConnectionsForAuction(auctionID string) []WebSocketConnection
	BroadcastToAuction(auctionID string, message interface{}) error
	CloseAndUnregisterConnections(auctionID string) error
}
