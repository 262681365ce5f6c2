package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuctionStatus string

const (
	AuctionActive AuctionStatus = "active"
	AuctionEnded  AuctionStatus = "ended"
)

func (s AuctionStatus) String() string {
	return string(s)
}

func (s AuctionStatus) Valid() bool {
	return s == AuctionActive || s == AuctionEnded
}

// Auction is a domain-name listing. CurrentBidderID and WinnerID are empty
// when unset.
type Auction struct {
	ID              string
	DomainName      string
	StartingBid     decimal.Decimal
	CurrentBid      decimal.Decimal
	CurrentBidderID string
	BidsCount       int
	SellerID        string
	EndTime         time.Time
	Status          AuctionStatus
	ReservePrice    decimal.NullDecimal
	Description     string
	WinnerID        string
	FinalBid        decimal.NullDecimal
	EndedAt         *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a *Auction) IsActive() bool {
	return a.Status == AuctionActive
}

// ReserveMet is display-only; a sale below reserve is not prevented.
func (a *Auction) ReserveMet() bool {
	if !a.ReservePrice.Valid {
		return true
	}
	return a.CurrentBid.GreaterThanOrEqual(a.ReservePrice.Decimal)
}

func (a *Auction) Clone() *Auction {
	c := *a
	if a.EndedAt != nil {
		t := *a.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// Bid is an accepted offer. Bids are append-only.
type Bid struct {
	ID        string
	AuctionID string
	BidderID  string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

type AuctionEventType string

const (
	EventAuctionCreated AuctionEventType = "auction_created"
	EventBidAccepted    AuctionEventType = "bid_accepted"
	EventAuctionEnded   AuctionEventType = "auction_ended"
	EventAuctionOverdue AuctionEventType = "auction_overdue"
)

// AuctionEvent is published after a committed state change. UserID is the
// actor (seller for created/ended/overdue, bidder for bid_accepted).
type AuctionEvent struct {
	Type       AuctionEventType `json:"type"`
	AuctionID  string           `json:"auction_id"`
	DomainName string           `json:"domain_name"`
	UserID     string           `json:"user_id,omitempty"`
	Amount     decimal.Decimal  `json:"amount"`
	BidsCount  int              `json:"bids_count"`
	Timestamp  time.Time        `json:"timestamp"`
}
