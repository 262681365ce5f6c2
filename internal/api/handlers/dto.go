package handlers

import (
	"time"

	"domain-auction/internal/services"

	"github.com/shopspring/decimal"
)

// ActionRequest is the body of the uniform action endpoint. Numbers may be
// sent as JSON numbers or numeric strings.
type ActionRequest struct {
	Action       string           `json:"action"`
	DomainName   string           `json:"domainName"`
	StartingBid  *decimal.Decimal `json:"startingBid"`
	DurationDays *decimal.Decimal `json:"durationDays"`
	ReservePrice *decimal.Decimal `json:"reservePrice"`
	Description  string           `json:"description"`
	AuctionID    string           `json:"auctionId"`
	BidAmount    *decimal.Decimal `json:"bidAmount"`
}

func (r ActionRequest) createInput() services.CreateAuctionInput {
	return services.CreateAuctionInput{
		DomainName:   r.DomainName,
		StartingBid:  r.StartingBid,
		DurationDays: r.DurationDays,
		ReservePrice: r.ReservePrice,
		Description:  r.Description,
	}
}

type AuctionResponse struct {
	ID                string           `json:"id"`
	DomainName        string           `json:"domain_name"`
	StartingBid       decimal.Decimal  `json:"starting_bid"`
	CurrentBid        decimal.Decimal  `json:"current_bid"`
	CurrentBidderID   string           `json:"current_bidder_id,omitempty"`
	CurrentBidderName string           `json:"current_bidder_name,omitempty"`
	BidsCount         int              `json:"bids_count"`
	SellerID          string           `json:"seller_id"`
	SellerName        string           `json:"seller_name,omitempty"`
	EndTime           time.Time        `json:"end_time"`
	Status            string           `json:"status"`
	ReservePrice      *decimal.Decimal `json:"reserve_price,omitempty"`
	ReserveMet        bool             `json:"reserve_met"`
	Description       string           `json:"description,omitempty"`
	WinnerID          string           `json:"winner_id,omitempty"`
	FinalBid          *decimal.Decimal `json:"final_bid,omitempty"`
	EndedAt           *time.Time       `json:"ended_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type BidResponse struct {
	ID         string          `json:"id"`
	AuctionID  string          `json:"auction_id"`
	BidderID   string          `json:"bidder_id"`
	BidderName string          `json:"bidder_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toAuctionResponse(l *services.AuctionListing) AuctionResponse {
	a := l.Auction
	resp := AuctionResponse{
		ID:                a.ID,
		DomainName:        a.DomainName,
		StartingBid:       a.StartingBid,
		CurrentBid:        a.CurrentBid,
		CurrentBidderID:   a.CurrentBidderID,
		CurrentBidderName: l.CurrentBidderName,
		BidsCount:         a.BidsCount,
		SellerID:          a.SellerID,
		SellerName:        l.SellerName,
		EndTime:           a.EndTime,
		Status:            a.Status.String(),
		ReserveMet:        a.ReserveMet(),
		Description:       a.Description,
		WinnerID:          a.WinnerID,
		EndedAt:           a.EndedAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	if a.ReservePrice.Valid {
		reserve := a.ReservePrice.Decimal
		resp.ReservePrice = &reserve
	}
	if a.FinalBid.Valid {
		final := a.FinalBid.Decimal
		resp.FinalBid = &final
	}
	return resp
}

func toBidResponse(l *services.BidListing) BidResponse {
	return BidResponse{
		ID:         l.Bid.ID,
		AuctionID:  l.Bid.AuctionID,
		BidderID:   l.Bid.BidderID,
		BidderName: l.BidderName,
		Amount:     l.Bid.Amount,
		CreatedAt:  l.Bid.CreatedAt,
	}
}
