package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"domain-auction/internal/domain"
)

// Store is a concurrency-safe in-memory AuctionStore and ProfileLookup.
// One mutex covers auctions and bids, so a bid's auction update and bid
// append are applied together.
type Store struct {
	mu       sync.RWMutex
	auctions map[string]*domain.Auction
	bids     map[string][]*domain.Bid // key: auctionID -> bids in insertion order
	profiles map[string]string        // key: userID -> display name
}

func NewStore() *Store {
	return &Store{
		auctions: make(map[string]*domain.Auction),
		bids:     make(map[string][]*domain.Bid),
		profiles: make(map[string]string),
	}
}

func (s *Store) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.auctions[auction.ID]; exists {
		return fmt.Errorf("create auction %s: duplicate id", auction.ID)
	}
	s.auctions[auction.ID] = auction.Clone()
	return nil
}

func (s *Store) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("get auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	return auction.Clone(), nil
}

func (s *Store) ListActiveAuctions(ctx context.Context) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auctions := make([]*domain.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		if a.IsActive() {
			auctions = append(auctions, a.Clone())
		}
	}
	sort.SliceStable(auctions, func(i, j int) bool {
		if auctions[i].EndTime.Equal(auctions[j].EndTime) {
			return auctions[i].ID < auctions[j].ID
		}
		return auctions[i].EndTime.Before(auctions[j].EndTime)
	})
	return auctions, nil
}

func (s *Store) PlaceBid(ctx context.Context, bid *domain.Bid, expectedBidsCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[bid.AuctionID]
	if !ok {
		return fmt.Errorf("place bid on %s: %w", bid.AuctionID, domain.ErrAuctionNotFound)
	}
	if !auction.IsActive() || auction.BidsCount != expectedBidsCount {
		return fmt.Errorf("place bid on %s: %w", bid.AuctionID, domain.ErrStaleAuction)
	}

	auction.CurrentBid = bid.Amount
	auction.CurrentBidderID = bid.BidderID
	auction.BidsCount++
	auction.UpdatedAt = bid.CreatedAt

	stored := *bid
	s.bids[bid.AuctionID] = append(s.bids[bid.AuctionID], &stored)
	return nil
}

func (s *Store) EndAuction(ctx context.Context, auctionID string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return fmt.Errorf("end auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	if !auction.IsActive() {
		return fmt.Errorf("end auction %s: %w", auctionID, domain.ErrStaleAuction)
	}

	auction.Status = domain.AuctionEnded
	auction.WinnerID = auction.CurrentBidderID
	auction.FinalBid.Decimal = auction.CurrentBid
	auction.FinalBid.Valid = true
	ended := endedAt
	auction.EndedAt = &ended
	auction.UpdatedAt = endedAt
	return nil
}

func (s *Store) GetBidHistory(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}

	bids := make([]*domain.Bid, 0, len(s.bids[auctionID]))
	for _, b := range s.bids[auctionID] {
		c := *b
		bids = append(bids, &c)
	}
	return bids, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if name, ok := s.profiles[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}

// SetProfile registers a display name. Used for local development and tests.
func (s *Store) SetProfile(userID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = displayName
}
