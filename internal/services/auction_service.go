package services

import (
	"context"
	"errors"
	"time"

	"domain-auction/internal/domain"
	"domain-auction/pkg/apperrors"
	"domain-auction/pkg/logger"
	"domain-auction/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	DefaultMaxConflictRetries = 10
	DefaultMaxDurationDays    = 365
)

// AuctionListing is an auction joined with the display names of its seller
// and current bidder.
type AuctionListing struct {
	Auction           *domain.Auction
	SellerName        string
	CurrentBidderName string
}

type BidListing struct {
	Bid        *domain.Bid
	BidderName string
}

type Options struct {
	MaxConflictRetries int
	MaxDurationDays    int
	Now                func() time.Time
}

// AuctionService validates and applies auction actions. It holds no state
// between requests.
type AuctionService struct {
	store           domain.AuctionStore
	profiles        domain.ProfileLookup
	eventPub        domain.EventPublisher
	maxRetries      int
	maxDurationDays int
	now             func() time.Time
	log             logger.Logger
}

func NewAuctionService(
	store domain.AuctionStore,
	profiles domain.ProfileLookup,
	eventPub domain.EventPublisher,
	opts Options,
	log logger.Logger,
) *AuctionService {
	if opts.MaxConflictRetries <= 0 {
		opts.MaxConflictRetries = DefaultMaxConflictRetries
	}
	if opts.MaxDurationDays <= 0 {
		opts.MaxDurationDays = DefaultMaxDurationDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AuctionService{
		store:           store,
		profiles:        profiles,
		eventPub:        eventPub,
		maxRetries:      opts.MaxConflictRetries,
		maxDurationDays: opts.MaxDurationDays,
		now:             opts.Now,
		log:             log,
	}
}

// ListActive returns active auctions, soonest-ending first.
func (s *AuctionService) ListActive(ctx context.Context) ([]*AuctionListing, error) {
	auctions, err := s.store.ListActiveAuctions(ctx)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list auctions")
	}

	ids := make([]string, 0, 2*len(auctions))
	for _, a := range auctions {
		ids = append(ids, a.SellerID)
		if a.CurrentBidderID != "" {
			ids = append(ids, a.CurrentBidderID)
		}
	}
	names := s.displayNames(ctx, ids)

	listings := make([]*AuctionListing, 0, len(auctions))
	for _, a := range auctions {
		listings = append(listings, newListing(a, names))
	}
	return listings, nil
}

func (s *AuctionService) Get(ctx context.Context, auctionID string) (*AuctionListing, error) {
	if auctionID == "" {
		return nil, apperrors.Validation("auctionId is required")
	}
	auction, err := s.loadAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	ids := []string{auction.SellerID}
	if auction.CurrentBidderID != "" {
		ids = append(ids, auction.CurrentBidderID)
	}
	return newListing(auction, s.displayNames(ctx, ids)), nil
}

func (s *AuctionService) BidHistory(ctx context.Context, auctionID string) ([]*BidListing, error) {
	if auctionID == "" {
		return nil, apperrors.Validation("auctionId is required")
	}
	bids, err := s.store.GetBidHistory(ctx, auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return nil, apperrors.NotFound("auction not found")
		}
		return nil, apperrors.Internal(err, "failed to load bid history")
	}

	ids := make([]string, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.BidderID)
	}
	names := s.displayNames(ctx, ids)

	listings := make([]*BidListing, 0, len(bids))
	for _, b := range bids {
		listings = append(listings, &BidListing{Bid: b, BidderName: names[b.BidderID]})
	}
	return listings, nil
}

func (s *AuctionService) CreateAuction(ctx context.Context, callerID string, in CreateAuctionInput) (*domain.Auction, error) {
	if callerID == "" {
		return nil, apperrors.Auth("caller identity could not be established")
	}

	domainName, duration, err := s.validateCreate(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	auction := &domain.Auction{
		ID:          utils.GenerateID(),
		DomainName:  domainName,
		StartingBid: *in.StartingBid,
		CurrentBid:  *in.StartingBid,
		SellerID:    callerID,
		EndTime:     now.Add(duration),
		Status:      domain.AuctionActive,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.ReservePrice != nil {
		auction.ReservePrice = decimal.NewNullDecimal(*in.ReservePrice)
	}

	if err := s.store.CreateAuction(ctx, auction); err != nil {
		return nil, apperrors.Internal(err, "failed to create auction")
	}

	s.log.Info("Auction created", "auction_id", auction.ID, "domain_name", domainName, "seller_id", callerID)
	s.publish(ctx, &domain.AuctionEvent{
		Type:       domain.EventAuctionCreated,
		AuctionID:  auction.ID,
		DomainName: auction.DomainName,
		UserID:     callerID,
		Amount:     auction.CurrentBid,
		Timestamp:  now,
	})
	return auction, nil
}

// PlaceBid accepts a bid when the auction is active, the amount beats the
// current bid and the caller is not the seller. The write is conditional on
// the auction version that was validated; when another bid commits first the
// auction is re-read and the checks run again.
func (s *AuctionService) PlaceBid(ctx context.Context, callerID, auctionID string, amount *decimal.Decimal) (*domain.Auction, *domain.Bid, error) {
	if callerID == "" {
		return nil, nil, apperrors.Auth("caller identity could not be established")
	}
	if auctionID == "" {
		return nil, nil, apperrors.Validation("auctionId is required")
	}
	if amount == nil {
		return nil, nil, apperrors.Validation("bidAmount is required")
	}
	if err := checkMoney("bidAmount", *amount); err != nil {
		return nil, nil, err
	}

	for attempt := 0; ; attempt++ {
		auction, err := s.loadAuction(ctx, auctionID)
		if err != nil {
			return nil, nil, err
		}
		if err := checkBid(auction, callerID, *amount); err != nil {
			return nil, nil, err
		}

		bid := &domain.Bid{
			ID:        utils.GenerateID(),
			AuctionID: auctionID,
			BidderID:  callerID,
			Amount:    *amount,
			CreatedAt: s.now().UTC(),
		}

		err = s.store.PlaceBid(ctx, bid, auction.BidsCount)
		switch {
		case err == nil:
			auction.CurrentBid = bid.Amount
			auction.CurrentBidderID = callerID
			auction.BidsCount++
			auction.UpdatedAt = bid.CreatedAt

			s.log.Info("Bid accepted", "auction_id", auctionID, "user_id", callerID,
				"amount", bid.Amount.String(), "bids_count", auction.BidsCount)
			s.publish(ctx, &domain.AuctionEvent{
				Type:       domain.EventBidAccepted,
				AuctionID:  auctionID,
				DomainName: auction.DomainName,
				UserID:     callerID,
				Amount:     bid.Amount,
				BidsCount:  auction.BidsCount,
				Timestamp:  bid.CreatedAt,
			})
			return auction, bid, nil
		case errors.Is(err, domain.ErrAuctionNotFound):
			return nil, nil, apperrors.NotFound("auction not found")
		case !errors.Is(err, domain.ErrStaleAuction):
			s.log.Error("Failed to place bid", "auction_id", auctionID, "error", err)
			return nil, nil, apperrors.Internal(err, "failed to place bid")
		}

		if attempt >= s.maxRetries {
			s.log.Warn("Bid retries exhausted", "auction_id", auctionID, "attempts", attempt+1)
			return nil, nil, apperrors.Conflict("auction is receiving many bids, please try again")
		}
		s.log.Debug("Bid lost a concurrent update, re-validating", "auction_id", auctionID, "attempt", attempt+1)
	}
}

// EndAuction is the seller's explicit finalisation. It records the current
// bidder as winner and the current bid as final bid.
func (s *AuctionService) EndAuction(ctx context.Context, callerID, auctionID string) (*domain.Auction, error) {
	if callerID == "" {
		return nil, apperrors.Auth("caller identity could not be established")
	}
	if auctionID == "" {
		return nil, apperrors.Validation("auctionId is required")
	}

	auction, err := s.loadAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.SellerID != callerID {
		return nil, apperrors.Forbidden("only the seller can end this auction")
	}
	if !auction.IsActive() {
		return nil, apperrors.InvalidState("auction is not active")
	}

	endedAt := s.now().UTC()
	if err := s.store.EndAuction(ctx, auctionID, endedAt); err != nil {
		if errors.Is(err, domain.ErrStaleAuction) {
			return nil, apperrors.InvalidState("auction is not active")
		}
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return nil, apperrors.NotFound("auction not found")
		}
		s.log.Error("Failed to end auction", "auction_id", auctionID, "error", err)
		return nil, apperrors.Internal(err, "failed to end auction")
	}

	ended, err := s.loadAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Auction ended", "auction_id", auctionID, "winner_id", ended.WinnerID,
		"final_bid", ended.FinalBid.Decimal.String())
	s.publish(ctx, &domain.AuctionEvent{
		Type:       domain.EventAuctionEnded,
		AuctionID:  auctionID,
		DomainName: ended.DomainName,
		UserID:     ended.WinnerID,
		Amount:     ended.FinalBid.Decimal,
		BidsCount:  ended.BidsCount,
		Timestamp:  endedAt,
	})
	return ended, nil
}

func (s *AuctionService) loadAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return nil, apperrors.NotFound("auction not found")
		}
		s.log.Error("Failed to load auction", "auction_id", auctionID, "error", err)
		return nil, apperrors.Internal(err, "failed to load auction")
	}
	return auction, nil
}

// displayNames never fails: names are presentation-only.
func (s *AuctionService) displayNames(ctx context.Context, userIDs []string) map[string]string {
	if s.profiles == nil || len(userIDs) == 0 {
		return map[string]string{}
	}
	names, err := s.profiles.DisplayNames(ctx, dedupe(userIDs))
	if err != nil {
		s.log.Warn("Failed to resolve display names", "error", err)
		return map[string]string{}
	}
	return names
}

func (s *AuctionService) publish(ctx context.Context, event *domain.AuctionEvent) {
	if s.eventPub == nil {
		return
	}
	if err := s.eventPub.PublishAuctionEvent(ctx, event); err != nil {
		s.log.Warn("Failed to publish auction event", "type", event.Type, "auction_id", event.AuctionID, "error", err)
	}
}

func newListing(a *domain.Auction, names map[string]string) *AuctionListing {
	return &AuctionListing{
		Auction:           a,
		SellerName:        names[a.SellerID],
		CurrentBidderName: names[a.CurrentBidderID],
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
