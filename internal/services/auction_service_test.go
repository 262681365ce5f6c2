package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"domain-auction/internal/domain"
	"domain-auction/internal/domain/mocks"
	"domain-auction/internal/infrastructure/memory"
	"domain-auction/pkg/apperrors"
	"domain-auction/pkg/logger"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.AuctionEvent
}

func (p *recordingPublisher) PublishAuctionEvent(ctx context.Context, event *domain.AuctionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.AuctionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AuctionEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func decStr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func newMemoryService(t *testing.T) (*AuctionService, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	svc := NewAuctionService(store, store, pub, Options{Now: func() time.Time { return fixedNow }}, logger.NewNop())
	return svc, store, pub
}

func requireKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperrors.KindOf(err), "unexpected error: %v", err)
}

func TestAuctionService_CreateAuction(t *testing.T) {
	svc, store, pub := newMemoryService(t)
	ctx := context.Background()

	reserve := dec(900)
	auction, err := svc.CreateAuction(ctx, "seller-1", CreateAuctionInput{
		DomainName:   "  Example.COM ",
		StartingBid:  dec(500),
		DurationDays: dec(7),
		ReservePrice: reserve,
		Description:  "short and brandable",
	})
	require.NoError(t, err)

	_, parseErr := uuid.Parse(auction.ID)
	require.NoError(t, parseErr)
	require.Equal(t, "example.com", auction.DomainName)
	require.True(t, auction.CurrentBid.Equal(auction.StartingBid))
	require.Equal(t, 0, auction.BidsCount)
	require.Equal(t, domain.AuctionActive, auction.Status)
	require.Equal(t, "seller-1", auction.SellerID)
	require.Equal(t, fixedNow.Add(7*24*time.Hour), auction.EndTime)
	require.True(t, auction.ReservePrice.Valid)
	require.False(t, auction.ReserveMet())

	stored, err := store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, auction.DomainName, stored.DomainName)
	require.Equal(t, []domain.AuctionEventType{domain.EventAuctionCreated}, pub.types())
}

func TestAuctionService_CreateAuctionFractionalDuration(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	half := decimal.RequireFromString("0.5")

	auction, err := svc.CreateAuction(context.Background(), "seller-1", CreateAuctionInput{
		DomainName:   "half.io",
		StartingBid:  dec(0),
		DurationDays: &half,
	})
	require.NoError(t, err)
	require.Equal(t, fixedNow.Add(12*time.Hour), auction.EndTime)
	require.True(t, auction.ReserveMet())
}

func TestAuctionService_CreateAuctionValidation(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller string
		input  CreateAuctionInput
		kind   apperrors.Kind
	}{
		{name: "missing_caller", caller: "", input: CreateAuctionInput{DomainName: "a.com", StartingBid: dec(1), DurationDays: dec(1)}, kind: apperrors.KindAuth},
		{name: "empty_domain", caller: "s", input: CreateAuctionInput{DomainName: "   ", StartingBid: dec(1), DurationDays: dec(1)}, kind: apperrors.KindValidation},
		{name: "domain_with_space", caller: "s", input: CreateAuctionInput{DomainName: "a b.com", StartingBid: dec(1), DurationDays: dec(1)}, kind: apperrors.KindValidation},
		{name: "missing_starting_bid", caller: "s", input: CreateAuctionInput{DomainName: "a.com", DurationDays: dec(1)}, kind: apperrors.KindValidation},
		{name: "negative_starting_bid", caller: "s", input: CreateAuctionInput{DomainName: "a.com", StartingBid: dec(-1), DurationDays: dec(1)}, kind: apperrors.KindValidation},
		{name: "missing_duration", caller: "s", input: CreateAuctionInput{DomainName: "a.com", StartingBid: dec(1)}, kind: apperrors.KindValidation},
		{name: "zero_duration", caller: "s", input: CreateAuctionInput{DomainName: "a.com", StartingBid: dec(1), DurationDays: dec(0)}, kind: apperrors.KindValidation},
		{name: "too_long_duration", caller: "s", input: CreateAuctionInput{DomainName: "a.com", StartingBid: dec(1), DurationDays: dec(10000)}, kind: apperrors.KindValidation},
		{name: "negative_reserve", caller: "s", input: CreateAuctionInput{DomainName: "a.com", StartingBid: dec(1), DurationDays: dec(1), ReservePrice: dec(-5)}, kind: apperrors.KindValidation},
		{name: "sub_cent_starting_bid", caller: "s", input: CreateAuctionInput{DomainName: "a.com", StartingBid: decStr("10.005"), DurationDays: dec(1)}, kind: apperrors.KindValidation},
		{name: "oversize_starting_bid", caller: "s", input: CreateAuctionInput{DomainName: "a.com", StartingBid: decStr("1e20"), DurationDays: dec(1)}, kind: apperrors.KindValidation},
		{name: "sub_cent_reserve", caller: "s", input: CreateAuctionInput{DomainName: "a.com", StartingBid: dec(1), DurationDays: dec(1), ReservePrice: decStr("9.999")}, kind: apperrors.KindValidation},
		{name: "oversize_reserve", caller: "s", input: CreateAuctionInput{DomainName: "a.com", StartingBid: dec(1), DurationDays: dec(1), ReservePrice: decStr("10000000000000000")}, kind: apperrors.KindValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateAuction(ctx, tc.caller, tc.input)
			requireKind(t, err, tc.kind)
		})
	}
}

func TestAuctionService_Scenario(t *testing.T) {
	svc, store, pub := newMemoryService(t)
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{
		DomainName:   "example.com",
		StartingBid:  dec(500),
		DurationDays: dec(7),
	})
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(500).Equal(auction.CurrentBid))
	require.Equal(t, domain.AuctionActive, auction.Status)

	updated, bid, err := svc.PlaceBid(ctx, "bidder-1", auction.ID, dec(600))
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(600).Equal(updated.CurrentBid))
	require.Equal(t, 1, updated.BidsCount)
	require.Equal(t, "bidder-1", bid.BidderID)
	require.True(t, decimal.NewFromInt(600).Equal(bid.Amount))

	_, _, err = svc.PlaceBid(ctx, "bidder-2", auction.ID, dec(550))
	requireKind(t, err, apperrors.KindValidation)
	require.Equal(t, "bid must exceed current bid", apperrors.PublicMessage(err))

	ended, err := svc.EndAuction(ctx, "seller", auction.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AuctionEnded, ended.Status)
	require.Equal(t, "bidder-1", ended.WinnerID)
	require.True(t, ended.FinalBid.Valid)
	require.True(t, decimal.NewFromInt(600).Equal(ended.FinalBid.Decimal))
	require.NotNil(t, ended.EndedAt)

	history, err := store.GetBidHistory(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.Equal(t, []domain.AuctionEventType{
		domain.EventAuctionCreated,
		domain.EventBidAccepted,
		domain.EventAuctionEnded,
	}, pub.types())
}

func TestAuctionService_PlaceBidPreconditions(t *testing.T) {
	svc, store, _ := newMemoryService(t)
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{
		DomainName:   "rules.net",
		StartingBid:  dec(100),
		DurationDays: dec(3),
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		caller    string
		auctionID string
		amount    *decimal.Decimal
		kind      apperrors.Kind
		message   string
	}{
		{name: "no_caller", caller: "", auctionID: auction.ID, amount: dec(200), kind: apperrors.KindAuth},
		{name: "missing_auction_id", caller: "b", auctionID: "", amount: dec(200), kind: apperrors.KindValidation},
		{name: "missing_amount", caller: "b", auctionID: auction.ID, amount: nil, kind: apperrors.KindValidation},
		{name: "unknown_auction", caller: "b", auctionID: "nope", amount: dec(200), kind: apperrors.KindNotFound},
		{name: "equal_to_current", caller: "b", auctionID: auction.ID, amount: dec(100), kind: apperrors.KindValidation, message: "bid must exceed current bid"},
		{name: "below_current", caller: "b", auctionID: auction.ID, amount: dec(50), kind: apperrors.KindValidation, message: "bid must exceed current bid"},
		{name: "seller_bids", caller: "seller", auctionID: auction.ID, amount: dec(200), kind: apperrors.KindForbidden, message: "seller cannot bid on own auction"},
		{name: "sub_cent_above_current", caller: "b", auctionID: auction.ID, amount: decStr("100.004"), kind: apperrors.KindValidation, message: "bidAmount must have at most 2 decimal places"},
		{name: "oversize_amount", caller: "b", auctionID: auction.ID, amount: decStr("1e16"), kind: apperrors.KindValidation, message: "bidAmount is too large"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.PlaceBid(ctx, tc.caller, tc.auctionID, tc.amount)
			requireKind(t, err, tc.kind)
			if tc.message != "" {
				require.Equal(t, tc.message, apperrors.PublicMessage(err))
			}
		})
	}

	// None of the rejected bids mutated state.
	after, err := store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(100).Equal(after.CurrentBid))
	require.Equal(t, 0, after.BidsCount)
	history, err := store.GetBidHistory(ctx, auction.ID)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestAuctionService_MoneyAtColumnPrecision(t *testing.T) {
	svc, store, _ := newMemoryService(t)
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{
		DomainName:   "cents.io",
		StartingBid:  decStr("500.00"),
		DurationDays: dec(1),
		ReservePrice: decStr("9999999999999999.99"),
	})
	require.NoError(t, err)

	_, _, err = svc.PlaceBid(ctx, "bidder", auction.ID, decStr("500.004"))
	requireKind(t, err, apperrors.KindValidation)

	updated, _, err := svc.PlaceBid(ctx, "bidder", auction.ID, decStr("500.01"))
	require.NoError(t, err)
	require.Equal(t, "500.01", updated.CurrentBid.StringFixed(2))

	stored, err := store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.True(t, updated.CurrentBid.Equal(stored.CurrentBid))
	require.Equal(t, 1, stored.BidsCount)
}

func TestAuctionService_LowBidCheckedBeforeSellerCheck(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{DomainName: "order.dev", StartingBid: dec(100), DurationDays: dec(1)})
	require.NoError(t, err)

	_, _, err = svc.PlaceBid(ctx, "seller", auction.ID, dec(10))
	requireKind(t, err, apperrors.KindValidation)
}

func TestAuctionService_EndedAuctionRejectsBidsAndSecondEnd(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{DomainName: "closed.org", StartingBid: dec(10), DurationDays: dec(1)})
	require.NoError(t, err)

	ended, err := svc.EndAuction(ctx, "seller", auction.ID)
	require.NoError(t, err)
	require.Equal(t, "", ended.WinnerID)
	require.True(t, decimal.NewFromInt(10).Equal(ended.FinalBid.Decimal))

	_, _, err = svc.PlaceBid(ctx, "bidder", auction.ID, dec(1000))
	requireKind(t, err, apperrors.KindInvalidState)
	require.Equal(t, "auction is not active", apperrors.PublicMessage(err))

	_, err = svc.EndAuction(ctx, "seller", auction.ID)
	requireKind(t, err, apperrors.KindInvalidState)
}

func TestAuctionService_EndAuctionPermissions(t *testing.T) {
	svc, _, _ := newMemoryService(t)
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{DomainName: "mine.com", StartingBid: dec(10), DurationDays: dec(1)})
	require.NoError(t, err)

	_, err = svc.EndAuction(ctx, "someone-else", auction.ID)
	requireKind(t, err, apperrors.KindForbidden)

	_, err = svc.EndAuction(ctx, "seller", "missing")
	requireKind(t, err, apperrors.KindNotFound)

	_, err = svc.EndAuction(ctx, "", auction.ID)
	requireKind(t, err, apperrors.KindAuth)
}

func TestAuctionService_ListActiveWithDisplayNames(t *testing.T) {
	store := memory.NewStore()
	clock := fixedNow
	svc := NewAuctionService(store, store, nil, Options{Now: func() time.Time { return clock }}, logger.NewNop())
	ctx := context.Background()
	store.SetProfile("seller", "Sam Seller")
	store.SetProfile("bidder", "Bea Bidder")

	long, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{DomainName: "long.com", StartingBid: dec(1), DurationDays: dec(10)})
	require.NoError(t, err)
	short, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{DomainName: "short.com", StartingBid: dec(1), DurationDays: dec(2)})
	require.NoError(t, err)
	gone, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{DomainName: "gone.com", StartingBid: dec(1), DurationDays: dec(1)})
	require.NoError(t, err)

	_, _, err = svc.PlaceBid(ctx, "bidder", long.ID, dec(5))
	require.NoError(t, err)
	_, err = svc.EndAuction(ctx, "seller", gone.ID)
	require.NoError(t, err)

	listings, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	require.Equal(t, short.ID, listings[0].Auction.ID)
	require.Equal(t, long.ID, listings[1].Auction.ID)
	require.Equal(t, "Sam Seller", listings[0].SellerName)
	require.Equal(t, "", listings[0].CurrentBidderName)
	require.Equal(t, "Bea Bidder", listings[1].CurrentBidderName)
}

func TestAuctionService_ListActiveToleratesProfileFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockAuctionStore(ctrl)
	mockProfiles := mocks.NewMockProfileLookup(ctrl)
	svc := NewAuctionService(mockStore, mockProfiles, nil, Options{}, logger.NewNop())

	mockStore.EXPECT().ListActiveAuctions(gomock.Any()).Return([]*domain.Auction{
		{ID: "a1", SellerID: "s1", Status: domain.AuctionActive},
	}, nil)
	mockProfiles.EXPECT().DisplayNames(gomock.Any(), []string{"s1"}).Return(nil, errors.New("profiles offline"))

	listings, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, "", listings[0].SellerName)
}

func TestAuctionService_StoreFailuresAreInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockAuctionStore(ctrl)
	svc := NewAuctionService(mockStore, nil, nil, Options{}, logger.NewNop())
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	mockStore.EXPECT().ListActiveAuctions(gomock.Any()).Return(nil, dbErr)
	_, err := svc.ListActive(ctx)
	requireKind(t, err, apperrors.KindInternal)
	require.Equal(t, apperrors.GenericMessage, apperrors.PublicMessage(err))

	mockStore.EXPECT().CreateAuction(gomock.Any(), gomock.Any()).Return(dbErr)
	_, err = svc.CreateAuction(ctx, "s", CreateAuctionInput{DomainName: "x.com", StartingBid: dec(1), DurationDays: dec(1)})
	requireKind(t, err, apperrors.KindInternal)

	mockStore.EXPECT().GetAuction(gomock.Any(), "a1").Return(nil, dbErr)
	_, _, err = svc.PlaceBid(ctx, "b", "a1", dec(10))
	requireKind(t, err, apperrors.KindInternal)

	mockStore.EXPECT().GetAuction(gomock.Any(), "a1").Return(&domain.Auction{
		ID: "a1", SellerID: "s", Status: domain.AuctionActive, CurrentBid: decimal.NewFromInt(1),
	}, nil)
	mockStore.EXPECT().PlaceBid(gomock.Any(), gomock.Any(), 0).Return(dbErr)
	_, _, err = svc.PlaceBid(ctx, "b", "a1", dec(10))
	requireKind(t, err, apperrors.KindInternal)
}

func TestAuctionService_PlaceBidRetriesAfterStaleWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockAuctionStore(ctrl)
	mockPub := mocks.NewMockEventPublisher(ctrl)
	svc := NewAuctionService(mockStore, nil, mockPub, Options{}, logger.NewNop())
	ctx := context.Background()

	first := &domain.Auction{ID: "a1", SellerID: "s", Status: domain.AuctionActive, CurrentBid: decimal.NewFromInt(100)}
	second := &domain.Auction{ID: "a1", SellerID: "s", Status: domain.AuctionActive, CurrentBid: decimal.NewFromInt(150), BidsCount: 1, CurrentBidderID: "other"}

	gomock.InOrder(
		mockStore.EXPECT().GetAuction(gomock.Any(), "a1").Return(first, nil),
		mockStore.EXPECT().PlaceBid(gomock.Any(), gomock.Any(), 0).Return(fmt.Errorf("update: %w", domain.ErrStaleAuction)),
		mockStore.EXPECT().GetAuction(gomock.Any(), "a1").Return(second, nil),
		mockStore.EXPECT().PlaceBid(gomock.Any(), gomock.Any(), 1).Return(nil),
	)
	mockPub.EXPECT().PublishAuctionEvent(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	auction, bid, err := svc.PlaceBid(ctx, "me", "a1", dec(200))
	require.NoError(t, err)
	require.Equal(t, 2, auction.BidsCount)
	require.Equal(t, "me", auction.CurrentBidderID)
	require.True(t, decimal.NewFromInt(200).Equal(bid.Amount))
}

func TestAuctionService_PlaceBidStaleThenOutbid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockAuctionStore(ctrl)
	svc := NewAuctionService(mockStore, nil, nil, Options{}, logger.NewNop())

	gomock.InOrder(
		mockStore.EXPECT().GetAuction(gomock.Any(), "a1").Return(&domain.Auction{ID: "a1", SellerID: "s", Status: domain.AuctionActive, CurrentBid: decimal.NewFromInt(100)}, nil),
		mockStore.EXPECT().PlaceBid(gomock.Any(), gomock.Any(), 0).Return(domain.ErrStaleAuction),
		mockStore.EXPECT().GetAuction(gomock.Any(), "a1").Return(&domain.Auction{ID: "a1", SellerID: "s", Status: domain.AuctionActive, CurrentBid: decimal.NewFromInt(300), BidsCount: 1}, nil),
	)

	_, _, err := svc.PlaceBid(context.Background(), "me", "a1", dec(200))
	requireKind(t, err, apperrors.KindValidation)
}

func TestAuctionService_PlaceBidRetriesExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockAuctionStore(ctrl)
	svc := NewAuctionService(mockStore, nil, nil, Options{MaxConflictRetries: 2}, logger.NewNop())

	mockStore.EXPECT().GetAuction(gomock.Any(), "a1").Return(&domain.Auction{
		ID: "a1", SellerID: "s", Status: domain.AuctionActive, CurrentBid: decimal.NewFromInt(1),
	}, nil).Times(3)
	mockStore.EXPECT().PlaceBid(gomock.Any(), gomock.Any(), 0).Return(domain.ErrStaleAuction).Times(3)

	_, _, err := svc.PlaceBid(context.Background(), "me", "a1", dec(5))
	requireKind(t, err, apperrors.KindConflict)
}

func TestAuctionService_EndAuctionLosesRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockAuctionStore(ctrl)
	svc := NewAuctionService(mockStore, nil, nil, Options{}, logger.NewNop())

	mockStore.EXPECT().GetAuction(gomock.Any(), "a1").Return(&domain.Auction{ID: "a1", SellerID: "s", Status: domain.AuctionActive}, nil)
	mockStore.EXPECT().EndAuction(gomock.Any(), "a1", gomock.Any()).Return(domain.ErrStaleAuction)

	_, err := svc.EndAuction(context.Background(), "s", "a1")
	requireKind(t, err, apperrors.KindInvalidState)
}

func TestAuctionService_BidHistory(t *testing.T) {
	svc, store, _ := newMemoryService(t)
	ctx := context.Background()
	store.SetProfile("b1", "First")

	auction, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{DomainName: "hist.com", StartingBid: dec(1), DurationDays: dec(1)})
	require.NoError(t, err)
	_, _, err = svc.PlaceBid(ctx, "b1", auction.ID, dec(2))
	require.NoError(t, err)
	_, _, err = svc.PlaceBid(ctx, "b2", auction.ID, dec(3))
	require.NoError(t, err)

	history, err := svc.BidHistory(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "First", history[0].BidderName)
	require.Equal(t, "b2", history[1].Bid.BidderID)

	_, err = svc.BidHistory(ctx, "missing")
	requireKind(t, err, apperrors.KindNotFound)

	got, err := svc.Get(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Auction.BidsCount)
}

func TestAuctionService_ConcurrentBidsHighestWins(t *testing.T) {
	for i := 0; i < 50; i++ {
		svc, store, _ := newMemoryService(t)
		ctx := context.Background()

		auction, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{DomainName: "race.com", StartingBid: dec(500), DurationDays: dec(1)})
		require.NoError(t, err)

		var wg sync.WaitGroup
		var errA, errB error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, errA = svc.PlaceBid(ctx, "bidder-a", auction.ID, dec(600))
		}()
		go func() {
			defer wg.Done()
			_, _, errB = svc.PlaceBid(ctx, "bidder-b", auction.ID, dec(700))
		}()
		wg.Wait()

		require.NoError(t, errB)
		accepted := 1
		if errA == nil {
			accepted++
		} else {
			requireKind(t, errA, apperrors.KindValidation)
		}

		final, err := store.GetAuction(ctx, auction.ID)
		require.NoError(t, err)
		require.True(t, decimal.NewFromInt(700).Equal(final.CurrentBid))
		require.Equal(t, "bidder-b", final.CurrentBidderID)
		require.Equal(t, accepted, final.BidsCount)

		history, err := store.GetBidHistory(ctx, auction.ID)
		require.NoError(t, err)
		require.Len(t, history, accepted)
	}
}

func TestAuctionService_ManyConcurrentBidders(t *testing.T) {
	svc, store, _ := newMemoryService(t)
	ctx := context.Background()

	auction, err := svc.CreateAuction(ctx, "seller", CreateAuctionInput{DomainName: "crowd.com", StartingBid: dec(100), DurationDays: dec(1)})
	require.NoError(t, err)

	const bidders = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 1; i <= bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.PlaceBid(ctx, fmt.Sprintf("bidder-%d", i), auction.ID, dec(int64(100+i)))
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			kind := apperrors.KindOf(err)
			if kind != apperrors.KindValidation {
				t.Errorf("unexpected error kind %s: %v", kind, err)
			}
		}(i)
	}
	wg.Wait()

	final, err := store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(100+bidders).Equal(final.CurrentBid))
	require.Equal(t, accepted, final.BidsCount)

	history, err := store.GetBidHistory(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, history, accepted)
	for i := 1; i < len(history); i++ {
		require.True(t, history[i].Amount.GreaterThan(history[i-1].Amount))
	}
}
