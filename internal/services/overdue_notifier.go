package services

import (
	"context"
	"time"

	"domain-auction/internal/domain"
	"domain-auction/pkg/logger"

	"github.com/robfig/cron/v3"
)

// OverdueMarker deduplicates reminders across runs and instances.
type OverdueMarker interface {
	MarkOnce(ctx context.Context, auctionID string) (bool, error)
}

// OverdueNotifier periodically publishes auction_overdue for active auctions
// past their end time so sellers are prompted to end them. It never changes
// auction state; ending stays an explicit seller action.
type OverdueNotifier struct {
	cron       *cron.Cron
	schedule   string
	store      domain.AuctionStore
	leader     domain.LeaderElection
	instanceID string
	marker     OverdueMarker
	eventPub   domain.EventPublisher
	now        func() time.Time
	log        logger.Logger
}

func NewOverdueNotifier(
	schedule string,
	store domain.AuctionStore,
	leader domain.LeaderElection,
	instanceID string,
	marker OverdueMarker,
	eventPub domain.EventPublisher,
	log logger.Logger,
) *OverdueNotifier {
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &OverdueNotifier{
		cron:       cron.New(cron.WithSeconds()),
		schedule:   schedule,
		store:      store,
		leader:     leader,
		instanceID: instanceID,
		marker:     marker,
		eventPub:   eventPub,
		now:        time.Now,
		log:        log,
	}
}

func (n *OverdueNotifier) Start(ctx context.Context) error {
	n.log.Info("Starting overdue notifier", "schedule", n.schedule)

	_, err := n.cron.AddFunc(n.schedule, func() {
		if _, err := n.RunOnce(ctx); err != nil {
			n.log.Error("Overdue check failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	n.cron.Start()
	return nil
}

// Stop waits for a running check to finish.
func (n *OverdueNotifier) Stop() error {
	n.log.Info("Stopping overdue notifier")
	<-n.cron.Stop().Done()
	return nil
}

// RunOnce publishes one reminder per overdue auction and returns how many it
// sent. Only the leader instance does any work.
func (n *OverdueNotifier) RunOnce(ctx context.Context) (int, error) {
	if n.leader != nil {
		isLeader, err := n.leader.IsLeader(ctx, n.instanceID)
		if err != nil {
			return 0, err
		}
		if !isLeader {
			return 0, nil
		}
	}

	auctions, err := n.store.ListActiveAuctions(ctx)
	if err != nil {
		return 0, err
	}

	now := n.now().UTC()
	sent := 0
	for _, auction := range auctions {
		// Sorted by end time: the rest are not due yet.
		if !auction.EndTime.Before(now) {
			break
		}

		if n.marker != nil {
			first, err := n.marker.MarkOnce(ctx, auction.ID)
			if err != nil {
				n.log.Warn("Failed to mark overdue auction", "auction_id", auction.ID, "error", err)
				continue
			}
			if !first {
				continue
			}
		}

		err := n.eventPub.PublishAuctionEvent(ctx, &domain.AuctionEvent{
			Type:       domain.EventAuctionOverdue,
			AuctionID:  auction.ID,
			DomainName: auction.DomainName,
			UserID:     auction.SellerID,
			Amount:     auction.CurrentBid,
			BidsCount:  auction.BidsCount,
			Timestamp:  now,
		})
		if err != nil {
			n.log.Warn("Failed to publish overdue reminder", "auction_id", auction.ID, "error", err)
			continue
		}
		sent++
	}

	if sent > 0 {
		n.log.Info("Published overdue reminders", "count", sent)
	}
	return sent, nil
}
