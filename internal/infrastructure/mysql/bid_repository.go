package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"domain-auction/internal/domain"
)

func insertBid(ctx context.Context, tx *sql.Tx, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := tx.ExecContext(ctx, query,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bid %s: %w", bid.ID, err)
	}
	return nil
}

// GetBidHistory returns the accepted bids of an auction, oldest first.
func (r *MySQLAuctionRepository) GetBidHistory(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM auctions WHERE id = ?`, auctionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}

	query := `
        SELECT id, auction_id, bidder_id, amount, created_at
        FROM bids
        WHERE auction_id = ?
        ORDER BY created_at ASC, amount ASC
    `

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		if err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.Amount, &bid.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, &bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}
