package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"domain-auction/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const auctionColumns = `id, domain_name, starting_bid, current_bid, current_bidder_id, bids_count,
        seller_id, end_time, status, reserve_price, description, winner_id, final_bid,
        ended_at, created_at, updated_at`

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

var _ DB = (*pgxpool.Pool)(nil)

// PostgresAuctionRepository implements domain.AuctionStore with pgx.
type PostgresAuctionRepository struct {
	db DB
}

func NewPostgresAuctionRepository(db DB) *PostgresAuctionRepository {
	return &PostgresAuctionRepository{db: db}
}

func (r *PostgresAuctionRepository) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    `
	_, err := r.db.Exec(ctx, query,
		auction.ID, auction.DomainName, auction.StartingBid, auction.CurrentBid,
		optional(auction.CurrentBidderID), auction.BidsCount, auction.SellerID,
		auction.EndTime, string(auction.Status), auction.ReservePrice,
		optional(auction.Description), optional(auction.WinnerID), auction.FinalBid,
		auction.EndedAt, auction.CreatedAt, auction.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert auction %s: %w", auction.ID, err)
	}
	return nil
}

func (r *PostgresAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	auction, err := scanAuction(r.db.QueryRow(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get auction %s: %w", auctionID, domain.ErrAuctionNotFound)
		}
		return nil, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

func (r *PostgresAuctionRepository) ListActiveAuctions(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT ` + auctionColumns + `
        FROM auctions WHERE status = $1
        ORDER BY end_time ASC, id ASC
    `

	rows, err := r.db.Query(ctx, query, string(domain.AuctionActive))
	if err != nil {
		return nil, fmt.Errorf("list active auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction: %w", err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active auctions: %w", err)
	}
	return auctions, nil
}

func (r *PostgresAuctionRepository) PlaceBid(ctx context.Context, bid *domain.Bid, expectedBidsCount int) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE auctions
            SET current_bid = $1, current_bidder_id = $2, bids_count = bids_count + 1, updated_at = $3
            WHERE id = $4 AND status = $5 AND bids_count = $6
        `, bid.Amount, bid.BidderID, bid.CreatedAt, bid.AuctionID, string(domain.AuctionActive), expectedBidsCount)
		if err != nil {
			return fmt.Errorf("update auction %s: %w", bid.AuctionID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update auction %s: %w", bid.AuctionID, domain.ErrStaleAuction)
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO bids (id, auction_id, bidder_id, amount, created_at)
            VALUES ($1, $2, $3, $4, $5)
        `, bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert bid %s: %w", bid.ID, err)
		}
		return nil
	})
}

func (r *PostgresAuctionRepository) EndAuction(ctx context.Context, auctionID string, endedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE auctions
        SET status = $1, winner_id = current_bidder_id, final_bid = current_bid,
            ended_at = $2, updated_at = $2
        WHERE id = $3 AND status = $4
    `, string(domain.AuctionEnded), endedAt, auctionID, string(domain.AuctionActive))
	if err != nil {
		return fmt.Errorf("end auction %s: %w", auctionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("end auction %s: %w", auctionID, domain.ErrStaleAuction)
	}
	return nil
}

func (r *PostgresAuctionRepository) GetBidHistory(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM auctions WHERE id = $1)`, auctionID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}

	rows, err := r.db.Query(ctx, `
        SELECT id, auction_id, bidder_id, amount, created_at
        FROM bids
        WHERE auction_id = $1
        ORDER BY created_at ASC, amount ASC
    `, auctionID)
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
	return bids, rows.Err()
}

func (r *PostgresAuctionRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	var auction domain.Auction
	var status string
	var currentBidder, description, winner *string
	var reserve, finalBid decimal.NullDecimal

	err := row.Scan(
		&auction.ID, &auction.DomainName, &auction.StartingBid, &auction.CurrentBid,
		&currentBidder, &auction.BidsCount, &auction.SellerID, &auction.EndTime,
		&status, &reserve, &description, &winner, &finalBid,
		&auction.EndedAt, &auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	auction.Status = domain.AuctionStatus(status)
	auction.CurrentBidderID = deref(currentBidder)
	auction.Description = deref(description)
	auction.WinnerID = deref(winner)
	auction.ReservePrice = reserve
	auction.FinalBid = finalBid
	return &auction, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
