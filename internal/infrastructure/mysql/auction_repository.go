package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"domain-auction/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

const auctionColumns = `id, domain_name, starting_bid, current_bid, current_bidder_id, bids_count,
        seller_id, end_time, status, reserve_price, description, winner_id, final_bid,
        ended_at, created_at, updated_at`

// MySQLAuctionRepository implements domain.AuctionStore on MySQL/InnoDB.
type MySQLAuctionRepository struct {
	db *sql.DB
}

func NewMySQLAuctionRepository(db *sql.DB) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{db: db}
}

func (r *MySQLAuctionRepository) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		auction.ID, auction.DomainName, auction.StartingBid, auction.CurrentBid,
		nullString(auction.CurrentBidderID), auction.BidsCount, auction.SellerID,
		auction.EndTime, string(auction.Status), auction.ReservePrice,
		nullString(auction.Description), nullString(auction.WinnerID), auction.FinalBid,
		nullTime(auction.EndedAt), auction.CreatedAt, auction.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert auction %s: %w", auction.ID, err)
	}
	return nil
}

func (r *MySQLAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`

	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get auction %s: %w", auctionID, domain.ErrAuctionNotFound)
		}
		return nil, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

func (r *MySQLAuctionRepository) ListActiveAuctions(ctx context.Context) ([]*domain.Auction, error) {
	query := `
        SELECT ` + auctionColumns + `
        FROM auctions WHERE status = ?
        ORDER BY end_time ASC, id ASC
    `

	rows, err := r.db.QueryContext(ctx, query, string(domain.AuctionActive))
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

func (r *MySQLAuctionRepository) PlaceBid(ctx context.Context, bid *domain.Bid, expectedBidsCount int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bid transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        UPDATE auctions
        SET current_bid = ?, current_bidder_id = ?, bids_count = bids_count + 1, updated_at = ?
        WHERE id = ? AND status = ? AND bids_count = ?
    `
	res, err := tx.ExecContext(ctx, query,
		bid.Amount, bid.BidderID, bid.CreatedAt,
		bid.AuctionID, string(domain.AuctionActive), expectedBidsCount)
	if err != nil {
		return fmt.Errorf("update auction %s: %w", bid.AuctionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update auction %s: %w", bid.AuctionID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update auction %s: %w", bid.AuctionID, domain.ErrStaleAuction)
	}

	if err := insertBid(ctx, tx, bid); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bid on auction %s: %w", bid.AuctionID, err)
	}
	return nil
}

func (r *MySQLAuctionRepository) EndAuction(ctx context.Context, auctionID string, endedAt time.Time) error {
	query := `
        UPDATE auctions
        SET status = ?, winner_id = current_bidder_id, final_bid = current_bid,
            ended_at = ?, updated_at = ?
        WHERE id = ? AND status = ?
    `
	res, err := r.db.ExecContext(ctx, query,
		string(domain.AuctionEnded), endedAt, endedAt, auctionID, string(domain.AuctionActive))
	if err != nil {
		return fmt.Errorf("end auction %s: %w", auctionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end auction %s: %w", auctionID, err)
	}
	if affected == 0 {
		return fmt.Errorf("end auction %s: %w", auctionID, domain.ErrStaleAuction)
	}
	return nil
}

func (r *MySQLAuctionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var status string
	var currentBidder, description, winner sql.NullString
	var endedAt sql.NullTime

	err := row.Scan(
		&auction.ID, &auction.DomainName, &auction.StartingBid, &auction.CurrentBid,
		&currentBidder, &auction.BidsCount, &auction.SellerID, &auction.EndTime,
		&status, &auction.ReservePrice, &description, &winner, &auction.FinalBid,
		&endedAt, &auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	auction.Status = domain.AuctionStatus(status)
	auction.CurrentBidderID = currentBidder.String
	auction.Description = description.String
	auction.WinnerID = winner.String
	if endedAt.Valid {
		t := endedAt.Time
		auction.EndedAt = &t
	}
	return &auction, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
