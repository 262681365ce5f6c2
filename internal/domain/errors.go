package domain

import "errors"

// Store-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	// ErrStaleAuction means a conditional write matched no row: the auction
	// changed (or ended) since it was read.
	ErrStaleAuction = errors.New("auction changed concurrently")
)
