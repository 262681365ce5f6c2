package services

import (
	"strings"
	"time"
	"unicode"

	"domain-auction/internal/domain"
	"domain-auction/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const (
	maxDomainNameLength = 253
	moneyScale          = 2
)

var (
	nanosPerDay = decimal.NewFromInt(int64(24 * time.Hour))
	// Money columns are DECIMAL(18,2): sixteen integer digits.
	moneyLimit = decimal.New(1, 16)
)

// CreateAuctionInput carries the seller-supplied fields of a new auction.
// Pointers distinguish "absent" from zero.
type CreateAuctionInput struct {
	DomainName   string
	StartingBid  *decimal.Decimal
	DurationDays *decimal.Decimal
	ReservePrice *decimal.Decimal
	Description  string
}

// normalizeDomainName trims and lower-cases a domain name and rejects
// obviously malformed input.
func normalizeDomainName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", apperrors.Validation("domainName is required")
	}
	if len(name) > maxDomainNameLength {
		return "", apperrors.Validation("domainName is too long")
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return "", apperrors.Validation("domainName must not contain whitespace")
	}
	return name, nil
}

func (s *AuctionService) validateCreate(in CreateAuctionInput) (string, time.Duration, error) {
	domainName, err := normalizeDomainName(in.DomainName)
	if err != nil {
		return "", 0, err
	}

	if in.StartingBid == nil {
		return "", 0, apperrors.Validation("startingBid is required")
	}
	if in.StartingBid.IsNegative() {
		return "", 0, apperrors.Validation("startingBid must not be negative")
	}
	if err := checkMoney("startingBid", *in.StartingBid); err != nil {
		return "", 0, err
	}

	if in.DurationDays == nil {
		return "", 0, apperrors.Validation("durationDays is required")
	}
	if !in.DurationDays.IsPositive() {
		return "", 0, apperrors.Validation("durationDays must be positive")
	}
	if in.DurationDays.GreaterThan(decimal.NewFromInt(int64(s.maxDurationDays))) {
		return "", 0, apperrors.Validation("durationDays exceeds the maximum auction length")
	}

	if in.ReservePrice != nil {
		if in.ReservePrice.IsNegative() {
			return "", 0, apperrors.Validation("reservePrice must not be negative")
		}
		if err := checkMoney("reservePrice", *in.ReservePrice); err != nil {
			return "", 0, err
		}
	}

	duration := time.Duration(in.DurationDays.Mul(nanosPerDay).IntPart())
	return domainName, duration, nil
}

// checkMoney rejects amounts the stores cannot hold exactly.
func checkMoney(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(moneyScale)) {
		return apperrors.Validation(field + " must have at most 2 decimal places")
	}
	if d.Abs().GreaterThanOrEqual(moneyLimit) {
		return apperrors.Validation(field + " is too large")
	}
	return nil
}

// checkBid applies the bid preconditions, in order, to a freshly read auction.
func checkBid(auction *domain.Auction, callerID string, amount decimal.Decimal) error {
	if !auction.IsActive() {
		return apperrors.InvalidState("auction is not active")
	}
	if !amount.GreaterThan(auction.CurrentBid) {
		return apperrors.Validation("bid must exceed current bid")
	}
	if callerID == auction.SellerID {
		return apperrors.Forbidden("seller cannot bid on own auction")
	}
	return nil
}
