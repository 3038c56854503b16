package models

import (
	"errors"
	"fmt"
)

// Error codes returned to API callers. Every precondition failure carries
// enough context for the caller to self-correct without a second round-trip.
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAuctionNotEnabled = "AUCTION_NOT_ENABLED"
	ErrCodeAuctionEnded      = "AUCTION_ENDED"
	ErrCodeBidTooLow         = "BID_TOO_LOW"
	ErrCodeValidation        = "VALIDATION"
	ErrCodeInternal          = "INTERNAL"
	ErrCodeAuctionActive     = "AUCTION_ACTIVE"
	ErrCodeAuctionNoWinner   = "AUCTION_NO_WINNER"
	ErrCodeLinkExpired       = "LINK_EXPIRED"
)

// ErrNotFound is returned when a referenced link, product, or seller is absent.
var ErrNotFound = errors.New("not found")

// ErrAuctionNotEnabled is returned for auction-only operations on a plain
// fixed-price link.
var ErrAuctionNotEnabled = errors.New("auction not enabled for link")

// ErrAuctionActive is returned when a checkout session is requested for a
// link whose auction has not finalized yet.
var ErrAuctionActive = errors.New("auction still active")

// ErrAuctionNoWinner is returned when a checkout session is requested for an
// auction that closed with zero bids. There is nothing to purchase.
var ErrAuctionNoWinner = errors.New("auction closed without bids")

// ErrLinkExpired is returned when a checkout session is requested for a link
// past its expiry.
var ErrLinkExpired = errors.New("link expired")

// AuctionEndedError rejects a bid placed after close. It carries the final
// auction state so the client can redirect to purchase.
type AuctionEndedError struct {
	Auction *Auction
}

func (e *AuctionEndedError) Error() string {
	return "auction ended"
}

// BidTooLowError rejects a bid below the computed minimum. It carries the
// minimum and the current highest so the caller can retry.
type BidTooLowError struct {
	MinRequiredCents int64
	HighestCents     int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid below minimum required %d", e.MinRequiredCents)
}

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
