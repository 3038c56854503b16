package models

import (
	"encoding/json"
	"time"
)

// Seller represents a merchant onboarded through the payment processor's
// connected-account flow.
type Seller struct {
	ID                 int64     `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	ProcessorAccountID string    `db:"processor_account_id" json:"processor_account_id,omitempty"`
	Onboarded          bool      `db:"onboarded" json:"onboarded"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Product represents a sellable item in the catalog.
type Product struct {
	ID              int64     `db:"id" json:"id"`
	SellerID        int64     `db:"seller_id" json:"seller_id"`
	Title           string    `db:"title" json:"title"`
	PriceCents      int64     `db:"price_cents" json:"price_cents"`
	Currency        string    `db:"currency" json:"currency"`
	ImageURL        string    `db:"image_url" json:"image_url,omitempty"`
	DigitalFileKey  string    `db:"digital_file_key" json:"digital_file_key,omitempty"`
	DigitalFileName string    `db:"digital_file_name" json:"digital_file_name,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// DigitalDownload is the deliverable-file metadata snapshotted onto a link at
// creation time. Empty key and name mean the link has no digital deliverable.
type DigitalDownload struct {
	FileKey  string `json:"file_key,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

// Empty reports whether the snapshot carries no deliverable reference.
func (d DigitalDownload) Empty() bool {
	return d.FileKey == "" && d.FileName == ""
}

// Auction statuses. An ended-but-unfinalized auction is a derived condition
// (now past EndsAt while status is still active), never a stored status.
const (
	AuctionStatusActive    = "active"
	AuctionStatusFinalized = "finalized"
)

// Auction is the bidding configuration and outcome embedded in a Link.
type Auction struct {
	Enabled            bool       `json:"enabled"`
	EndsAt             time.Time  `json:"ends_at"`
	StartingPriceCents int64      `json:"starting_price_cents"`
	MinIncrementCents  int64      `json:"min_increment_cents"`
	Status             string     `json:"status"`
	Winner             *Winner    `json:"winner,omitempty"`
	FinalizedAt        *time.Time `json:"finalized_at,omitempty"`
}

// Winner records the outcome of a finalized auction. Set exactly once, and
// only when at least one bid existed at close time.
type Winner struct {
	Email       string `json:"email"`
	BidID       string `json:"bid_id"`
	AmountCents int64  `json:"amount_cents"`
}

// Ended reports whether the close time has passed at the given instant.
func (a *Auction) Ended(now time.Time) bool {
	return !now.Before(a.EndsAt)
}

// Link represents one shareable checkout instance for a product.
//
// Created once, mutated only by auction finalization (status, winner, active
// flag), never deleted. The auction columns are flattened into the links row;
// Auction() reassembles the embedded record.
type Link struct {
	ID              string     `db:"id" json:"id"`
	ProductID       int64      `db:"product_id" json:"product_id"`
	SellerID        int64      `db:"seller_id" json:"seller_id"`
	Active          bool       `db:"active" json:"active"`
	ExpiresAt       *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	DigitalFileKey  string     `db:"digital_file_key" json:"digital_file_key,omitempty"`
	DigitalFileName string     `db:"digital_file_name" json:"digital_file_name,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`

	// PriceOverrideCents pins the checkout amount for links that must not
	// charge the product's nominal price, such as a winner's follow-up link
	// carrying the winning bid.
	PriceOverrideCents *int64 `db:"price_override_cents" json:"price_override_cents,omitempty"`

	AuctionEnabled     bool       `db:"auction_enabled" json:"-"`
	AuctionEndsAt      *time.Time `db:"auction_ends_at" json:"-"`
	StartingPriceCents int64      `db:"starting_price_cents" json:"-"`
	MinIncrementCents  int64      `db:"min_increment_cents" json:"-"`
	AuctionStatus      string     `db:"auction_status" json:"-"`
	WinnerEmail        *string    `db:"winner_email" json:"-"`
	WinnerBidID        *string    `db:"winner_bid_id" json:"-"`
	WinnerAmountCents  *int64     `db:"winner_amount_cents" json:"-"`
	FinalizedAt        *time.Time `db:"finalized_at" json:"-"`
}

// Auction returns the embedded auction record, or nil for a plain
// fixed-price link.
func (l *Link) Auction() *Auction {
	if !l.AuctionEnabled {
		return nil
	}
	a := &Auction{
		Enabled:            true,
		StartingPriceCents: l.StartingPriceCents,
		MinIncrementCents:  l.MinIncrementCents,
		Status:             l.AuctionStatus,
		FinalizedAt:        l.FinalizedAt,
	}
	if l.AuctionEndsAt != nil {
		a.EndsAt = *l.AuctionEndsAt
	}
	if l.WinnerEmail != nil && l.WinnerBidID != nil && l.WinnerAmountCents != nil {
		a.Winner = &Winner{
			Email:       *l.WinnerEmail,
			BidID:       *l.WinnerBidID,
			AmountCents: *l.WinnerAmountCents,
		}
	}
	return a
}

// DigitalDownload returns the link's deliverable snapshot.
func (l *Link) DigitalDownload() DigitalDownload {
	return DigitalDownload{FileKey: l.DigitalFileKey, FileName: l.DigitalFileName}
}

// MarshalJSON serializes the flattened auction columns as one assembled
// auction record, so clients can tell an auction link from a fixed-price one
// without a second request.
func (l *Link) MarshalJSON() ([]byte, error) {
	type alias Link
	return json.Marshal(struct {
		*alias
		Auction *Auction `json:"auction,omitempty"`
	}{(*alias)(l), l.Auction()})
}

// Bid is an immutable append-only record scoped to one link. Ranking is by
// amount, not time; CreatedAt is an audit trail and the tie-break input.
type Bid struct {
	ID          string    `db:"id" json:"id"`
	LinkID      string    `db:"link_id" json:"link_id"`
	Email       string    `db:"email" json:"email"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Order statuses.
const (
	OrderStatusPending = "PENDING"
	OrderStatusPaid    = "PAID"
	OrderStatusFailed  = "FAILED"
)

// Order records a completed (or attempted) checkout against a link.
type Order struct {
	ID                 int64     `db:"id" json:"id"`
	LinkID             string    `db:"link_id" json:"link_id"`
	ProductID          int64     `db:"product_id" json:"product_id"`
	SellerID           int64     `db:"seller_id" json:"seller_id"`
	BuyerEmail         string    `db:"buyer_email" json:"buyer_email"`
	AmountCents        int64     `db:"amount_cents" json:"amount_cents"`
	Currency           string    `db:"currency" json:"currency"`
	ProcessorSessionID string    `db:"processor_session_id" json:"processor_session_id,omitempty"`
	PayoutTransferID   string    `db:"payout_transfer_id" json:"payout_transfer_id,omitempty"`
	Status             string    `db:"status" json:"status"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// ProcessedEvent for consumer idempotency.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
