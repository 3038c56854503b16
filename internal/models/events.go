package models

import "time"

// Event types
const (
	EventTypeLinkCreated       = "LINK_CREATED"
	EventTypeBidPlaced         = "BID_PLACED"
	EventTypeAuctionFinalized  = "AUCTION_FINALIZED"
	EventTypeCheckoutCompleted = "CHECKOUT_COMPLETED"
	EventTypeOrderRecorded     = "ORDER_RECORDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// LinkCreatedEvent published when a payment link is created
type LinkCreatedEvent struct {
	BaseEvent
	LinkID         string `json:"link_id"`
	ProductID      int64  `json:"product_id"`
	SellerID       int64  `json:"seller_id"`
	AuctionEnabled bool   `json:"auction_enabled"`
}

// BidPlacedEvent published when a bid is accepted
type BidPlacedEvent struct {
	BaseEvent
	LinkID      string `json:"link_id"`
	BidID       string `json:"bid_id"`
	AmountCents int64  `json:"amount_cents"`
}

// AuctionFinalizedEvent published after the active->finalized transition
// commits. Winner fields are empty when the auction closed with zero bids.
type AuctionFinalizedEvent struct {
	BaseEvent
	LinkID            string `json:"link_id"`
	WinnerEmail       string `json:"winner_email,omitempty"`
	WinnerBidID       string `json:"winner_bid_id,omitempty"`
	WinnerAmountCents int64  `json:"winner_amount_cents,omitempty"`
	FollowupLinkID    string `json:"followup_link_id,omitempty"`
}

// CheckoutCompletedEvent published by the webhook endpoint when the payment
// processor reports a paid checkout session.
type CheckoutCompletedEvent struct {
	BaseEvent
	SessionID   string `json:"session_id"`
	LinkID      string `json:"link_id"`
	BuyerEmail  string `json:"buyer_email"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// OrderRecordedEvent published once the order worker has durably recorded a
// paid order and issued the payout transfer.
type OrderRecordedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	LinkID      string `json:"link_id"`
	SellerID    int64  `json:"seller_id"`
	AmountCents int64  `json:"amount_cents"`
	TransferID  string `json:"transfer_id,omitempty"`
}
