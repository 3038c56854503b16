package auction

import (
	"context"
	"time"

	"linkmarket/internal/models"
)

// Store is the slice of the ledger the auction core touches. *store.Store
// satisfies it; tests use an in-memory fake.
type Store interface {
	GetLinkByID(ctx context.Context, id string) (*models.Link, error)
	CreateLink(ctx context.Context, link *models.Link) error
	FinalizeAuction(ctx context.Context, linkID string, winner *models.Winner) (bool, error)
	CreateBid(ctx context.Context, bid *models.Bid) error
	GetHighestBid(ctx context.Context, linkID string) (*models.Bid, error)
	GetRecentBids(ctx context.Context, linkID string, limit int) ([]models.Bid, error)
	CountBids(ctx context.Context, linkID string) (int64, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// Notifier delivers the winner email. Failures are logged and swallowed by
// the orchestrator; they never undo a committed finalization.
type Notifier interface {
	SendWinnerNotification(to, checkoutURL string, amountCents int64, currency string, expiresAt time.Time) error
}
