package store

import (
	"context"
	"database/sql"
	"errors"

	"linkmarket/internal/models"
)

// CreateLink creates a new link document. Links are created once and never
// deleted; only finalization mutates them afterwards.
func (s *Store) CreateLink(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (
			id, product_id, seller_id, active, expires_at,
			digital_file_key, digital_file_name, price_override_cents,
			auction_enabled, auction_ends_at, starting_price_cents,
			min_increment_cents, auction_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`

	return s.db.GetContext(ctx, &link.CreatedAt, query,
		link.ID, link.ProductID, link.SellerID, link.Active, link.ExpiresAt,
		link.DigitalFileKey, link.DigitalFileName, link.PriceOverrideCents,
		link.AuctionEnabled, link.AuctionEndsAt, link.StartingPriceCents,
		link.MinIncrementCents, link.AuctionStatus)
}

// GetLinkByID retrieves a link by its case-normalized id.
func (s *Store) GetLinkByID(ctx context.Context, id string) (*models.Link, error) {
	var link models.Link
	err := s.db.GetContext(ctx, &link, "SELECT * FROM links WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// GetLinksBySellerID retrieves all links belonging to a seller.
func (s *Store) GetLinksBySellerID(ctx context.Context, sellerID int64) ([]models.Link, error) {
	var links []models.Link
	err := s.db.SelectContext(ctx, &links,
		"SELECT * FROM links WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return links, err
}

// FinalizeAuction commits the active -> finalized transition with a single
// conditional write. Concurrent finalizers race on the status guard: exactly
// one write lands, the rest observe zero rows and re-read. winner is nil for
// a zero-bid close.
//
// Returns true when this call performed the transition.
func (s *Store) FinalizeAuction(ctx context.Context, linkID string, winner *models.Winner) (bool, error) {
	var res sql.Result
	var err error
	if winner != nil {
		res, err = s.db.ExecContext(ctx, `
			UPDATE links
			SET auction_status = $2, winner_email = $3, winner_bid_id = $4,
			    winner_amount_cents = $5, finalized_at = NOW(), active = FALSE
			WHERE id = $1 AND auction_status = $6`,
			linkID, models.AuctionStatusFinalized,
			winner.Email, winner.BidID, winner.AmountCents,
			models.AuctionStatusActive)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE links
			SET auction_status = $2, finalized_at = NOW(), active = FALSE
			WHERE id = $1 AND auction_status = $3`,
			linkID, models.AuctionStatusFinalized, models.AuctionStatusActive)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateBid appends an immutable bid record under a link.
func (s *Store) CreateBid(ctx context.Context, bid *models.Bid) error {
	query := `
		INSERT INTO bids (id, link_id, email, amount_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	return s.db.GetContext(ctx, &bid.CreatedAt, query,
		bid.ID, bid.LinkID, bid.Email, bid.AmountCents)
}

// GetHighestBid returns the winning-ranked bid for a link, or nil when no
// bids exist. Tie-break on equal amounts: earliest created_at, then bid id.
func (s *Store) GetHighestBid(ctx context.Context, linkID string) (*models.Bid, error) {
	var bid models.Bid
	err := s.db.GetContext(ctx, &bid, `
		SELECT * FROM bids
		WHERE link_id = $1
		ORDER BY amount_cents DESC, created_at ASC, id ASC
		LIMIT 1`, linkID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// GetRecentBids returns up to limit bids, newest first.
func (s *Store) GetRecentBids(ctx context.Context, linkID string, limit int) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.db.SelectContext(ctx, &bids, `
		SELECT * FROM bids
		WHERE link_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, linkID, limit)
	return bids, err
}

// CountBids returns the total number of bids stored for a link.
func (s *Store) CountBids(ctx context.Context, linkID string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM bids WHERE link_id = $1", linkID)
	return count, err
}
