package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store is the ledger: links, their bids, the catalog, and recorded orders.
// All auction-core writes are single-row atomic; no cross-row transaction is
// relied on by callers.
type Store struct {
	db *sqlx.DB
}

// NewStore connects to the database and ensures the schema exists.
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sellers (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			processor_account_id TEXT NOT NULL DEFAULT '',
			onboarded BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			seller_id BIGINT NOT NULL REFERENCES sellers(id),
			title TEXT NOT NULL,
			price_cents BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'usd',
			image_url TEXT NOT NULL DEFAULT '',
			digital_file_key TEXT NOT NULL DEFAULT '',
			digital_file_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS links (
			id TEXT PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id),
			seller_id BIGINT NOT NULL REFERENCES sellers(id),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			expires_at TIMESTAMPTZ,
			digital_file_key TEXT NOT NULL DEFAULT '',
			digital_file_name TEXT NOT NULL DEFAULT '',
			price_override_cents BIGINT,
			auction_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			auction_ends_at TIMESTAMPTZ,
			starting_price_cents BIGINT NOT NULL DEFAULT 0,
			min_increment_cents BIGINT NOT NULL DEFAULT 0,
			auction_status TEXT NOT NULL DEFAULT '',
			winner_email TEXT,
			winner_bid_id TEXT,
			winner_amount_cents BIGINT,
			finalized_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS bids (
			id TEXT PRIMARY KEY,
			link_id TEXT NOT NULL REFERENCES links(id),
			email TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_bids_link_amount ON bids(link_id, amount_cents DESC);
		CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			link_id TEXT NOT NULL REFERENCES links(id),
			product_id BIGINT NOT NULL,
			seller_id BIGINT NOT NULL,
			buyer_email TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'usd',
			processor_session_id TEXT NOT NULL DEFAULT '',
			payout_transfer_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS processed_events (
			event_id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
