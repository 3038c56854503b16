package store

import (
	"context"
	"database/sql"
	"errors"

	"linkmarket/internal/models"
)

// CreateOrder records a checkout against a link
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (link_id, product_id, seller_id, buyer_email, amount_cents, currency, processor_session_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, order, query,
		order.LinkID, order.ProductID, order.SellerID, order.BuyerEmail,
		order.AmountCents, order.Currency, order.ProcessorSessionID, order.Status)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderBySessionID retrieves the order created for a processor checkout
// session; nil when no order exists yet.
func (s *Store) GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE processor_session_id = $1 ORDER BY created_at DESC LIMIT 1", sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateOrderPayout stores the payout transfer reference
func (s *Store) UpdateOrderPayout(ctx context.Context, orderID int64, transferID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payout_transfer_id = $1, updated_at = NOW() WHERE id = $2",
		transferID, orderID)
	return err
}

// GetOrdersBySellerID retrieves orders for a seller
func (s *Store) GetOrdersBySellerID(ctx context.Context, sellerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return orders, err
}
