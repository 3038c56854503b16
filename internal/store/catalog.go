package store

import (
	"context"
	"database/sql"
	"errors"

	"linkmarket/internal/models"
)

// CreateSeller creates a new seller
func (s *Store) CreateSeller(ctx context.Context, seller *models.Seller) error {
	query := `
		INSERT INTO sellers (email, processor_account_id, onboarded)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, seller, query,
		seller.Email, seller.ProcessorAccountID, seller.Onboarded)
}

// GetSellerByID retrieves a seller by ID
func (s *Store) GetSellerByID(ctx context.Context, id int64) (*models.Seller, error) {
	var seller models.Seller
	err := s.db.GetContext(ctx, &seller, "SELECT * FROM sellers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// UpdateSellerOnboarding stores the processor account reference and the
// onboarding state.
func (s *Store) UpdateSellerOnboarding(ctx context.Context, sellerID int64, accountID string, onboarded bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sellers SET processor_account_id = $1, onboarded = $2 WHERE id = $3",
		accountID, onboarded, sellerID)
	return err
}

// CreateProduct creates a new product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (seller_id, title, price_cents, currency, image_url, digital_file_key, digital_file_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, product, query,
		product.SellerID, product.Title, product.PriceCents, product.Currency,
		product.ImageURL, product.DigitalFileKey, product.DigitalFileName)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductsBySellerID retrieves a seller's products
func (s *Store) GetProductsBySellerID(ctx context.Context, sellerID int64) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE seller_id = $1 ORDER BY id", sellerID)
	return products, err
}

// UpdateProduct updates the mutable product fields
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET title = $1, price_cents = $2, currency = $3, image_url = $4,
		    digital_file_key = $5, digital_file_name = $6
		WHERE id = $7`,
		product.Title, product.PriceCents, product.Currency, product.ImageURL,
		product.DigitalFileKey, product.DigitalFileName, product.ID)
	return err
}
