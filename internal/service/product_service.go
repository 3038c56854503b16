package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"linkmarket/internal/models"
	"linkmarket/internal/store"
	"linkmarket/internal/util"
)

// ProductService handles product catalog CRUD
type ProductService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(store *store.Store) *ProductService {
	return &ProductService{store: store, logger: util.GetLogger()}
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	SellerID        int64  `json:"seller_id" binding:"required"`
	Title           string `json:"title" binding:"required"`
	PriceCents      int64  `json:"price_cents" binding:"required,min=0"`
	Currency        string `json:"currency"`
	ImageURL        string `json:"image_url"`
	DigitalFileKey  string `json:"digital_file_key"`
	DigitalFileName string `json:"digital_file_name"`
}

// CreateProduct creates a product owned by an onboarded seller
func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.CreateProduct")
	defer span.End()

	if _, err := s.store.GetSellerByID(ctx, req.SellerID); err != nil {
		return nil, err
	}
	if req.PriceCents < 0 {
		return nil, &models.ValidationError{Field: "price_cents", Reason: "must be a non-negative integer"}
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	product := &models.Product{
		SellerID:        req.SellerID,
		Title:           req.Title,
		PriceCents:      req.PriceCents,
		Currency:        currency,
		ImageURL:        req.ImageURL,
		DigitalFileKey:  req.DigitalFileKey,
		DigitalFileName: req.DigitalFileName,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.Int64("seller_id", product.SellerID))
	return product, nil
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.store.GetProductByID(ctx, id)
}

// ListProducts retrieves the catalog, optionally scoped to one seller
func (s *ProductService) ListProducts(ctx context.Context, sellerID int64) ([]models.Product, error) {
	if sellerID > 0 {
		return s.store.GetProductsBySellerID(ctx, sellerID)
	}
	return s.store.GetProducts(ctx)
}

// UpdateProduct updates the mutable fields of an existing product
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, req *CreateProductRequest) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Title = req.Title
	product.PriceCents = req.PriceCents
	if req.Currency != "" {
		product.Currency = req.Currency
	}
	product.ImageURL = req.ImageURL
	product.DigitalFileKey = req.DigitalFileKey
	product.DigitalFileName = req.DigitalFileName

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}
