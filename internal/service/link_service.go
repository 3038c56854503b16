package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linkmarket/internal/broker"
	"linkmarket/internal/models"
	"linkmarket/internal/redisclient"
	"linkmarket/internal/store"
	"linkmarket/internal/util"
)

// LinkService handles payment-link creation and lookup
type LinkService struct {
	store               *store.Store
	redis               *redisclient.Client
	eventPublisher      *broker.EventPublisher
	defaultMinIncrement int64
	logger              *zap.Logger
}

// NewLinkService creates a new link service
func NewLinkService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	defaultMinIncrement int64,
) *LinkService {
	return &LinkService{
		store:               store,
		redis:               redis,
		eventPublisher:      eventPublisher,
		defaultMinIncrement: defaultMinIncrement,
		logger:              util.GetLogger(),
	}
}

// AuctionConfigRequest enables bidding on a link
type AuctionConfigRequest struct {
	EndsAt             time.Time `json:"ends_at" binding:"required"`
	StartingPriceCents int64     `json:"starting_price_cents"`
	MinIncrementCents  int64     `json:"min_increment_cents"`
}

// CreateLinkRequest represents a request to create a payment link
type CreateLinkRequest struct {
	ProductID       int64                   `json:"product_id" binding:"required"`
	ExpiresAt       *time.Time              `json:"expires_at,omitempty"`
	Auction         *AuctionConfigRequest   `json:"auction,omitempty"`
	DigitalOverride *models.DigitalDownload `json:"digital_override,omitempty"`
}

// CreateLink mints a new shareable checkout link for a product. The digital
// deliverable metadata is snapshotted at creation time from the product, or
// from an explicit override. When an auction is configured, the link expiry
// is forced equal to the auction close time.
func (s *LinkService) CreateLink(ctx context.Context, req *CreateLinkRequest) (*models.Link, error) {
	ctx, span := util.StartSpan(ctx, "LinkService.CreateLink")
	defer span.End()

	product, err := s.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	snapshot := models.DigitalDownload{
		FileKey:  product.DigitalFileKey,
		FileName: product.DigitalFileName,
	}
	if req.DigitalOverride != nil {
		snapshot = *req.DigitalOverride
	}

	id, err := models.NewLinkID()
	if err != nil {
		return nil, err
	}
	link := &models.Link{
		ID:              id,
		ProductID:       product.ID,
		SellerID:        product.SellerID,
		Active:          true,
		ExpiresAt:       req.ExpiresAt,
		DigitalFileKey:  snapshot.FileKey,
		DigitalFileName: snapshot.FileName,
	}

	kind := "fixed_price"
	if req.Auction != nil {
		if !req.Auction.EndsAt.After(time.Now()) {
			return nil, &models.ValidationError{Field: "auction.ends_at", Reason: "must be in the future"}
		}
		if req.Auction.StartingPriceCents < 0 {
			return nil, &models.ValidationError{Field: "auction.starting_price_cents", Reason: "must be a non-negative integer"}
		}
		minIncrement := req.Auction.MinIncrementCents
		if minIncrement <= 0 {
			minIncrement = s.defaultMinIncrement
		}
		endsAt := req.Auction.EndsAt
		link.AuctionEnabled = true
		link.AuctionEndsAt = &endsAt
		link.StartingPriceCents = req.Auction.StartingPriceCents
		link.MinIncrementCents = minIncrement
		link.AuctionStatus = models.AuctionStatusActive
		link.ExpiresAt = &endsAt
		kind = "auction"
	}

	if err := s.store.CreateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	util.LinksCreatedTotal.WithLabelValues(kind).Inc()
	s.logger.Info("Link created",
		zap.String("link_id", link.ID),
		zap.Int64("product_id", product.ID),
		zap.String("kind", kind))

	event := &models.LinkCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeLinkCreated,
			Timestamp: time.Now(),
		},
		LinkID:         link.ID,
		ProductID:      product.ID,
		SellerID:       product.SellerID,
		AuctionEnabled: link.AuctionEnabled,
	}
	if err := s.eventPublisher.PublishLinkCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish LinkCreated event", zap.Error(err))
	}

	return link, nil
}

// GetLink retrieves a link by its case-normalized id. Plain fixed-price
// links are served through a short-lived cache; auction links always hit the
// store because their state can change on any read.
func (s *LinkService) GetLink(ctx context.Context, id string) (*models.Link, error) {
	id = models.NormalizeLinkID(id)

	var cached models.Link
	if hit, err := s.redis.GetJSON(ctx, "link:"+id, &cached); err == nil && hit && !cached.AuctionEnabled {
		return &cached, nil
	}

	link, err := s.store.GetLinkByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !link.AuctionEnabled {
		if err := s.redis.CacheJSON(ctx, "link:"+id, link, 30*time.Second); err != nil {
			s.logger.Warn("Failed to cache link", zap.String("link_id", id), zap.Error(err))
		}
	}
	return link, nil
}
