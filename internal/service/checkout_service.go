package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"linkmarket/internal/models"
	"linkmarket/internal/payments"
	"linkmarket/internal/util"
)

// checkoutStore is the slice of the ledger checkout touches. *store.Store
// satisfies it; tests use an in-memory fake.
type checkoutStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetSellerByID(ctx context.Context, id int64) (*models.Seller, error)
	CreateOrder(ctx context.Context, order *models.Order) error
}

// sessionCreator opens hosted checkout sessions at the processor.
type sessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params payments.CreateCheckoutSessionParams) (*payments.CheckoutSession, error)
}

// auctionCloser is the lazy-close hook; *auction.Service satisfies it.
type auctionCloser interface {
	EnsureFinalizedByID(ctx context.Context, linkID string) (*models.Link, error)
}

// CheckoutService creates hosted checkout sessions for links. For finalized
// auctions the purchase amount comes from the highest bid, never the
// product's nominal price; a session is refused while the auction is active.
type CheckoutService struct {
	store    checkoutStore
	payments sessionCreator
	auctions auctionCloser
	baseURL  string
	logger   *zap.Logger
	now      func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	store checkoutStore,
	payments sessionCreator,
	auctions auctionCloser,
	baseURL string,
) *CheckoutService {
	return &CheckoutService{
		store:    store,
		payments: payments,
		auctions: auctions,
		baseURL:  baseURL,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// CheckoutResult carries the session URL the buyer is redirected to
type CheckoutResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	OrderID   int64  `json:"order_id"`
}

// CreateSession creates a checkout session for a link. The auction lazy-close
// check runs first, so an ended-but-unfinalized auction observed here is
// finalized before any decision is made.
func (s *CheckoutService) CreateSession(ctx context.Context, linkID, buyerEmail string) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateSession")
	defer span.End()

	link, err := s.auctions.EnsureFinalizedByID(ctx, linkID)
	if err != nil {
		return nil, err
	}

	if link.ExpiresAt != nil && s.now().After(*link.ExpiresAt) && !link.AuctionEnabled {
		util.CheckoutSessionsRefused.WithLabelValues("link_expired").Inc()
		return nil, models.ErrLinkExpired
	}

	product, err := s.store.GetProductByID(ctx, link.ProductID)
	if err != nil {
		return nil, err
	}
	seller, err := s.store.GetSellerByID(ctx, link.SellerID)
	if err != nil {
		return nil, err
	}

	// Amount precedence: the link's pinned override (a winner's follow-up
	// link carries the winning bid there), then the finalized auction's
	// winning bid, then the product price.
	amount := product.PriceCents
	if link.PriceOverrideCents != nil {
		amount = *link.PriceOverrideCents
	}
	if a := link.Auction(); a != nil {
		switch {
		case a.Status == models.AuctionStatusActive:
			util.CheckoutSessionsRefused.WithLabelValues("auction_active").Inc()
			return nil, models.ErrAuctionActive
		case a.Winner == nil:
			util.CheckoutSessionsRefused.WithLabelValues("no_winner").Inc()
			return nil, models.ErrAuctionNoWinner
		default:
			amount = a.Winner.AmountCents
		}
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payments.CreateCheckoutSessionParams{
		LinkID:          link.ID,
		Title:           product.Title,
		AmountCents:     amount,
		Currency:        product.Currency,
		SellerAccountID: seller.ProcessorAccountID,
		SuccessURL:      fmt.Sprintf("%s/pay/%s/success", s.baseURL, link.ID),
		CancelURL:       fmt.Sprintf("%s/pay/%s", s.baseURL, link.ID),
		CustomerEmail:   buyerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	order := &models.Order{
		LinkID:             link.ID,
		ProductID:          product.ID,
		SellerID:           seller.ID,
		BuyerEmail:         buyerEmail,
		AmountCents:        amount,
		Currency:           product.Currency,
		ProcessorSessionID: session.ID,
		Status:             models.OrderStatusPending,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to record pending order: %w", err)
	}

	util.CheckoutSessionsTotal.Inc()
	s.logger.Info("Checkout session created",
		zap.String("link_id", link.ID),
		zap.String("session_id", session.ID),
		zap.Int64("amount_cents", amount))

	return &CheckoutResult{SessionID: session.ID, URL: session.URL, OrderID: order.ID}, nil
}
