package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkmarket/internal/models"
	"linkmarket/internal/payments"
)

type fakeCheckoutStore struct {
	products map[int64]*models.Product
	sellers  map[int64]*models.Seller
	orders   []*models.Order
}

func (f *fakeCheckoutStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (f *fakeCheckoutStore) GetSellerByID(_ context.Context, id int64) (*models.Seller, error) {
	s, ok := f.sellers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s, nil
}

func (f *fakeCheckoutStore) CreateOrder(_ context.Context, order *models.Order) error {
	order.ID = int64(len(f.orders) + 1)
	f.orders = append(f.orders, order)
	return nil
}

type fakeSessions struct {
	params []payments.CreateCheckoutSessionParams
}

func (f *fakeSessions) CreateCheckoutSession(_ context.Context, params payments.CreateCheckoutSessionParams) (*payments.CheckoutSession, error) {
	f.params = append(f.params, params)
	return &payments.CheckoutSession{
		ID:          "cs_test_1",
		URL:         "https://processor.test/session/cs_test_1",
		Status:      "open",
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
	}, nil
}

// fakeCloser serves the link as stored; lazy-close behavior itself is covered
// by the auction package tests.
type fakeCloser struct {
	links map[string]*models.Link
}

func (f *fakeCloser) EnsureFinalizedByID(_ context.Context, linkID string) (*models.Link, error) {
	link, ok := f.links[models.NormalizeLinkID(linkID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return link, nil
}

func newCheckoutFixture(now time.Time) (*CheckoutService, *fakeCheckoutStore, *fakeSessions, *fakeCloser) {
	store := &fakeCheckoutStore{
		products: map[int64]*models.Product{
			1: {ID: 1, SellerID: 7, Title: "Poster", PriceCents: 2500, Currency: "usd"},
		},
		sellers: map[int64]*models.Seller{
			7: {ID: 7, Email: "seller@example.com", ProcessorAccountID: "acct_7", Onboarded: true},
		},
	}
	sessions := &fakeSessions{}
	closer := &fakeCloser{links: map[string]*models.Link{}}
	svc := NewCheckoutService(store, sessions, closer, "https://shop.test")
	svc.now = func() time.Time { return now }
	return svc, store, sessions, closer
}

func TestCreateSessionFixedPrice(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, sessions, closer := newCheckoutFixture(now)
	closer.links["plainlink1"] = &models.Link{ID: "plainlink1", ProductID: 1, SellerID: 7, Active: true}

	result, err := svc.CreateSession(context.Background(), "plainlink1", "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", result.SessionID)
	assert.Equal(t, "https://processor.test/session/cs_test_1", result.URL)

	require.Len(t, sessions.params, 1)
	assert.Equal(t, int64(2500), sessions.params[0].AmountCents)
	assert.Equal(t, "acct_7", sessions.params[0].SellerAccountID)
	assert.Equal(t, "https://shop.test/pay/plainlink1/success", sessions.params[0].SuccessURL)
	assert.Equal(t, "https://shop.test/pay/plainlink1", sessions.params[0].CancelURL)

	require.Len(t, store.orders, 1)
	assert.Equal(t, models.OrderStatusPending, store.orders[0].Status)
	assert.Equal(t, int64(2500), store.orders[0].AmountCents)
	assert.Equal(t, "cs_test_1", store.orders[0].ProcessorSessionID)
}

func TestCreateSessionFollowupLinkChargesWinningBid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, sessions, closer := newCheckoutFixture(now)

	// A winner's follow-up link: plain fixed-price shape, but the winning
	// bid (5000) is pinned on the link and must beat the product price
	// (2500).
	winning := int64(5000)
	expiresAt := now.Add(48 * time.Hour)
	closer.links["followuplnk"] = &models.Link{
		ID:                 "followuplnk",
		ProductID:          1,
		SellerID:           7,
		Active:             true,
		ExpiresAt:          &expiresAt,
		PriceOverrideCents: &winning,
	}

	_, err := svc.CreateSession(context.Background(), "followuplnk", "winner@example.com")
	require.NoError(t, err)

	require.Len(t, sessions.params, 1)
	assert.Equal(t, int64(5000), sessions.params[0].AmountCents)
	require.Len(t, store.orders, 1)
	assert.Equal(t, int64(5000), store.orders[0].AmountCents)
}

func TestCreateSessionFinalizedAuctionUsesWinningBid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, sessions, closer := newCheckoutFixture(now)

	endsAt := now.Add(-time.Hour)
	finalizedAt := now.Add(-time.Hour)
	email := "buyer@example.com"
	bidID := "bid-1"
	amount := int64(4200)
	closer.links["auctionlnk1"] = &models.Link{
		ID:                "auctionlnk1",
		ProductID:         1,
		SellerID:          7,
		AuctionEnabled:    true,
		AuctionEndsAt:     &endsAt,
		AuctionStatus:     models.AuctionStatusFinalized,
		WinnerEmail:       &email,
		WinnerBidID:       &bidID,
		WinnerAmountCents: &amount,
		FinalizedAt:       &finalizedAt,
	}

	_, err := svc.CreateSession(context.Background(), "auctionlnk1", email)
	require.NoError(t, err)
	require.Len(t, sessions.params, 1)
	assert.Equal(t, int64(4200), sessions.params[0].AmountCents)
	require.Len(t, store.orders, 1)
	assert.Equal(t, int64(4200), store.orders[0].AmountCents)
}

func TestCreateSessionRefusedWhileAuctionActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, sessions, closer := newCheckoutFixture(now)

	endsAt := now.Add(time.Hour)
	closer.links["auctionlnk1"] = &models.Link{
		ID:             "auctionlnk1",
		ProductID:      1,
		SellerID:       7,
		Active:         true,
		AuctionEnabled: true,
		AuctionEndsAt:  &endsAt,
		AuctionStatus:  models.AuctionStatusActive,
	}

	_, err := svc.CreateSession(context.Background(), "auctionlnk1", "buyer@example.com")
	assert.ErrorIs(t, err, models.ErrAuctionActive)
	assert.Empty(t, sessions.params)
	assert.Empty(t, store.orders)
}

func TestCreateSessionRefusedWithoutWinner(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, sessions, closer := newCheckoutFixture(now)

	endsAt := now.Add(-time.Hour)
	finalizedAt := now.Add(-time.Hour)
	closer.links["auctionlnk1"] = &models.Link{
		ID:             "auctionlnk1",
		ProductID:      1,
		SellerID:       7,
		AuctionEnabled: true,
		AuctionEndsAt:  &endsAt,
		AuctionStatus:  models.AuctionStatusFinalized,
		FinalizedAt:    &finalizedAt,
	}

	_, err := svc.CreateSession(context.Background(), "auctionlnk1", "buyer@example.com")
	assert.ErrorIs(t, err, models.ErrAuctionNoWinner)
	assert.Empty(t, sessions.params)
	assert.Empty(t, store.orders)
}

func TestCreateSessionRefusedForExpiredLink(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, store, sessions, closer := newCheckoutFixture(now)

	expiresAt := now.Add(-time.Minute)
	closer.links["plainlink1"] = &models.Link{
		ID: "plainlink1", ProductID: 1, SellerID: 7, Active: true, ExpiresAt: &expiresAt,
	}

	_, err := svc.CreateSession(context.Background(), "plainlink1", "buyer@example.com")
	assert.ErrorIs(t, err, models.ErrLinkExpired)
	assert.Empty(t, sessions.params)
	assert.Empty(t, store.orders)

	// One second before expiry the same link still checks out.
	svc.now = func() time.Time { return expiresAt.Add(-time.Second) }
	_, err = svc.CreateSession(context.Background(), "plainlink1", "buyer@example.com")
	assert.NoError(t, err)
	assert.Len(t, sessions.params, 1)
}

func TestCreateSessionUnknownLink(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _, _ := newCheckoutFixture(now)

	_, err := svc.CreateSession(context.Background(), "missing1234", "buyer@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
