package auction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkmarket/internal/models"
)

// fakeStore is an in-memory stand-in for the database, ranking bids the same
// way the SQL queries do.
type fakeStore struct {
	links    map[string]*models.Link
	bids     map[string][]models.Bid
	products map[int64]*models.Product

	createLinkErr error
	seq           int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		links:    make(map[string]*models.Link),
		bids:     make(map[string][]models.Bid),
		products: make(map[int64]*models.Product),
	}
}

func (f *fakeStore) GetLinkByID(_ context.Context, id string) (*models.Link, error) {
	link, ok := f.links[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (f *fakeStore) CreateLink(_ context.Context, link *models.Link) error {
	if f.createLinkErr != nil {
		return f.createLinkErr
	}
	cp := *link
	f.links[link.ID] = &cp
	return nil
}

func (f *fakeStore) FinalizeAuction(_ context.Context, linkID string, winner *models.Winner) (bool, error) {
	link, ok := f.links[linkID]
	if !ok || link.AuctionStatus != models.AuctionStatusActive {
		return false, nil
	}
	now := time.Now()
	link.AuctionStatus = models.AuctionStatusFinalized
	link.FinalizedAt = &now
	link.Active = false
	if winner != nil {
		link.WinnerEmail = &winner.Email
		link.WinnerBidID = &winner.BidID
		link.WinnerAmountCents = &winner.AmountCents
	}
	return true, nil
}

func (f *fakeStore) CreateBid(_ context.Context, bid *models.Bid) error {
	f.seq++
	if bid.CreatedAt.IsZero() {
		bid.CreatedAt = time.Unix(int64(f.seq), 0)
	}
	f.bids[bid.LinkID] = append(f.bids[bid.LinkID], *bid)
	return nil
}

func (f *fakeStore) GetHighestBid(_ context.Context, linkID string) (*models.Bid, error) {
	bids := append([]models.Bid(nil), f.bids[linkID]...)
	if len(bids) == 0 {
		return nil, nil
	}
	sort.Slice(bids, func(i, j int) bool {
		if bids[i].AmountCents != bids[j].AmountCents {
			return bids[i].AmountCents > bids[j].AmountCents
		}
		if !bids[i].CreatedAt.Equal(bids[j].CreatedAt) {
			return bids[i].CreatedAt.Before(bids[j].CreatedAt)
		}
		return bids[i].ID < bids[j].ID
	})
	return &bids[0], nil
}

func (f *fakeStore) GetRecentBids(_ context.Context, linkID string, limit int) ([]models.Bid, error) {
	bids := append([]models.Bid(nil), f.bids[linkID]...)
	sort.Slice(bids, func(i, j int) bool {
		if !bids[i].CreatedAt.Equal(bids[j].CreatedAt) {
			return bids[i].CreatedAt.After(bids[j].CreatedAt)
		}
		return bids[i].ID > bids[j].ID
	})
	if len(bids) > limit {
		bids = bids[:limit]
	}
	return bids, nil
}

func (f *fakeStore) CountBids(_ context.Context, linkID string) (int64, error) {
	return int64(len(f.bids[linkID])), nil
}

func (f *fakeStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type notification struct {
	to          string
	checkoutURL string
	amountCents int64
	expiresAt   time.Time
}

type fakeNotifier struct {
	sent []notification
	err  error
}

func (f *fakeNotifier) SendWinnerNotification(to, checkoutURL string, amountCents int64, _ string, expiresAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, notification{to, checkoutURL, amountCents, expiresAt})
	return nil
}

type fakePublisher struct {
	bidPlaced []models.BidPlacedEvent
	finalized []models.AuctionFinalizedEvent
}

func (f *fakePublisher) PublishBidPlaced(_ context.Context, e *models.BidPlacedEvent) error {
	f.bidPlaced = append(f.bidPlaced, *e)
	return nil
}

func (f *fakePublisher) PublishAuctionFinalized(_ context.Context, e *models.AuctionFinalizedEvent) error {
	f.finalized = append(f.finalized, *e)
	return nil
}

func newTestService(store *fakeStore, notifier *fakeNotifier, now time.Time) (*Service, *fakePublisher) {
	publisher := &fakePublisher{}
	finalizer := NewFinalizer(store, notifier, "https://shop.test", 48*time.Hour)
	finalizer.now = func() time.Time { return now }
	svc := NewService(store, finalizer, publisher, 10)
	svc.now = func() time.Time { return now }
	return svc, publisher
}

func seedAuctionLink(store *fakeStore, endsAt time.Time) *models.Link {
	store.products[1] = &models.Product{
		ID: 1, SellerID: 7, Title: "Poster", PriceCents: 2500, Currency: "usd",
	}
	link := &models.Link{
		ID:                 "abcdefghjk",
		ProductID:          1,
		SellerID:           7,
		Active:             true,
		AuctionEnabled:     true,
		AuctionEndsAt:      &endsAt,
		StartingPriceCents: 1000,
		MinIncrementCents:  100,
		AuctionStatus:      models.AuctionStatusActive,
	}
	store.links[link.ID] = link
	return link
}

func TestPlaceBidIncrementSequence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAuctionLink(store, now.Add(time.Hour))
	svc, publisher := newTestService(store, &fakeNotifier{}, now)
	ctx := context.Background()

	// Below starting price.
	_, err := svc.PlaceBid(ctx, "abcdefghjk", "a@x.com", 900)
	var tooLow *models.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, int64(1000), tooLow.MinRequiredCents)
	assert.Equal(t, int64(0), tooLow.HighestCents)

	// First bid only has to match the starting price.
	bid, err := svc.PlaceBid(ctx, "abcdefghjk", "a@x.com", 1000)
	require.NoError(t, err)
	assert.NotEmpty(t, bid.ID)

	// Above highest but under highest + increment.
	_, err = svc.PlaceBid(ctx, "abcdefghjk", "b@x.com", 1050)
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, int64(1100), tooLow.MinRequiredCents)
	assert.Equal(t, int64(1000), tooLow.HighestCents)

	_, err = svc.PlaceBid(ctx, "abcdefghjk", "b@x.com", 1100)
	require.NoError(t, err)

	assert.Len(t, publisher.bidPlaced, 2)
}

func TestPlaceBidValidation(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	seedAuctionLink(store, now.Add(time.Hour))
	svc, _ := newTestService(store, &fakeNotifier{}, now)
	ctx := context.Background()

	var verr *models.ValidationError

	_, err := svc.PlaceBid(ctx, "  ", "a@x.com", 1000)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "link_id", verr.Field)

	_, err = svc.PlaceBid(ctx, "abcdefghjk", "no-at-sign", 1000)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	_, err = svc.PlaceBid(ctx, "abcdefghjk", "a@x.com", -1)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount_cents", verr.Field)
}

func TestPlaceBidLinkIDNormalized(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	seedAuctionLink(store, now.Add(time.Hour))
	svc, _ := newTestService(store, &fakeNotifier{}, now)

	bid, err := svc.PlaceBid(context.Background(), "  ABCDEFGHJK ", "a@x.com", 1000)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghjk", bid.LinkID)
}

func TestPlaceBidUnknownLink(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), &fakeNotifier{}, time.Now())
	_, err := svc.PlaceBid(context.Background(), "missing123", "a@x.com", 1000)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPlaceBidAuctionNotEnabled(t *testing.T) {
	store := newFakeStore()
	store.links["plainlink1"] = &models.Link{ID: "plainlink1", ProductID: 1, Active: true}
	svc, _ := newTestService(store, &fakeNotifier{}, time.Now())

	_, err := svc.PlaceBid(context.Background(), "plainlink1", "a@x.com", 1000)
	assert.ErrorIs(t, err, models.ErrAuctionNotEnabled)
}

func TestPlaceBidAfterCloseFinalizesLazily(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAuctionLink(store, now.Add(time.Hour))
	notifier := &fakeNotifier{}
	svc, _ := newTestService(store, notifier, now)
	ctx := context.Background()

	_, err := svc.PlaceBid(ctx, "abcdefghjk", "buyer@example.com", 1000)
	require.NoError(t, err)

	// Move past close and bid again: the late bid both triggers the close
	// and is rejected with the final state.
	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = svc.PlaceBid(ctx, "abcdefghjk", "late@example.com", 5000)

	var ended *models.AuctionEndedError
	require.ErrorAs(t, err, &ended)
	assert.Equal(t, models.AuctionStatusFinalized, ended.Auction.Status)
	require.NotNil(t, ended.Auction.Winner)
	assert.Equal(t, "buyer@example.com", ended.Auction.Winner.Email)
	assert.Equal(t, int64(1000), ended.Auction.Winner.AmountCents)
	assert.Len(t, notifier.sent, 1)
}

func TestSummaryLazyCloseAndMasking(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAuctionLink(store, now.Add(time.Hour))
	svc, _ := newTestService(store, &fakeNotifier{}, now)
	ctx := context.Background()

	_, err := svc.PlaceBid(ctx, "abcdefghjk", "buyer@example.com", 1000)
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, "abcdefghjk", "carol@example.com", 1100)
	require.NoError(t, err)

	summary, err := svc.GetSummary(ctx, "abcdefghjk")
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusActive, summary.Auction.Status)
	assert.Equal(t, int64(1100), summary.HighestCents)
	assert.Equal(t, "ca****@example.com", summary.HighestEmailMasked)
	assert.Equal(t, int64(2), summary.Count)
	require.Len(t, summary.Recent, 2)
	assert.Equal(t, "ca****@example.com", summary.Recent[0].EmailMasked)
	assert.Equal(t, "bu****@example.com", summary.Recent[1].EmailMasked)
	for _, r := range summary.Recent {
		assert.NotContains(t, r.EmailMasked, "buyer@")
		assert.NotContains(t, r.EmailMasked, "carol@")
	}

	// A summary read past close finalizes the auction.
	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	summary, err = svc.GetSummary(ctx, "abcdefghjk")
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusFinalized, summary.Auction.Status)
	require.NotNil(t, summary.Auction.Winner)
	assert.Equal(t, "carol@example.com", summary.Auction.Winner.Email)
}

func TestSummaryRecentBidsLimit(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	seedAuctionLink(store, now.Add(time.Hour))
	svc, _ := newTestService(store, &fakeNotifier{}, now)
	ctx := context.Background()

	amount := int64(1000)
	for i := 0; i < 15; i++ {
		_, err := svc.PlaceBid(ctx, "abcdefghjk", fmt.Sprintf("bidder%02d@x.com", i), amount)
		require.NoError(t, err)
		amount += 100
	}

	summary, err := svc.GetSummary(ctx, "abcdefghjk")
	require.NoError(t, err)
	assert.Equal(t, int64(15), summary.Count)
	assert.Len(t, summary.Recent, 10)
	assert.Equal(t, "bi****@x.com", summary.Recent[0].EmailMasked)
	assert.Equal(t, int64(2400), summary.Recent[0].AmountCents)
}

func TestFinalizeIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	link := seedAuctionLink(store, now.Add(time.Hour))
	notifier := &fakeNotifier{}
	svc, publisher := newTestService(store, notifier, now)
	ctx := context.Background()

	_, err := svc.PlaceBid(ctx, link.ID, "buyer@example.com", 1000)
	require.NoError(t, err)

	svc.now = func() time.Time { return now.Add(2 * time.Hour) }

	first, err := svc.EnsureFinalizedByID(ctx, link.ID)
	require.NoError(t, err)
	second, err := svc.EnsureFinalizedByID(ctx, link.ID)
	require.NoError(t, err)

	assert.Equal(t, models.AuctionStatusFinalized, first.Auction().Status)
	assert.Equal(t, first.Auction().Winner, second.Auction().Winner)

	// Side effects ran exactly once.
	assert.Len(t, notifier.sent, 1)
	assert.Len(t, publisher.finalized, 1)
	assert.Len(t, store.links, 2) // original + one follow-up
}

func TestFinalizeNoBids(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	link := seedAuctionLink(store, now.Add(-time.Minute))
	notifier := &fakeNotifier{}
	svc, publisher := newTestService(store, notifier, now)

	got, err := svc.EnsureFinalizedByID(context.Background(), link.ID)
	require.NoError(t, err)

	a := got.Auction()
	assert.Equal(t, models.AuctionStatusFinalized, a.Status)
	assert.Nil(t, a.Winner)
	assert.False(t, got.Active)
	assert.NotNil(t, a.FinalizedAt)

	// No winner means no follow-up link and no notification.
	assert.Len(t, store.links, 1)
	assert.Empty(t, notifier.sent)
	require.Len(t, publisher.finalized, 1)
	assert.Empty(t, publisher.finalized[0].WinnerEmail)
	assert.Empty(t, publisher.finalized[0].FollowupLinkID)
}

func TestFinalizeIssuesFollowupLink(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	link := seedAuctionLink(store, now.Add(time.Hour))
	store.products[1].DigitalFileKey = "files/poster.pdf"
	store.products[1].DigitalFileName = "poster.pdf"
	notifier := &fakeNotifier{}
	svc, publisher := newTestService(store, notifier, now)
	ctx := context.Background()

	_, err := svc.PlaceBid(ctx, link.ID, "buyer@example.com", 1200)
	require.NoError(t, err)

	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = svc.EnsureFinalizedByID(ctx, link.ID)
	require.NoError(t, err)

	require.Len(t, publisher.finalized, 1)
	followupID := publisher.finalized[0].FollowupLinkID
	require.NotEmpty(t, followupID)
	assert.NotEqual(t, link.ID, followupID)

	followup := store.links[followupID]
	require.NotNil(t, followup)
	assert.Equal(t, link.ProductID, followup.ProductID)
	assert.Equal(t, link.SellerID, followup.SellerID)
	assert.True(t, followup.Active)
	assert.False(t, followup.AuctionEnabled)
	assert.Equal(t, "files/poster.pdf", followup.DigitalFileKey)
	require.NotNil(t, followup.PriceOverrideCents)
	assert.Equal(t, int64(1200), *followup.PriceOverrideCents)
	require.NotNil(t, followup.ExpiresAt)
	assert.Equal(t, now.Add(48*time.Hour), followup.ExpiresAt.UTC())

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, "buyer@example.com", sent.to)
	assert.Equal(t, int64(1200), sent.amountCents)
	assert.Equal(t, "https://shop.test/pay/"+followupID+"?digital=1", sent.checkoutURL)
}

func TestFinalizeNotificationFailureSwallowed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	link := seedAuctionLink(store, now.Add(-time.Minute))
	require.NoError(t, store.CreateBid(context.Background(), &models.Bid{
		ID: "bid-1", LinkID: link.ID, Email: "buyer@example.com", AmountCents: 1000,
	}))
	svc, publisher := newTestService(store, &fakeNotifier{err: errors.New("smtp down")}, now)

	got, err := svc.EnsureFinalizedByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusFinalized, got.Auction().Status)

	// Follow-up link still exists and the event still carries it.
	require.Len(t, publisher.finalized, 1)
	assert.NotEmpty(t, publisher.finalized[0].FollowupLinkID)
	assert.Contains(t, store.links, publisher.finalized[0].FollowupLinkID)
}

func TestFinalizeFollowupPersistFailurePropagates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	link := seedAuctionLink(store, now.Add(-time.Minute))
	require.NoError(t, store.CreateBid(context.Background(), &models.Bid{
		ID: "bid-1", LinkID: link.ID, Email: "buyer@example.com", AmountCents: 1000,
	}))
	store.createLinkErr = errors.New("db unavailable")
	svc, publisher := newTestService(store, &fakeNotifier{}, now)

	_, err := svc.EnsureFinalizedByID(context.Background(), link.ID)
	require.Error(t, err)

	// The finalization itself stands; only the follow-up issuance failed.
	assert.Equal(t, models.AuctionStatusFinalized, store.links[link.ID].AuctionStatus)
	require.Len(t, publisher.finalized, 1)
	assert.Empty(t, publisher.finalized[0].FollowupLinkID)
}

func TestWinnerTieBreakEarliestBid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	link := seedAuctionLink(store, now.Add(-time.Minute))
	ctx := context.Background()

	// Two bids at the same amount: the validation race admits both. The
	// earlier one wins.
	require.NoError(t, store.CreateBid(ctx, &models.Bid{
		ID: "bid-a", LinkID: link.ID, Email: "first@example.com", AmountCents: 1000,
		CreatedAt: now.Add(-10 * time.Minute),
	}))
	require.NoError(t, store.CreateBid(ctx, &models.Bid{
		ID: "bid-b", LinkID: link.ID, Email: "second@example.com", AmountCents: 1000,
		CreatedAt: now.Add(-5 * time.Minute),
	}))

	svc, _ := newTestService(store, &fakeNotifier{}, now)
	got, err := svc.EnsureFinalizedByID(ctx, link.ID)
	require.NoError(t, err)

	winner := got.Auction().Winner
	require.NotNil(t, winner)
	assert.Equal(t, "first@example.com", winner.Email)
	assert.Equal(t, "bid-a", winner.BidID)
}

func TestEnsureFinalizedBeforeCloseIsNoop(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	link := seedAuctionLink(store, now.Add(time.Hour))
	svc, publisher := newTestService(store, &fakeNotifier{}, now)

	got, err := svc.EnsureFinalizedByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusActive, got.Auction().Status)
	assert.Empty(t, publisher.finalized)
}
