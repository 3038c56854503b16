package auction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linkmarket/internal/models"
	"linkmarket/internal/util"
)

// Publisher emits domain events. Publishing is fire-and-forget: failures are
// logged, never surfaced to the request.
type Publisher interface {
	PublishBidPlaced(ctx context.Context, event *models.BidPlacedEvent) error
	PublishAuctionFinalized(ctx context.Context, event *models.AuctionFinalizedEvent) error
}

// Service owns the auction state machine and the bid intake / summary
// control logic. There is no background timer: closing is discovered lazily
// by whichever request first observes the auction past its end time.
type Service struct {
	store           Store
	finalizer       *Finalizer
	publisher       Publisher
	recentBidsLimit int
	logger          *zap.Logger
	now             func() time.Time
}

// NewService creates the auction service
func NewService(store Store, finalizer *Finalizer, publisher Publisher, recentBidsLimit int) *Service {
	return &Service{
		store:           store,
		finalizer:       finalizer,
		publisher:       publisher,
		recentBidsLimit: recentBidsLimit,
		logger:          util.GetLogger(),
		now:             time.Now,
	}
}

// PlaceBid validates and persists one bid. Preconditions, in order: link
// exists, auction enabled, auction not past close (finalizing lazily if it
// is), amount meets the computed minimum. No per-link lock is taken: two
// racing bids may validate against the same highest-bid snapshot, which is
// accepted since ranking is always recomputed from stored bids.
func (s *Service) PlaceBid(ctx context.Context, linkID, email string, amountCents int64) (*models.Bid, error) {
	ctx, span := util.StartSpan(ctx, "AuctionService.PlaceBid")
	defer span.End()

	linkID = models.NormalizeLinkID(linkID)
	if linkID == "" {
		return nil, &models.ValidationError{Field: "link_id", Reason: "missing"}
	}
	if !strings.Contains(email, "@") {
		return nil, &models.ValidationError{Field: "email", Reason: "not an email address"}
	}
	if amountCents < 0 {
		return nil, &models.ValidationError{Field: "amount_cents", Reason: "must be a non-negative integer"}
	}

	link, err := s.store.GetLinkByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if !link.AuctionEnabled {
		util.BidsRejectedTotal.WithLabelValues("auction_not_enabled").Inc()
		return nil, models.ErrAuctionNotEnabled
	}

	link, err = s.EnsureFinalized(ctx, link)
	if err != nil {
		return nil, err
	}
	a := link.Auction()
	if a.Status == models.AuctionStatusFinalized {
		util.BidsRejectedTotal.WithLabelValues("auction_ended").Inc()
		return nil, &models.AuctionEndedError{Auction: a}
	}

	highest, err := s.store.GetHighestBid(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query highest bid: %w", err)
	}
	var highestCents *int64
	var currentHigh int64
	if highest != nil {
		highestCents = &highest.AmountCents
		currentHigh = highest.AmountCents
	}
	minRequired := MinimumRequired(a.StartingPriceCents, a.MinIncrementCents, highestCents)
	if amountCents < minRequired {
		util.BidsRejectedTotal.WithLabelValues("bid_too_low").Inc()
		return nil, &models.BidTooLowError{MinRequiredCents: minRequired, HighestCents: currentHigh}
	}

	bid := &models.Bid{
		ID:          uuid.New().String(),
		LinkID:      linkID,
		Email:       email,
		AmountCents: amountCents,
	}
	if err := s.store.CreateBid(ctx, bid); err != nil {
		return nil, fmt.Errorf("failed to store bid: %w", err)
	}

	util.BidsPlacedTotal.Inc()
	s.logger.Info("Bid accepted",
		zap.String("link_id", linkID),
		zap.String("bid_id", bid.ID),
		zap.Int64("amount_cents", amountCents))

	event := &models.BidPlacedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeBidPlaced),
		LinkID:      linkID,
		BidID:       bid.ID,
		AmountCents: amountCents,
	}
	if err := s.publisher.PublishBidPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish BidPlaced event", zap.Error(err))
	}

	return bid, nil
}

// Summary describes current auction state for display.
type Summary struct {
	Auction            *models.Auction `json:"auction"`
	HighestCents       int64           `json:"highest_cents"`
	HighestEmailMasked string          `json:"highest_email_masked,omitempty"`
	Count              int64           `json:"count"`
	Recent             []RecentBid     `json:"recent"`
}

// RecentBid is one entry of the bounded newest-first bid list.
type RecentBid struct {
	AmountCents int64     `json:"amount_cents"`
	EmailMasked string    `json:"email_masked"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetSummary composes the auction summary. Its only possible side effect is
// triggering a lazy finalization; bid data is never mutated.
func (s *Service) GetSummary(ctx context.Context, linkID string) (*Summary, error) {
	ctx, span := util.StartSpan(ctx, "AuctionService.GetSummary")
	defer span.End()

	linkID = models.NormalizeLinkID(linkID)
	link, err := s.store.GetLinkByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if !link.AuctionEnabled {
		return nil, models.ErrAuctionNotEnabled
	}

	link, err = s.EnsureFinalized(ctx, link)
	if err != nil {
		return nil, err
	}

	highest, err := s.store.GetHighestBid(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query highest bid: %w", err)
	}
	count, err := s.store.CountBids(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to count bids: %w", err)
	}
	recent, err := s.store.GetRecentBids(ctx, linkID, s.recentBidsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent bids: %w", err)
	}

	summary := &Summary{
		Auction: link.Auction(),
		Count:   count,
		Recent:  make([]RecentBid, 0, len(recent)),
	}
	if highest != nil {
		summary.HighestCents = highest.AmountCents
		summary.HighestEmailMasked = MaskEmail(highest.Email)
	}
	for _, b := range recent {
		summary.Recent = append(summary.Recent, RecentBid{
			AmountCents: b.AmountCents,
			EmailMasked: MaskEmail(b.Email),
			CreatedAt:   b.CreatedAt,
		})
	}
	return summary, nil
}

// EnsureFinalizedByID is the lazy-close hook for entry points that start
// from an id (checkout-session creation). Returns the link in its
// post-check state.
func (s *Service) EnsureFinalizedByID(ctx context.Context, linkID string) (*models.Link, error) {
	link, err := s.store.GetLinkByID(ctx, models.NormalizeLinkID(linkID))
	if err != nil {
		return nil, err
	}
	return s.EnsureFinalized(ctx, link)
}

// EnsureFinalized runs the active -> finalized transition when the close
// time has passed. Safe under concurrent triggers: the store commit is a
// conditional write, so exactly one caller performs the transition and runs
// the side effects; losers simply observe the terminal state. Duplicate
// winner notifications remain possible if a loser's re-read races the
// winner's commit, which is accepted.
func (s *Service) EnsureFinalized(ctx context.Context, link *models.Link) (*models.Link, error) {
	a := link.Auction()
	if a == nil || a.Status != models.AuctionStatusActive || !a.Ended(s.now()) {
		return link, nil
	}

	start := time.Now()
	defer func() {
		util.FinalizeLatency.Observe(time.Since(start).Seconds())
	}()

	highest, err := s.store.GetHighestBid(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query highest bid for close: %w", err)
	}
	var winner *models.Winner
	if highest != nil {
		winner = &models.Winner{
			Email:       highest.Email,
			BidID:       highest.ID,
			AmountCents: highest.AmountCents,
		}
	}

	committed, err := s.store.FinalizeAuction(ctx, link.ID, winner)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize auction: %w", err)
	}

	// Re-read regardless of who won the commit race: the stored document is
	// the authoritative terminal state.
	link, err = s.store.GetLinkByID(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	if !committed {
		return link, nil
	}

	outcome := "no_bids"
	if winner != nil {
		outcome = "winner"
	}
	util.AuctionsFinalizedTotal.WithLabelValues(outcome).Inc()
	s.logger.Info("Auction finalized",
		zap.String("link_id", link.ID),
		zap.String("outcome", outcome))

	event := &models.AuctionFinalizedEvent{
		BaseEvent: newBaseEvent(models.EventTypeAuctionFinalized),
		LinkID:    link.ID,
	}
	if winner != nil {
		event.WinnerEmail = winner.Email
		event.WinnerBidID = winner.BidID
		event.WinnerAmountCents = winner.AmountCents

		followupID, err := s.finalizer.HandleWin(ctx, link)
		if err != nil {
			// The auction state stands; without a follow-up link the winner
			// has no path to pay, so the failure surfaces to the caller.
			if pubErr := s.publisher.PublishAuctionFinalized(ctx, event); pubErr != nil {
				s.logger.Error("Failed to publish AuctionFinalized event", zap.Error(pubErr))
			}
			return nil, err
		}
		event.FollowupLinkID = followupID
	}

	if err := s.publisher.PublishAuctionFinalized(ctx, event); err != nil {
		s.logger.Error("Failed to publish AuctionFinalized event", zap.Error(err))
	}

	return link, nil
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
