package auction

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"linkmarket/internal/models"
	"linkmarket/internal/util"
)

// Finalizer translates a just-determined winner into a purchasable outcome:
// a fresh short-lived payment link plus a notification email.
type Finalizer struct {
	store          Store
	notifier       Notifier
	baseURL        string
	followupExpiry time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewFinalizer creates a finalization orchestrator
func NewFinalizer(store Store, notifier Notifier, baseURL string, followupExpiry time.Duration) *Finalizer {
	return &Finalizer{
		store:          store,
		notifier:       notifier,
		baseURL:        baseURL,
		followupExpiry: followupExpiry,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// HandleWin mints the winner's follow-up link and notifies them. The caller
// has already committed status=finalized; nothing here rolls that back.
// Persistence failures propagate; notification failures are logged and
// swallowed. Returns the follow-up link id.
func (f *Finalizer) HandleWin(ctx context.Context, link *models.Link) (string, error) {
	winner := link.Auction().Winner
	if winner == nil {
		return "", fmt.Errorf("link %s finalized without winner", link.ID)
	}

	product, err := f.store.GetProductByID(ctx, link.ProductID)
	if err != nil {
		return "", fmt.Errorf("failed to load product %d: %w", link.ProductID, err)
	}

	// The auction link's snapshot takes precedence over the product's.
	snapshot := link.DigitalDownload()
	if snapshot.Empty() {
		snapshot = models.DigitalDownload{
			FileKey:  product.DigitalFileKey,
			FileName: product.DigitalFileName,
		}
	}

	id, err := models.NewLinkID()
	if err != nil {
		return "", err
	}
	// The follow-up link must charge the winning bid, not the product's
	// nominal price.
	winningAmount := winner.AmountCents
	expiresAt := f.now().Add(f.followupExpiry)
	followup := &models.Link{
		ID:                 id,
		ProductID:          link.ProductID,
		SellerID:           link.SellerID,
		Active:             true,
		ExpiresAt:          &expiresAt,
		DigitalFileKey:     snapshot.FileKey,
		DigitalFileName:    snapshot.FileName,
		PriceOverrideCents: &winningAmount,
	}
	if err := f.store.CreateLink(ctx, followup); err != nil {
		return "", fmt.Errorf("failed to create follow-up link: %w", err)
	}

	hasDigital := !snapshot.Empty()
	checkoutURL := f.checkoutURL(followup.ID, hasDigital)

	if err := f.notifier.SendWinnerNotification(winner.Email, checkoutURL, winner.AmountCents, product.Currency, expiresAt); err != nil {
		util.WinnerNotificationsFailed.Inc()
		f.logger.Error("Failed to notify auction winner",
			zap.String("link_id", link.ID),
			zap.String("followup_link_id", followup.ID),
			zap.Error(err))
	} else {
		util.WinnerNotificationsTotal.Inc()
	}

	f.logger.Info("Winner follow-up link issued",
		zap.String("link_id", link.ID),
		zap.String("followup_link_id", followup.ID),
		zap.Int64("amount_cents", winner.AmountCents))

	return followup.ID, nil
}

func (f *Finalizer) checkoutURL(linkID string, hasDigital bool) string {
	u := f.baseURL + "/pay/" + linkID
	if hasDigital {
		u += "?" + url.Values{"digital": {"1"}}.Encode()
	}
	return u
}
