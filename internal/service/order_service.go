package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linkmarket/internal/broker"
	"linkmarket/internal/mailer"
	"linkmarket/internal/models"
	"linkmarket/internal/payments"
	"linkmarket/internal/store"
	"linkmarket/internal/util"
)

// OrderService turns checkout-completed events into durable paid orders,
// payout transfers, and buyer receipts. It is the Kafka consumer side of the
// checkout flow.
type OrderService struct {
	store          *store.Store
	payments       *payments.Client
	mailer         *mailer.Mailer
	eventPublisher *broker.EventPublisher
	baseURL        string
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	store *store.Store,
	payments *payments.Client,
	mailer *mailer.Mailer,
	eventPublisher *broker.EventPublisher,
	baseURL string,
) *OrderService {
	return &OrderService{
		store:          store,
		payments:       payments,
		mailer:         mailer,
		eventPublisher: eventPublisher,
		baseURL:        baseURL,
		logger:         util.GetLogger(),
	}
}

// HandleCheckoutCompleted records the paid order for a completed checkout
// session. Processing is idempotent on the event id: redelivered events are
// acknowledged without re-recording, re-paying, or re-mailing.
func (s *OrderService) HandleCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error {
	ctx, span := util.StartSpan(ctx, "OrderService.HandleCheckoutCompleted")
	defer span.End()

	processed, err := s.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event status: %w", err)
	}
	if processed {
		s.logger.Info("Event already processed, skipping",
			zap.String("event_id", event.EventID),
			zap.String("session_id", event.SessionID))
		return nil
	}

	link, err := s.store.GetLinkByID(ctx, event.LinkID)
	if err != nil {
		return fmt.Errorf("failed to load link %s: %w", event.LinkID, err)
	}
	product, err := s.store.GetProductByID(ctx, link.ProductID)
	if err != nil {
		return fmt.Errorf("failed to load product %d: %w", link.ProductID, err)
	}

	order, err := s.store.GetOrderBySessionID(ctx, event.SessionID)
	if err != nil {
		return fmt.Errorf("failed to look up order for session %s: %w", event.SessionID, err)
	}
	if order == nil {
		// The webhook can outrun the pending-order write, or the session may
		// have been created by an older deployment. Record the order now.
		order = &models.Order{
			LinkID:             link.ID,
			ProductID:          product.ID,
			SellerID:           link.SellerID,
			BuyerEmail:         event.BuyerEmail,
			AmountCents:        event.AmountCents,
			Currency:           event.Currency,
			ProcessorSessionID: event.SessionID,
			Status:             models.OrderStatusPaid,
		}
		if err := s.store.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to record order: %w", err)
		}
	} else if order.Status != models.OrderStatusPaid {
		if err := s.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPaid); err != nil {
			return fmt.Errorf("failed to mark order %d paid: %w", order.ID, err)
		}
		order.Status = models.OrderStatusPaid
	}
	util.OrdersRecordedTotal.Inc()

	transferID := s.payOut(ctx, order)
	s.sendReceipt(order, product, link)

	if err := s.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	recorded := &models.OrderRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderRecorded,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		LinkID:      order.LinkID,
		SellerID:    order.SellerID,
		AmountCents: order.AmountCents,
		TransferID:  transferID,
	}
	if err := s.eventPublisher.PublishOrderRecorded(ctx, recorded); err != nil {
		s.logger.Error("Failed to publish OrderRecorded event",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}

	s.logger.Info("Order recorded",
		zap.Int64("order_id", order.ID),
		zap.String("link_id", order.LinkID),
		zap.Int64("amount_cents", order.AmountCents))
	return nil
}

// payOut transfers the order amount to the seller's connected account. A
// failed transfer is logged and retried by ops, never by redelivering the
// event: the order stays recorded either way.
func (s *OrderService) payOut(ctx context.Context, order *models.Order) string {
	seller, err := s.store.GetSellerByID(ctx, order.SellerID)
	if err != nil {
		util.PayoutTransfersFailed.Inc()
		s.logger.Error("Failed to load seller for payout",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return ""
	}
	if seller.ProcessorAccountID == "" {
		util.PayoutTransfersFailed.Inc()
		s.logger.Error("Seller has no processor account, payout skipped",
			zap.Int64("seller_id", seller.ID), zap.Int64("order_id", order.ID))
		return ""
	}

	transfer, err := s.payments.CreateTransfer(ctx, seller.ProcessorAccountID,
		order.AmountCents, order.Currency, fmt.Sprintf("order-%d", order.ID))
	if err != nil {
		util.PayoutTransfersFailed.Inc()
		s.logger.Error("Failed to create payout transfer",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return ""
	}

	if err := s.store.UpdateOrderPayout(ctx, order.ID, transfer.ID); err != nil {
		s.logger.Error("Failed to store payout reference",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}
	util.PayoutTransfersTotal.Inc()
	return transfer.ID
}

func (s *OrderService) sendReceipt(order *models.Order, product *models.Product, link *models.Link) {
	downloadURL := ""
	if d := link.DigitalDownload(); !d.Empty() {
		downloadURL = fmt.Sprintf("%s/downloads/%s", s.baseURL, d.FileKey)
	}
	if err := s.mailer.SendReceipt(order.BuyerEmail, product.Title,
		order.AmountCents, order.Currency, downloadURL); err != nil {
		s.logger.Error("Failed to send receipt",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}
}
