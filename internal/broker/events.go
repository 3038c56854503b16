package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"linkmarket/internal/models"
	"linkmarket/internal/util"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishLinkCreated publishes LinkCreated event
func (ep *EventPublisher) PublishLinkCreated(ctx context.Context, event *models.LinkCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, linkKey(event.LinkID), event)
}

// PublishBidPlaced publishes BidPlaced event
func (ep *EventPublisher) PublishBidPlaced(ctx context.Context, event *models.BidPlacedEvent) error {
	return ep.producer.PublishEvent(ctx, linkKey(event.LinkID), event)
}

// PublishAuctionFinalized publishes AuctionFinalized event
func (ep *EventPublisher) PublishAuctionFinalized(ctx context.Context, event *models.AuctionFinalizedEvent) error {
	return ep.producer.PublishEvent(ctx, linkKey(event.LinkID), event)
}

// PublishCheckoutCompleted publishes CheckoutCompleted event
func (ep *EventPublisher) PublishCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, linkKey(event.LinkID), event)
}

// PublishOrderRecorded publishes OrderRecorded event
func (ep *EventPublisher) PublishOrderRecorded(ctx context.Context, event *models.OrderRecordedEvent) error {
	return ep.producer.PublishEvent(ctx, linkKey(event.LinkID), event)
}

func linkKey(linkID string) string {
	return fmt.Sprintf("link-%s", linkID)
}

// EventHandler routes consumed events to registered callbacks
type EventHandler struct {
	logger              *zap.Logger
	onCheckoutCompleted func(context.Context, *models.CheckoutCompletedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnCheckoutCompleted registers a handler for CheckoutCompleted events
func (eh *EventHandler) OnCheckoutCompleted(handler func(context.Context, *models.CheckoutCompletedEvent) error) {
	eh.onCheckoutCompleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeCheckoutCompleted:
		if eh.onCheckoutCompleted != nil {
			var event models.CheckoutCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CheckoutCompleted event: %w", err)
			}
			return eh.onCheckoutCompleted(ctx, &event)
		}

	default:
		// Link, bid, and auction events are observational; no consumer in
		// this service acts on them.
	}

	return nil
}
