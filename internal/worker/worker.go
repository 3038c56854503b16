package worker

import (
	"context"

	"go.uber.org/zap"

	"linkmarket/internal/broker"
	"linkmarket/internal/service"
	"linkmarket/internal/util"
)

// OrderWorker consumes checkout-completed events and turns them into
// recorded orders, payout transfers, and buyer receipts.
type OrderWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewOrderWorker creates a new order worker
func NewOrderWorker(consumer *broker.Consumer, orders *service.OrderService) *OrderWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnCheckoutCompleted(orders.HandleCheckoutCompleted)

	return &OrderWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start starts the worker
func (w *OrderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	w.logger.Info("Stopping order worker")
	return w.consumer.Close()
}
