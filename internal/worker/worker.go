package worker

import (
	"context"

	"rentacar-service/internal/broker"
	"rentacar-service/internal/service"
	"rentacar-service/internal/util"

	"go.uber.org/zap"
)

// PaymentOutcomeWorker consumes payment results and moves reservations accordingly
type PaymentOutcomeWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewPaymentOutcomeWorker creates a new payment outcome worker
func NewPaymentOutcomeWorker(
	consumer *broker.Consumer,
	handler *service.PaymentOutcomeHandler,
) *PaymentOutcomeWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnPaymentSuccess(handler.HandlePaymentSuccess)
	eventHandler.OnPaymentFailed(handler.HandlePaymentFailed)

	return &PaymentOutcomeWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start blocks consuming until ctx is cancelled
func (w *PaymentOutcomeWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting payment outcome worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *PaymentOutcomeWorker) Stop() error {
	w.logger.Info("Stopping payment outcome worker")
	return w.consumer.Close()
}
