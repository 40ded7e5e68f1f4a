package service

import (
	"context"
	"errors"
	"fmt"

	"rentacar-service/internal/models"
	"rentacar-service/internal/util"

	"go.uber.org/zap"
)

// ProcessedEventStore records consumed event ids; *store.Store satisfies it
type ProcessedEventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}

// PaymentOutcomeHandler drives reservations from payment results
type PaymentOutcomeHandler struct {
	events       ProcessedEventStore
	reservations *ReservationService
	logger       *zap.Logger
}

func NewPaymentOutcomeHandler(events ProcessedEventStore, reservations *ReservationService) *PaymentOutcomeHandler {
	return &PaymentOutcomeHandler{
		events:       events,
		reservations: reservations,
		logger:       util.GetLogger(),
	}
}

// HandlePaymentSuccess confirms the paid reservation
func (h *PaymentOutcomeHandler) HandlePaymentSuccess(ctx context.Context, event *models.PaymentSuccessEvent) error {
	ctx, span := util.StartSpan(ctx, "PaymentOutcomeHandler.HandlePaymentSuccess")
	defer span.End()

	return h.handle(ctx, event.BaseEvent, event.ReservationID, func() error {
		r, err := h.reservations.GetReservation(ctx, event.ReservationID)
		if err != nil {
			return err
		}
		if !event.Amount.IsZero() && !event.Amount.Equal(r.TotalPrice) {
			h.logger.Warn("Payment amount differs from reservation total",
				zap.Int64("reservation_id", r.ID),
				zap.String("amount", event.Amount.String()),
				zap.String("total_price", r.TotalPrice.String()))
		}

		_, err = h.reservations.ConfirmReservation(ctx, event.ReservationID)
		return err
	})
}

// HandlePaymentFailed cancels the reservation whose payment was declined
func (h *PaymentOutcomeHandler) HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "PaymentOutcomeHandler.HandlePaymentFailed")
	defer span.End()

	h.logger.Warn("Payment failed, cancelling reservation",
		zap.Int64("reservation_id", event.ReservationID),
		zap.String("reason", event.Reason))

	return h.handle(ctx, event.BaseEvent, event.ReservationID, func() error {
		_, err := h.reservations.CancelReservation(ctx, event.ReservationID)
		return err
	})
}

// handle skips already processed events. Business rejections (unknown reservation,
// illegal transition) are final and get acknowledged; anything else is returned so
// the message is redelivered.
func (h *PaymentOutcomeHandler) handle(ctx context.Context, base models.BaseEvent, reservationID int64, apply func() error) error {
	processed, err := h.events.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		h.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		util.PaymentEventsProcessedTotal.WithLabelValues(base.EventType, "duplicate").Inc()
		return nil
	}

	result := "applied"
	if err := apply(); err != nil {
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrNotFound) {
			util.PaymentEventsProcessedTotal.WithLabelValues(base.EventType, "error").Inc()
			return err
		}
		result = "rejected"
		h.logger.Warn("Payment event rejected",
			zap.String("event_id", base.EventID),
			zap.String("event_type", base.EventType),
			zap.Int64("reservation_id", reservationID),
			zap.Error(err))
	}

	if _, err := h.events.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		h.logger.Error("Failed to mark event processed", zap.String("event_id", base.EventID), zap.Error(err))
	}
	util.PaymentEventsProcessedTotal.WithLabelValues(base.EventType, result).Inc()
	return nil
}
