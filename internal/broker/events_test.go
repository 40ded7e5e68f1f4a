package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"rentacar-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	key       string
	eventType string
	event     interface{}
}

type fakeWriter struct {
	sent []captured
}

func (w *fakeWriter) PublishEvent(ctx context.Context, key, eventType string, event interface{}) error {
	w.sent = append(w.sent, captured{key: key, eventType: eventType, event: event})
	return nil
}

func TestPublisherKeysByCar(t *testing.T) {
	w := &fakeWriter{}
	ep := NewEventPublisher(w)
	ctx := context.Background()

	require.NoError(t, ep.PublishReservationEvent(ctx, &models.ReservationEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeReservationCreated},
		CarID:     7,
	}))
	require.NoError(t, ep.PublishMaintenanceEvent(ctx, &models.MaintenanceEvent{
		BaseEvent: models.BaseEvent{EventID: "e2", EventType: models.EventTypeMaintenanceStarted},
		CarID:     7,
	}))

	require.Len(t, w.sent, 2)
	assert.Equal(t, "car-7", w.sent[0].key)
	assert.Equal(t, models.EventTypeReservationCreated, w.sent[0].eventType)
	assert.Equal(t, "car-7", w.sent[1].key)
	assert.Equal(t, models.EventTypeMaintenanceStarted, w.sent[1].eventType)
}

func message(t *testing.T, v interface{}) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func TestHandleMessageRoutesPaymentEvents(t *testing.T) {
	eh := NewEventHandler()
	var success *models.PaymentSuccessEvent
	var failed *models.PaymentFailedEvent
	eh.OnPaymentSuccess(func(ctx context.Context, e *models.PaymentSuccessEvent) error {
		success = e
		return nil
	})
	eh.OnPaymentFailed(func(ctx context.Context, e *models.PaymentFailedEvent) error {
		failed = e
		return errors.New("db down")
	})
	ctx := context.Background()

	err := eh.HandleMessage(ctx, message(t, models.PaymentSuccessEvent{
		BaseEvent:     models.BaseEvent{EventID: "p1", EventType: models.EventTypePaymentSuccess},
		ReservationID: 42,
		Amount:        decimal.RequireFromString("250.00"),
	}))
	require.NoError(t, err)
	require.NotNil(t, success)
	assert.Equal(t, int64(42), success.ReservationID)
	assert.Equal(t, "250", success.Amount.String())

	err = eh.HandleMessage(ctx, message(t, models.PaymentFailedEvent{
		BaseEvent:     models.BaseEvent{EventID: "p2", EventType: models.EventTypePaymentFailed},
		ReservationID: 43,
		Reason:        "declined",
	}))
	assert.EqualError(t, err, "db down")
	require.NotNil(t, failed)
	assert.Equal(t, "declined", failed.Reason)
}

func TestHandleMessageDropsGarbage(t *testing.T) {
	eh := NewEventHandler()
	called := false
	eh.OnPaymentSuccess(func(ctx context.Context, e *models.PaymentSuccessEvent) error {
		called = true
		return nil
	})

	assert.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")}))
	assert.NoError(t, eh.HandleMessage(context.Background(), message(t, models.BaseEvent{EventType: "SOMETHING_ELSE"})))
	assert.False(t, called)
}
