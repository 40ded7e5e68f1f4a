package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeReservationCreated   = "RESERVATION_CREATED"
	EventTypeReservationUpdated   = "RESERVATION_UPDATED"
	EventTypeReservationConfirmed = "RESERVATION_CONFIRMED"
	EventTypeReservationCancelled = "RESERVATION_CANCELLED"
	EventTypeReservationCompleted = "RESERVATION_COMPLETED"
	EventTypeMaintenanceScheduled = "MAINTENANCE_SCHEDULED"
	EventTypeMaintenanceStarted   = "MAINTENANCE_STARTED"
	EventTypeMaintenanceCompleted = "MAINTENANCE_COMPLETED"
	EventTypeMaintenanceCancelled = "MAINTENANCE_CANCELLED"
	EventTypePaymentSuccess       = "PAYMENT_SUCCESS"
	EventTypePaymentFailed        = "PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationEvent published after every committed reservation write
type ReservationEvent struct {
	BaseEvent
	ReservationID int64             `json:"reservation_id"`
	CustomerID    int64             `json:"customer_id"`
	CarID         int64             `json:"car_id"`
	StartDate     Date              `json:"start_date"`
	EndDate       Date              `json:"end_date"`
	Status        ReservationStatus `json:"status"`
	TotalPrice    decimal.Decimal   `json:"total_price"`
	Currency      string            `json:"currency"`
}

// MaintenanceEvent published after maintenance transitions
type MaintenanceEvent struct {
	BaseEvent
	MaintenanceID int64             `json:"maintenance_id"`
	CarID         int64             `json:"car_id"`
	Status        MaintenanceStatus `json:"status"`
	CarStatus     CarStatus         `json:"car_status,omitempty"`
}

// PaymentSuccessEvent published by the payment service once a reservation is paid
type PaymentSuccessEvent struct {
	BaseEvent
	ReservationID int64           `json:"reservation_id"`
	PaymentID     int64           `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	TxID          string          `json:"tx_id"`
}

// PaymentFailedEvent published by the payment service when a charge is declined
type PaymentFailedEvent struct {
	BaseEvent
	ReservationID int64  `json:"reservation_id"`
	PaymentID     int64  `json:"payment_id"`
	Reason        string `json:"reason"`
}
