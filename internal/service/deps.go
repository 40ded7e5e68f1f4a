package service

import (
	"context"
	"time"

	"rentacar-service/internal/models"
	"rentacar-service/internal/store"
)

// UnitOfWork runs fn inside one transaction; *store.Store satisfies it
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(tx store.TxStore) error) error
}

type ReservationStore interface {
	UnitOfWork
	GetReservationByID(ctx context.Context, id int64) (*models.Reservation, error)
	ListReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, int64, error)
	GetCarByID(ctx context.Context, id int64, includeDeleted bool) (*models.Car, error)
}

type CarStore interface {
	UnitOfWork
	GetCarByID(ctx context.Context, id int64, includeDeleted bool) (*models.Car, error)
	ListAvailableCars(ctx context.Context, f models.AvailabilityFilter) ([]models.Car, int64, error)
}

type MaintenanceStore interface {
	UnitOfWork
	GetMaintenanceByID(ctx context.Context, id int64) (*models.Maintenance, error)
	ListMaintenance(ctx context.Context, f models.MaintenanceFilter) ([]models.Maintenance, int64, error)
}

// EventPublisher emits domain events after a unit of work commits
type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, event *models.ReservationEvent) error
	PublishMaintenanceEvent(ctx context.Context, event *models.MaintenanceEvent) error
}

// IdempotencyStore deduplicates create requests carrying the same key.
// Claim returns claimed=false and the stored value when the key is already taken;
// the value is empty while the first request is still in flight.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (claimed bool, value string, err error)
	Complete(ctx context.Context, key, value string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// AvailabilityCache holds recently computed availability pages per branch.
// GetAvailability reports a miss as a nil page and returns the generation to store under.
type AvailabilityCache interface {
	GetAvailability(ctx context.Context, f models.AvailabilityFilter) (*models.Page[models.Car], int64, error)
	SetAvailability(ctx context.Context, f models.AvailabilityFilter, generation int64, page models.Page[models.Car], ttl time.Duration) error
	InvalidateBranch(ctx context.Context, branchID int64) error
}
