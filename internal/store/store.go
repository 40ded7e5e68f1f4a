package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"rentacar-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when a looked-up row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrLockTimeout is returned when a row lock could not be acquired within the lock timeout
	ErrLockTimeout = errors.New("lock not acquired within timeout")
)

// Postgres error codes
const (
	pqLockNotAvailable = "55P03"
	pqDeadlockDetected = "40P01"
)

type Store struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewStore creates a new database store
func NewStore(databaseURL string, lockTimeout time.Duration) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, lockTimeout: lockTimeout}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema; statements are idempotent
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// TxStore is the set of operations available inside one unit of work.
// Row locks taken through it are held until the enclosing transaction ends.
type TxStore interface {
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	GetBranchByID(ctx context.Context, id int64) (*models.Branch, error)
	GetCarByID(ctx context.Context, id int64, includeDeleted bool) (*models.Car, error)

	// LockCar takes an exclusive lock on the car row, serialising every writer of that car's calendar
	LockCar(ctx context.Context, carID int64) error
	// FindOverlappingReservations returns active reservations of carID intersecting [start,end], locked FOR UPDATE
	FindOverlappingReservations(ctx context.Context, carID int64, start, end models.Date) ([]models.Reservation, error)

	GetReservationForUpdate(ctx context.Context, id int64) (*models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservationStatus(ctx context.Context, id int64, status models.ReservationStatus) error

	GetMaintenanceForUpdate(ctx context.Context, id int64) (*models.Maintenance, error)
	CreateMaintenance(ctx context.Context, m *models.Maintenance) error
	UpdateMaintenance(ctx context.Context, m *models.Maintenance) error

	UpdateCarStatus(ctx context.Context, carID int64, status models.CarStatus) error
	SetCarDeleted(ctx context.Context, carID int64, deleted bool, status models.CarStatus) error
}

type txStore struct {
	tx *sqlx.Tx
}

// WithTx runs fn inside a single transaction. fn's error (or a panic) rolls back; success commits.
func (s *Store) WithTx(ctx context.Context, fn func(tx TxStore) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	if err = fn(&txStore{tx: tx}); err != nil {
		return classifyError(err)
	}

	if err = tx.Commit(); err != nil {
		return classifyError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// classifyError maps lock-related Postgres failures onto ErrLockTimeout
func classifyError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqLockNotAvailable, pqDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrLockTimeout, pqErr.Message)
		}
	}
	return err
}

// activeStatuses renders the active reservation set as a Postgres text array parameter
func activeStatuses() interface{} {
	statuses := make([]string, len(models.ActiveReservationStatuses))
	for i, s := range models.ActiveReservationStatuses {
		statuses[i] = string(s)
	}
	return pq.Array(statuses)
}
