package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rentacar-service/internal/models"

	"github.com/jmoiron/sqlx"
)

func getCustomerByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := sqlx.GetContext(ctx, q, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer %d: %w", id, err)
	}
	return &customer, nil
}

func getBranchByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Branch, error) {
	var branch models.Branch
	err := sqlx.GetContext(ctx, q, &branch, "SELECT * FROM branches WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch %d: %w", id, err)
	}
	return &branch, nil
}

// getCarByID excludes soft-deleted cars unless includeDeleted is set
func getCarByID(ctx context.Context, q sqlx.QueryerContext, id int64, includeDeleted bool) (*models.Car, error) {
	query := "SELECT * FROM cars WHERE id = $1"
	if !includeDeleted {
		query += " AND deleted = FALSE"
	}

	var car models.Car
	err := sqlx.GetContext(ctx, q, &car, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car %d: %w", id, err)
	}
	return &car, nil
}

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	return getCustomerByID(ctx, s.db, id)
}

// GetBranchByID retrieves a branch by ID
func (s *Store) GetBranchByID(ctx context.Context, id int64) (*models.Branch, error) {
	return getBranchByID(ctx, s.db, id)
}

// GetCarByID retrieves a car by ID
func (s *Store) GetCarByID(ctx context.Context, id int64, includeDeleted bool) (*models.Car, error) {
	return getCarByID(ctx, s.db, id, includeDeleted)
}

// ListAvailableCars returns cars at a branch that are AVAILABLE, not deleted and carry no active
// reservation overlapping the window. Read-only; no locks are taken.
func (s *Store) ListAvailableCars(ctx context.Context, f models.AvailabilityFilter) ([]models.Car, int64, error) {
	conds := []string{
		"c.branch_id = $1",
		"c.status = $2",
		"c.deleted = FALSE",
		`c.id NOT IN (
			SELECT r.car_id FROM reservations r
			WHERE r.status = ANY($3) AND r.start_date <= $5 AND r.end_date >= $4
		)`,
	}
	args := []interface{}{f.BranchID, models.CarStatusAvailable, activeStatuses(), f.StartDate, f.EndDate}

	if f.Category != nil {
		args = append(args, *f.Category)
		conds = append(conds, fmt.Sprintf("c.category = $%d", len(args)))
	}
	if f.Transmission != nil {
		args = append(args, *f.Transmission)
		conds = append(conds, fmt.Sprintf("c.transmission = $%d", len(args)))
	}
	if f.FuelType != nil {
		args = append(args, *f.FuelType)
		conds = append(conds, fmt.Sprintf("c.fuel_type = $%d", len(args)))
	}
	if f.MinSeats != nil {
		args = append(args, *f.MinSeats)
		conds = append(conds, fmt.Sprintf("c.seats >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		conds = append(conds, fmt.Sprintf("c.daily_price <= $%d", len(args)))
	}

	where := strings.Join(conds, " AND ")

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM cars c WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count available cars: %w", err)
	}

	query := fmt.Sprintf("SELECT c.* FROM cars c WHERE %s ORDER BY c.daily_price, c.id LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	pageArgs := append(args, f.Size, f.Page*f.Size)

	var cars []models.Car
	if err := s.db.SelectContext(ctx, &cars, query, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list available cars: %w", err)
	}
	return cars, total, nil
}

func (t *txStore) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	return getCustomerByID(ctx, t.tx, id)
}

func (t *txStore) GetBranchByID(ctx context.Context, id int64) (*models.Branch, error) {
	return getBranchByID(ctx, t.tx, id)
}

func (t *txStore) GetCarByID(ctx context.Context, id int64, includeDeleted bool) (*models.Car, error) {
	return getCarByID(ctx, t.tx, id, includeDeleted)
}

// LockCar blocks until this transaction holds the car row lock
func (t *txStore) LockCar(ctx context.Context, carID int64) error {
	var id int64
	err := t.tx.GetContext(ctx, &id, "SELECT id FROM cars WHERE id = $1 FOR UPDATE", carID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock car %d: %w", carID, err)
	}
	return nil
}

// UpdateCarStatus updates the advisory car status
func (t *txStore) UpdateCarStatus(ctx context.Context, carID int64, status models.CarStatus) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE cars SET status = $1, updated_at = NOW() WHERE id = $2",
		status, carID)
	return err
}

// SetCarDeleted flips the soft-delete flag together with the status that accompanies it
func (t *txStore) SetCarDeleted(ctx context.Context, carID int64, deleted bool, status models.CarStatus) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE cars SET deleted = $1, status = $2, updated_at = NOW() WHERE id = $3",
		deleted, status, carID)
	return err
}
