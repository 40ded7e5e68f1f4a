package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rentacar-service/internal/models"
)

const reservationColumns = `id, customer_id, car_id, start_date, end_date, pickup_branch_id, dropoff_branch_id,
	status, total_price, currency, notes, created_at, updated_at`

// GetReservationByID retrieves a reservation by ID
func (s *Store) GetReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, "SELECT "+reservationColumns+" FROM reservations WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation %d: %w", id, err)
	}
	return &r, nil
}

// ListReservations returns reservations matching the filter, newest first
func (s *Store) ListReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, int64, error) {
	var conds []string
	var args []interface{}

	if f.CustomerID != nil {
		args = append(args, *f.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if f.CarID != nil {
		args = append(args, *f.CarID)
		conds = append(conds, fmt.Sprintf("car_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.BranchID != nil {
		args = append(args, *f.BranchID)
		conds = append(conds, fmt.Sprintf("(pickup_branch_id = $%d OR dropoff_branch_id = $%d)", len(args), len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		conds = append(conds, fmt.Sprintf("start_date <= $%d", len(args)))
	}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		conds = append(conds, fmt.Sprintf("end_date >= $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reservations"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM reservations%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		reservationColumns, where, len(args)+1, len(args)+2)
	args = append(args, f.Size, f.Page*f.Size)

	var reservations []models.Reservation
	if err := s.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, total, nil
}

// FindOverlappingReservations locks every active reservation of the car whose
// [start_date, end_date] intersects [start, end] (inclusive on both ends)
func (t *txStore) FindOverlappingReservations(ctx context.Context, carID int64, start, end models.Date) ([]models.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE car_id = $1
		AND status = ANY($2)
		AND start_date <= $4
		AND end_date >= $3
		FOR UPDATE`

	var overlaps []models.Reservation
	if err := t.tx.SelectContext(ctx, &overlaps, query, carID, activeStatuses(), start, end); err != nil {
		return nil, fmt.Errorf("failed to query overlapping reservations: %w", err)
	}
	return overlaps, nil
}

// GetReservationForUpdate retrieves and locks a reservation row
func (t *txStore) GetReservationForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	var r models.Reservation
	err := t.tx.GetContext(ctx, &r, "SELECT "+reservationColumns+" FROM reservations WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock reservation %d: %w", id, err)
	}
	return &r, nil
}

// CreateReservation inserts a reservation and fills in generated fields
func (t *txStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		INSERT INTO reservations (customer_id, car_id, start_date, end_date, pickup_branch_id,
			dropoff_branch_id, status, total_price, currency, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return t.tx.QueryRowxContext(ctx, query,
		r.CustomerID, r.CarID, r.StartDate, r.EndDate, r.PickupBranchID,
		r.DropoffBranchID, r.Status, r.TotalPrice, r.Currency, r.Notes,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
}

// UpdateReservation rewrites every mutable column of a reservation
func (t *txStore) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		UPDATE reservations
		SET customer_id = $1, car_id = $2, start_date = $3, end_date = $4, pickup_branch_id = $5,
			dropoff_branch_id = $6, status = $7, total_price = $8, currency = $9, notes = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at`

	return t.tx.QueryRowxContext(ctx, query,
		r.CustomerID, r.CarID, r.StartDate, r.EndDate, r.PickupBranchID,
		r.DropoffBranchID, r.Status, r.TotalPrice, r.Currency, r.Notes, r.ID,
	).Scan(&r.UpdatedAt)
}

// UpdateReservationStatus updates reservation status
func (t *txStore) UpdateReservationStatus(ctx context.Context, id int64, status models.ReservationStatus) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE reservations SET status = $1, updated_at = NOW() WHERE id = $2",
		status, id)
	return err
}
