package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rentacar-service/internal/models"
)

// GetMaintenanceByID retrieves a maintenance record by ID
func (s *Store) GetMaintenanceByID(ctx context.Context, id int64) (*models.Maintenance, error) {
	var m models.Maintenance
	err := s.db.GetContext(ctx, &m, "SELECT * FROM maintenance WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get maintenance %d: %w", id, err)
	}
	return &m, nil
}

// ListMaintenance returns maintenance records matching the filter ordered by scheduled date
func (s *Store) ListMaintenance(ctx context.Context, f models.MaintenanceFilter) ([]models.Maintenance, int64, error) {
	var conds []string
	var args []interface{}

	if f.CarID != nil {
		args = append(args, *f.CarID)
		conds = append(conds, fmt.Sprintf("car_id = $%d", len(args)))
	}
	if f.EmployeeID != nil {
		args = append(args, *f.EmployeeID)
		conds = append(conds, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if f.BranchID != nil {
		args = append(args, *f.BranchID)
		conds = append(conds, fmt.Sprintf("car_id IN (SELECT id FROM cars WHERE branch_id = $%d)", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Type != nil {
		args = append(args, *f.Type)
		conds = append(conds, fmt.Sprintf("maintenance_type = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("scheduled_date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("scheduled_date <= $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM maintenance"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count maintenance: %w", err)
	}

	query := fmt.Sprintf("SELECT * FROM maintenance%s ORDER BY scheduled_date DESC, id DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	args = append(args, f.Size, f.Page*f.Size)

	var records []models.Maintenance
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list maintenance: %w", err)
	}
	return records, total, nil
}

// GetMaintenanceForUpdate retrieves and locks a maintenance row
func (t *txStore) GetMaintenanceForUpdate(ctx context.Context, id int64) (*models.Maintenance, error) {
	var m models.Maintenance
	err := t.tx.GetContext(ctx, &m, "SELECT * FROM maintenance WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock maintenance %d: %w", id, err)
	}
	return &m, nil
}

// CreateMaintenance inserts a new maintenance record
func (t *txStore) CreateMaintenance(ctx context.Context, m *models.Maintenance) error {
	query := `
		INSERT INTO maintenance (car_id, employee_id, maintenance_type, description, scheduled_date,
			cost, currency, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return t.tx.QueryRowxContext(ctx, query,
		m.CarID, m.EmployeeID, m.Type, m.Description, m.ScheduledDate,
		m.Cost, m.Currency, m.Status, m.Notes,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

// UpdateMaintenance persists status, completion date and cost
func (t *txStore) UpdateMaintenance(ctx context.Context, m *models.Maintenance) error {
	query := `
		UPDATE maintenance
		SET status = $1, completed_date = $2, cost = $3, notes = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	return t.tx.QueryRowxContext(ctx, query,
		m.Status, m.CompletedDate, m.Cost, m.Notes, m.ID,
	).Scan(&m.UpdatedAt)
}
