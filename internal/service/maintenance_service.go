package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rentacar-service/config"
	"rentacar-service/internal/models"
	"rentacar-service/internal/store"
	"rentacar-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaintenanceService manages maintenance work orders and the car status they drive
type MaintenanceService struct {
	store     MaintenanceStore
	publisher EventPublisher
	cache     AvailabilityCache
	currency  string
	paging    paging
	logger    *zap.Logger
	now       func() time.Time
}

func NewMaintenanceService(
	store MaintenanceStore,
	publisher EventPublisher,
	cache AvailabilityCache,
	cfg config.BusinessConfig,
) *MaintenanceService {
	return &MaintenanceService{
		store:     store,
		publisher: publisher,
		cache:     cache,
		currency:  cfg.Currency,
		paging:    paging{defaultSize: cfg.DefaultPageSize, maxSize: cfg.MaxPageSize},
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

type ScheduleMaintenanceRequest struct {
	CarID         int64                  `json:"car_id" binding:"required"`
	EmployeeID    *int64                 `json:"employee_id"`
	Type          models.MaintenanceType `json:"maintenance_type" binding:"required"`
	Description   string                 `json:"description" binding:"required"`
	ScheduledDate *models.Date           `json:"scheduled_date"`
	Cost          *decimal.Decimal       `json:"cost"`
	Notes         string                 `json:"notes"`
}

type CompleteMaintenanceRequest struct {
	Cost  *decimal.Decimal `json:"cost"`
	Notes string           `json:"notes"`
}

// ScheduleMaintenance creates a SCHEDULED work order. The reservation calendar is not consulted.
func (s *MaintenanceService) ScheduleMaintenance(ctx context.Context, req *ScheduleMaintenanceRequest) (*models.Maintenance, error) {
	ctx, span := util.StartSpan(ctx, "MaintenanceService.ScheduleMaintenance")
	defer span.End()

	if _, err := models.ParseMaintenanceType(string(req.Type)); err != nil {
		return nil, invalidArgument(err.Error())
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, invalidArgument("Description is required")
	}
	if req.ScheduledDate == nil || req.ScheduledDate.IsZero() {
		return nil, invalidArgument("Scheduled date is required")
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		return nil, invalidArgument("Cost cannot be negative")
	}

	var m *models.Maintenance
	err := s.store.WithTx(ctx, func(tx store.TxStore) error {
		if _, err := tx.GetCarByID(ctx, req.CarID, false); err != nil {
			return orNotFound(err, "Car", req.CarID)
		}

		m = &models.Maintenance{
			CarID:         req.CarID,
			EmployeeID:    req.EmployeeID,
			Type:          req.Type,
			Description:   req.Description,
			ScheduledDate: *req.ScheduledDate,
			Cost:          req.Cost,
			Currency:      s.currency,
			Status:        models.MaintenanceStatusScheduled,
			Notes:         req.Notes,
		}
		return tx.CreateMaintenance(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	util.MaintenanceTransitionsTotal.WithLabelValues(string(m.Status)).Inc()
	s.logger.Info("Maintenance scheduled",
		zap.Int64("maintenance_id", m.ID),
		zap.Int64("car_id", m.CarID),
		zap.String("scheduled_date", m.ScheduledDate.String()))

	s.publish(ctx, models.EventTypeMaintenanceScheduled, m, "")
	return m, nil
}

// StartMaintenance moves SCHEDULED to IN_PROGRESS and puts the car into MAINTENANCE
func (s *MaintenanceService) StartMaintenance(ctx context.Context, id int64) (*models.Maintenance, error) {
	return s.transition(ctx, id, "started", func(m *models.Maintenance, car *models.Car) (models.CarStatus, bool) {
		if !m.CanBeStarted() {
			return "", false
		}
		m.Status = models.MaintenanceStatusInProgress
		return models.CarStatusMaintenance, true
	})
}

// CompleteMaintenance moves IN_PROGRESS to COMPLETED, stamps today's date and frees the car
func (s *MaintenanceService) CompleteMaintenance(ctx context.Context, id int64, req *CompleteMaintenanceRequest) (*models.Maintenance, error) {
	if req != nil && req.Cost != nil && req.Cost.IsNegative() {
		return nil, invalidArgument("Cost cannot be negative")
	}
	today := models.DateOf(s.now())

	return s.transition(ctx, id, "completed", func(m *models.Maintenance, car *models.Car) (models.CarStatus, bool) {
		if !m.CanBeCompleted() {
			return "", false
		}
		m.Status = models.MaintenanceStatusCompleted
		m.CompletedDate = &today
		if req != nil {
			if req.Cost != nil {
				m.Cost = req.Cost
			}
			if req.Notes != "" {
				m.Notes = req.Notes
			}
		}
		return restoredStatus(car), true
	})
}

// CancelMaintenance moves SCHEDULED or IN_PROGRESS to CANCELLED and frees the car
func (s *MaintenanceService) CancelMaintenance(ctx context.Context, id int64) (*models.Maintenance, error) {
	return s.transition(ctx, id, "cancelled", func(m *models.Maintenance, car *models.Car) (models.CarStatus, bool) {
		if !m.CanBeCancelled() {
			return "", false
		}
		m.Status = models.MaintenanceStatusCancelled
		return restoredStatus(car), true
	})
}

// restoredStatus leaves soft-deleted cars untouched
func restoredStatus(car *models.Car) models.CarStatus {
	if car.Deleted {
		return ""
	}
	return models.CarStatusAvailable
}

// transition applies mutate to a locked work order. mutate returns the car status to
// write (empty for none) and false when the current status forbids the move.
func (s *MaintenanceService) transition(
	ctx context.Context,
	id int64,
	verb string,
	mutate func(m *models.Maintenance, car *models.Car) (models.CarStatus, bool),
) (*models.Maintenance, error) {
	ctx, span := util.StartSpan(ctx, "MaintenanceService.Transition."+verb)
	defer span.End()

	var m *models.Maintenance
	var car *models.Car
	var carStatus models.CarStatus
	err := s.store.WithTx(ctx, func(tx store.TxStore) error {
		var err error
		m, err = tx.GetMaintenanceForUpdate(ctx, id)
		if err != nil {
			return orNotFound(err, "Maintenance", id)
		}
		car, err = tx.GetCarByID(ctx, m.CarID, true)
		if err != nil {
			return orNotFound(err, "Car", m.CarID)
		}

		current := m.Status
		var ok bool
		carStatus, ok = mutate(m, car)
		if !ok {
			return conflict("Maintenance cannot be %s in current status: %s", verb, current)
		}

		if err := tx.UpdateMaintenance(ctx, m); err != nil {
			return fmt.Errorf("failed to update maintenance: %w", err)
		}
		if carStatus != "" {
			if err := tx.UpdateCarStatus(ctx, car.ID, carStatus); err != nil {
				return fmt.Errorf("failed to update car status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	util.MaintenanceTransitionsTotal.WithLabelValues(string(m.Status)).Inc()
	s.logger.Info("Maintenance status changed",
		zap.Int64("maintenance_id", m.ID),
		zap.Int64("car_id", m.CarID),
		zap.String("status", string(m.Status)),
		zap.String("car_status", string(carStatus)))

	if carStatus != "" && s.cache != nil {
		if err := s.cache.InvalidateBranch(ctx, car.BranchID); err != nil {
			s.logger.Warn("Failed to invalidate availability cache", zap.Int64("branch_id", car.BranchID), zap.Error(err))
		}
	}
	s.publish(ctx, maintenanceEventType(m.Status), m, carStatus)
	return m, nil
}

// GetMaintenance retrieves a maintenance record by ID
func (s *MaintenanceService) GetMaintenance(ctx context.Context, id int64) (*models.Maintenance, error) {
	m, err := s.store.GetMaintenanceByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "Maintenance", id)
	}
	return m, nil
}

func (s *MaintenanceService) ListMaintenance(ctx context.Context, f models.MaintenanceFilter) (models.Page[models.Maintenance], error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return models.Page[models.Maintenance]{}, invalidArgument("End date must not be before start date")
	}
	f.Page, f.Size = s.paging.normalize(f.Page, f.Size)

	items, total, err := s.store.ListMaintenance(ctx, f)
	if err != nil {
		return models.Page[models.Maintenance]{}, err
	}
	return models.NewPage(items, f.Page, f.Size, total), nil
}

func maintenanceEventType(status models.MaintenanceStatus) string {
	switch status {
	case models.MaintenanceStatusInProgress:
		return models.EventTypeMaintenanceStarted
	case models.MaintenanceStatusCompleted:
		return models.EventTypeMaintenanceCompleted
	case models.MaintenanceStatusCancelled:
		return models.EventTypeMaintenanceCancelled
	default:
		return models.EventTypeMaintenanceScheduled
	}
}

func (s *MaintenanceService) publish(ctx context.Context, eventType string, m *models.Maintenance, carStatus models.CarStatus) {
	event := &models.MaintenanceEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: s.now(),
		},
		MaintenanceID: m.ID,
		CarID:         m.CarID,
		Status:        m.Status,
		CarStatus:     carStatus,
	}

	if err := s.publisher.PublishMaintenanceEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish maintenance event",
			zap.String("event_type", eventType),
			zap.Int64("maintenance_id", m.ID),
			zap.Error(err))
	}
}
