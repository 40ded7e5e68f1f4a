package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"rentacar-service/config"
	"rentacar-service/internal/models"
	"rentacar-service/internal/store"
	"rentacar-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationService handles the reservation lifecycle
type ReservationService struct {
	store          ReservationStore
	publisher      EventPublisher
	idempotency    IdempotencyStore
	cache          AvailabilityCache
	currency       string
	idempotencyTTL time.Duration
	paging         paging
	logger         *zap.Logger
	now            func() time.Time
}

// NewReservationService creates a new reservation service
func NewReservationService(
	store ReservationStore,
	publisher EventPublisher,
	idempotency IdempotencyStore,
	cache AvailabilityCache,
	cfg config.BusinessConfig,
) *ReservationService {
	return &ReservationService{
		store:          store,
		publisher:      publisher,
		idempotency:    idempotency,
		cache:          cache,
		currency:       cfg.Currency,
		idempotencyTTL: time.Duration(cfg.IdempotencyTTLSeconds) * time.Second,
		paging:         paging{defaultSize: cfg.DefaultPageSize, maxSize: cfg.MaxPageSize},
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// ReservationRequest is the input of create and update
type ReservationRequest struct {
	CustomerID      int64        `json:"customer_id" binding:"required"`
	CarID           int64        `json:"car_id" binding:"required"`
	StartDate       *models.Date `json:"start_date"`
	EndDate         *models.Date `json:"end_date"`
	PickupBranchID  int64        `json:"pickup_branch_id" binding:"required"`
	DropoffBranchID int64        `json:"dropoff_branch_id" binding:"required"`
	Notes           string       `json:"notes"`
}

// CreateReservation books a car for a date window. The car row is locked for the
// duration of the transaction so concurrent bookings of the same car serialize.
// Lock order is car rows first, then reservation rows.
func (s *ReservationService) CreateReservation(ctx context.Context, req *ReservationRequest, idempotencyKey string) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.CreateReservation")
	defer span.End()

	if err := validateDateRange(req.StartDate, req.EndDate); err != nil {
		util.ReservationFailedTotal.WithLabelValues("invalid_dates").Inc()
		return nil, err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		claimed, value, err := s.idempotency.Claim(ctx, idempotencyKey, s.idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if !claimed {
			return s.replay(ctx, idempotencyKey, value)
		}
	}

	var reservation *models.Reservation
	var customer *models.Customer
	var car *models.Car
	err := s.store.WithTx(ctx, func(tx store.TxStore) error {
		var err error
		customer, car, err = s.resolveReferences(ctx, tx, req, nil)
		if err != nil {
			return err
		}

		if err := s.lockCars(ctx, tx, req.CarID); err != nil {
			return err
		}
		if err := s.ensureCarAvailable(ctx, tx, req.CarID, *req.StartDate, *req.EndDate, 0); err != nil {
			return err
		}

		days, err := rentalDays(*req.StartDate, *req.EndDate)
		if err != nil {
			return err
		}

		reservation = &models.Reservation{
			CustomerID:      req.CustomerID,
			CarID:           req.CarID,
			StartDate:       *req.StartDate,
			EndDate:         *req.EndDate,
			PickupBranchID:  req.PickupBranchID,
			DropoffBranchID: req.DropoffBranchID,
			Status:          models.ReservationStatusPending,
			TotalPrice:      calculateTotal(car.DailyPrice, days),
			Currency:        s.currency,
			Notes:           req.Notes,
		}
		return tx.CreateReservation(ctx, reservation)
	})
	if err != nil {
		util.FailSpan(span, err)
		s.releaseKey(ctx, idempotencyKey)
		util.ReservationFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.Complete(ctx, idempotencyKey, strconv.FormatInt(reservation.ID, 10), s.idempotencyTTL); err != nil {
			s.logger.Error("Failed to store idempotency result",
				zap.String("idempotency_key", idempotencyKey), zap.Error(err))
		}
	}

	util.ReservationsCreatedTotal.Inc()
	s.logger.Info("Reservation created",
		zap.Int64("reservation_id", reservation.ID),
		zap.Int64("car_id", reservation.CarID),
		zap.String("car", car.DisplayName()),
		zap.String("customer", customer.FullName()),
		zap.String("start_date", reservation.StartDate.String()),
		zap.String("end_date", reservation.EndDate.String()),
		zap.String("total_price", reservation.TotalPrice.StringFixed(2)))

	s.invalidateBranch(ctx, car.BranchID)
	s.publish(ctx, models.EventTypeReservationCreated, reservation)
	return reservation, nil
}

// replay answers a repeated create carrying an already claimed idempotency key
func (s *ReservationService) replay(ctx context.Context, key, value string) (*models.Reservation, error) {
	if value == "" {
		return nil, conflict("Duplicate request is still being processed")
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid idempotency value %q: %w", value, err)
	}
	s.logger.Info("Duplicate reservation request detected",
		zap.String("idempotency_key", key),
		zap.Int64("reservation_id", id))
	return s.GetReservation(ctx, id)
}

func (s *ReservationService) releaseKey(ctx context.Context, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Error("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(err))
	}
}

// UpdateReservation rewrites a PENDING reservation and recomputes its price
func (s *ReservationService) UpdateReservation(ctx context.Context, id int64, req *ReservationRequest) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.UpdateReservation")
	defer span.End()

	if err := validateDateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	// The unlocked read only tells us which cars to lock before the reservation row
	current, err := s.store.GetReservationByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "Reservation", id)
	}
	if current.Status != models.ReservationStatusPending {
		return nil, conflict("Only PENDING reservations can be updated")
	}
	previousCarID := current.CarID

	var reservation *models.Reservation
	var car *models.Car
	err = s.store.WithTx(ctx, func(tx store.TxStore) error {
		if err := s.lockCars(ctx, tx, previousCarID, req.CarID); err != nil {
			return err
		}

		existing, err := tx.GetReservationForUpdate(ctx, id)
		if err != nil {
			return orNotFound(err, "Reservation", id)
		}
		if existing.Status != models.ReservationStatusPending {
			return conflict("Only PENDING reservations can be updated")
		}
		if existing.CarID != previousCarID {
			return conflict("Reservation %d was modified concurrently", id)
		}

		_, car, err = s.resolveReferences(ctx, tx, req, existing)
		if err != nil {
			return err
		}

		if err := s.ensureCarAvailable(ctx, tx, req.CarID, *req.StartDate, *req.EndDate, existing.ID); err != nil {
			return err
		}

		days, err := rentalDays(*req.StartDate, *req.EndDate)
		if err != nil {
			return err
		}

		existing.CustomerID = req.CustomerID
		existing.CarID = req.CarID
		existing.StartDate = *req.StartDate
		existing.EndDate = *req.EndDate
		existing.PickupBranchID = req.PickupBranchID
		existing.DropoffBranchID = req.DropoffBranchID
		existing.Notes = req.Notes
		existing.TotalPrice = calculateTotal(car.DailyPrice, days)
		existing.Currency = s.currency

		reservation = existing
		return tx.UpdateReservation(ctx, existing)
	})
	if err != nil {
		util.FailSpan(span, err)
		util.ReservationFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	s.logger.Info("Reservation updated",
		zap.Int64("reservation_id", reservation.ID),
		zap.Int64("car_id", reservation.CarID),
		zap.String("total_price", reservation.TotalPrice.StringFixed(2)))

	s.invalidateBranch(ctx, car.BranchID)
	if previousCarID != car.ID {
		s.invalidateCar(ctx, previousCarID)
	}
	s.publish(ctx, models.EventTypeReservationUpdated, reservation)
	return reservation, nil
}

// resolveReferences loads the customer, car and branches a request points at.
// On update only references that differ from the stored reservation are re-checked
// and the customer comes back nil when unchanged; the car is always loaded since
// its daily price drives the total.
func (s *ReservationService) resolveReferences(ctx context.Context, tx store.TxStore, req *ReservationRequest, existing *models.Reservation) (*models.Customer, *models.Car, error) {
	var customer *models.Customer
	if existing == nil || existing.CustomerID != req.CustomerID {
		var err error
		customer, err = tx.GetCustomerByID(ctx, req.CustomerID)
		if err != nil {
			return nil, nil, orNotFound(err, "Customer", req.CustomerID)
		}
	}

	car, err := tx.GetCarByID(ctx, req.CarID, false)
	if err != nil {
		return nil, nil, orNotFound(err, "Car", req.CarID)
	}

	if existing == nil || existing.PickupBranchID != req.PickupBranchID {
		if _, err := tx.GetBranchByID(ctx, req.PickupBranchID); err != nil {
			return nil, nil, orNotFound(err, "Pickup branch", req.PickupBranchID)
		}
	}
	if existing == nil || existing.DropoffBranchID != req.DropoffBranchID {
		if _, err := tx.GetBranchByID(ctx, req.DropoffBranchID); err != nil {
			return nil, nil, orNotFound(err, "Dropoff branch", req.DropoffBranchID)
		}
	}
	return customer, car, nil
}

// lockCars takes the row locks of the given cars in ascending id order
func (s *ReservationService) lockCars(ctx context.Context, tx store.TxStore, carIDs ...int64) error {
	ids := append([]int64(nil), carIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, carID := range ids {
		if i > 0 && carID == ids[i-1] {
			continue
		}
		waitStart := time.Now()
		if err := tx.LockCar(ctx, carID); err != nil {
			return orNotFound(err, "Car", carID)
		}
		util.CarLockWaitLatency.Observe(time.Since(waitStart).Seconds())
	}
	return nil
}

// ensureCarAvailable rejects the window if any other active reservation of the
// already locked car overlaps it. excludeID skips the reservation being updated.
func (s *ReservationService) ensureCarAvailable(ctx context.Context, tx store.TxStore, carID int64, start, end models.Date, excludeID int64) error {
	overlaps, err := tx.FindOverlappingReservations(ctx, carID, start, end)
	if err != nil {
		return err
	}
	for _, r := range overlaps {
		if r.ID == excludeID {
			continue
		}
		util.ReservationConflictsTotal.Inc()
		s.logger.Warn("Reservation window conflicts with an active reservation",
			zap.Int64("car_id", carID),
			zap.Int64("conflicting_reservation_id", r.ID),
			zap.String("start_date", start.String()),
			zap.String("end_date", end.String()))
		return conflict("Car is not available for the selected dates")
	}
	return nil
}

// GetReservation retrieves a reservation by ID
func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	r, err := s.store.GetReservationByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "Reservation", id)
	}
	return r, nil
}

// ListReservations returns a page of reservations matching the filter
func (s *ReservationService) ListReservations(ctx context.Context, f models.ReservationFilter) (models.Page[models.Reservation], error) {
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return models.Page[models.Reservation]{}, invalidArgument("End date must not be before start date")
	}
	f.Page, f.Size = s.paging.normalize(f.Page, f.Size)

	items, total, err := s.store.ListReservations(ctx, f)
	if err != nil {
		return models.Page[models.Reservation]{}, err
	}
	return models.NewPage(items, f.Page, f.Size, total), nil
}

// ConfirmReservation moves a PENDING reservation to CONFIRMED
func (s *ReservationService) ConfirmReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.transition(ctx, id, models.ReservationStatusConfirmed, "confirmed",
		func(r *models.Reservation, _ models.Date) bool { return r.CanBeConfirmed() })
}

// CancelReservation moves a PENDING or CONFIRMED reservation to CANCELLED
func (s *ReservationService) CancelReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	r, err := s.transition(ctx, id, models.ReservationStatusCancelled, "cancelled",
		func(r *models.Reservation, _ models.Date) bool { return r.CanBeCancelled() })
	if err != nil {
		return nil, err
	}
	s.invalidateCar(ctx, r.CarID)
	return r, nil
}

// CompleteReservation moves a CONFIRMED reservation whose end date has been reached to COMPLETED
func (s *ReservationService) CompleteReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	r, err := s.transition(ctx, id, models.ReservationStatusCompleted, "completed",
		func(r *models.Reservation, today models.Date) bool { return r.CanBeCompleted(today) })
	if err != nil {
		return nil, err
	}
	s.invalidateCar(ctx, r.CarID)
	return r, nil
}

func (s *ReservationService) transition(
	ctx context.Context,
	id int64,
	target models.ReservationStatus,
	verb string,
	allowed func(r *models.Reservation, today models.Date) bool,
) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Transition."+string(target))
	defer span.End()

	today := models.DateOf(s.now())

	var reservation *models.Reservation
	err := s.store.WithTx(ctx, func(tx store.TxStore) error {
		r, err := tx.GetReservationForUpdate(ctx, id)
		if err != nil {
			return orNotFound(err, "Reservation", id)
		}
		if !allowed(r, today) {
			return conflict("Reservation cannot be %s in current status: %s", verb, r.Status)
		}
		if err := tx.UpdateReservationStatus(ctx, id, target); err != nil {
			return fmt.Errorf("failed to update reservation status: %w", err)
		}
		r.Status = target
		reservation = r
		return nil
	})
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	util.ReservationTransitionsTotal.WithLabelValues(string(target)).Inc()
	s.logger.Info("Reservation status changed",
		zap.Int64("reservation_id", id),
		zap.String("status", string(target)))

	s.publish(ctx, reservationEventType(target), reservation)
	return reservation, nil
}

func reservationEventType(status models.ReservationStatus) string {
	switch status {
	case models.ReservationStatusConfirmed:
		return models.EventTypeReservationConfirmed
	case models.ReservationStatusCancelled:
		return models.EventTypeReservationCancelled
	case models.ReservationStatusCompleted:
		return models.EventTypeReservationCompleted
	default:
		return models.EventTypeReservationUpdated
	}
}

func (s *ReservationService) publish(ctx context.Context, eventType string, r *models.Reservation) {
	event := &models.ReservationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: s.now(),
		},
		ReservationID: r.ID,
		CustomerID:    r.CustomerID,
		CarID:         r.CarID,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Status:        r.Status,
		TotalPrice:    r.TotalPrice,
		Currency:      r.Currency,
	}

	if err := s.publisher.PublishReservationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish reservation event",
			zap.String("event_type", eventType),
			zap.Int64("reservation_id", r.ID),
			zap.Error(err))
	}
}

func (s *ReservationService) invalidateBranch(ctx context.Context, branchID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBranch(ctx, branchID); err != nil {
		s.logger.Warn("Failed to invalidate availability cache", zap.Int64("branch_id", branchID), zap.Error(err))
	}
}

func (s *ReservationService) invalidateCar(ctx context.Context, carID int64) {
	if s.cache == nil {
		return
	}
	car, err := s.store.GetCarByID(ctx, carID, true)
	if err != nil {
		s.logger.Warn("Failed to resolve car for cache invalidation", zap.Int64("car_id", carID), zap.Error(err))
		return
	}
	s.invalidateBranch(ctx, car.BranchID)
}
