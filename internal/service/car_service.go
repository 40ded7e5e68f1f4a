package service

import (
	"context"
	"fmt"
	"time"

	"rentacar-service/config"
	"rentacar-service/internal/models"
	"rentacar-service/internal/store"
	"rentacar-service/internal/util"

	"go.uber.org/zap"
)

// CarService exposes the car directory operations the rental flows rely on
type CarService struct {
	store    CarStore
	cache    AvailabilityCache
	cacheTTL time.Duration
	paging   paging
	logger   *zap.Logger
}

func NewCarService(store CarStore, cache AvailabilityCache, cfg config.BusinessConfig) *CarService {
	return &CarService{
		store:    store,
		cache:    cache,
		cacheTTL: time.Duration(cfg.AvailabilityCacheTTLSeconds) * time.Second,
		paging:   paging{defaultSize: cfg.DefaultPageSize, maxSize: cfg.MaxPageSize},
		logger:   util.GetLogger(),
	}
}

// GetCar retrieves a non-deleted car by ID
func (s *CarService) GetCar(ctx context.Context, id int64) (*models.Car, error) {
	car, err := s.store.GetCarByID(ctx, id, false)
	if err != nil {
		return nil, orNotFound(err, "Car", id)
	}
	return car, nil
}

// DeleteCar soft-deletes a car and takes it out of service
func (s *CarService) DeleteCar(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CarService.DeleteCar")
	defer span.End()

	var car *models.Car
	err := s.store.WithTx(ctx, func(tx store.TxStore) error {
		var err error
		car, err = tx.GetCarByID(ctx, id, false)
		if err != nil {
			return orNotFound(err, "Car", id)
		}
		if err := tx.SetCarDeleted(ctx, id, true, models.CarStatusOutOfService); err != nil {
			return fmt.Errorf("failed to delete car: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Car soft-deleted", zap.Int64("car_id", id))
	s.invalidate(ctx, car.BranchID)
	return nil
}

// RestoreCar reverses a soft delete and makes the car available again
func (s *CarService) RestoreCar(ctx context.Context, id int64) (*models.Car, error) {
	ctx, span := util.StartSpan(ctx, "CarService.RestoreCar")
	defer span.End()

	var car *models.Car
	err := s.store.WithTx(ctx, func(tx store.TxStore) error {
		var err error
		car, err = tx.GetCarByID(ctx, id, true)
		if err != nil {
			return orNotFound(err, "Car", id)
		}
		if !car.Deleted {
			return nil
		}
		if err := tx.SetCarDeleted(ctx, id, false, models.CarStatusAvailable); err != nil {
			return fmt.Errorf("failed to restore car: %w", err)
		}
		car.Deleted = false
		car.Status = models.CarStatusAvailable
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Car restored", zap.Int64("car_id", id))
	s.invalidate(ctx, car.BranchID)
	return car, nil
}

// ListAvailableCars answers the read-side availability query. Results may be briefly
// stale; CreateReservation re-checks under lock.
func (s *CarService) ListAvailableCars(ctx context.Context, f models.AvailabilityFilter) (models.Page[models.Car], error) {
	ctx, span := util.StartSpan(ctx, "CarService.ListAvailableCars")
	defer span.End()

	if f.StartDate.IsZero() || f.EndDate.IsZero() || !f.EndDate.After(f.StartDate) {
		return models.Page[models.Car]{}, invalidArgument("Invalid date range: endDate must be after startDate")
	}
	f.Page, f.Size = s.paging.normalize(f.Page, f.Size)

	// the generation is read before the query; see AvailabilityCache
	var generation int64
	cacheable := false
	if s.cache != nil {
		page, gen, err := s.cache.GetAvailability(ctx, f)
		switch {
		case err != nil:
			s.logger.Warn("Availability cache read failed", zap.Error(err))
		case page != nil:
			util.AvailabilityCacheHitsTotal.Inc()
			return *page, nil
		default:
			generation, cacheable = gen, true
		}
		util.AvailabilityCacheMissesTotal.Inc()
	}

	cars, total, err := s.store.ListAvailableCars(ctx, f)
	if err != nil {
		return models.Page[models.Car]{}, err
	}
	page := models.NewPage(cars, f.Page, f.Size, total)

	if cacheable && s.cacheTTL > 0 {
		if err := s.cache.SetAvailability(ctx, f, generation, page, s.cacheTTL); err != nil {
			s.logger.Warn("Availability cache write failed", zap.Error(err))
		}
	}
	return page, nil
}

func (s *CarService) invalidate(ctx context.Context, branchID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBranch(ctx, branchID); err != nil {
		s.logger.Warn("Failed to invalidate availability cache", zap.Int64("branch_id", branchID), zap.Error(err))
	}
}
