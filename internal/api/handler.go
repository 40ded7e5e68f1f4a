package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"rentacar-service/internal/models"
	"rentacar-service/internal/service"
	"rentacar-service/internal/store"
	"rentacar-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReservationService is the reservation engine as seen by the HTTP layer
type ReservationService interface {
	CreateReservation(ctx context.Context, req *service.ReservationRequest, idempotencyKey string) (*models.Reservation, error)
	UpdateReservation(ctx context.Context, id int64, req *service.ReservationRequest) (*models.Reservation, error)
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	ListReservations(ctx context.Context, f models.ReservationFilter) (models.Page[models.Reservation], error)
	ConfirmReservation(ctx context.Context, id int64) (*models.Reservation, error)
	CancelReservation(ctx context.Context, id int64) (*models.Reservation, error)
	CompleteReservation(ctx context.Context, id int64) (*models.Reservation, error)
}

type CarService interface {
	GetCar(ctx context.Context, id int64) (*models.Car, error)
	DeleteCar(ctx context.Context, id int64) error
	RestoreCar(ctx context.Context, id int64) (*models.Car, error)
	ListAvailableCars(ctx context.Context, f models.AvailabilityFilter) (models.Page[models.Car], error)
}

type MaintenanceService interface {
	ScheduleMaintenance(ctx context.Context, req *service.ScheduleMaintenanceRequest) (*models.Maintenance, error)
	StartMaintenance(ctx context.Context, id int64) (*models.Maintenance, error)
	CompleteMaintenance(ctx context.Context, id int64, req *service.CompleteMaintenanceRequest) (*models.Maintenance, error)
	CancelMaintenance(ctx context.Context, id int64) (*models.Maintenance, error)
	GetMaintenance(ctx context.Context, id int64) (*models.Maintenance, error)
	ListMaintenance(ctx context.Context, f models.MaintenanceFilter) (models.Page[models.Maintenance], error)
}

// Pinger is a dependency checked by the readiness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	reservations ReservationService
	cars         CarService
	maintenance  MaintenanceService
	jwtSecret    string
	readiness    map[string]Pinger
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	reservations ReservationService,
	cars CarService,
	maintenance MaintenanceService,
	jwtSecret string,
	readiness map[string]Pinger,
) *Handler {
	return &Handler{
		reservations: reservations,
		cars:         cars,
		maintenance:  maintenance,
		jwtSecret:    jwtSecret,
		readiness:    readiness,
		logger:       util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(requestLogger(h.logger))
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	staff := RequireRole(RoleEmployee, RoleAdmin)
	anyone := RequireRole(RoleCustomer, RoleEmployee, RoleAdmin)

	v1 := router.Group("/api/v1", JWTAuth(h.jwtSecret))
	{
		// customers act only on their own reservations, see ownsReservation
		v1.POST("/reservations", anyone, h.createReservation)
		v1.GET("/reservations", staff, h.listReservations)
		v1.GET("/reservations/:id", staff, h.getReservation)
		v1.PUT("/reservations/:id", anyone, h.updateReservation)
		v1.POST("/reservations/:id/confirm", staff, h.confirmReservation)
		v1.POST("/reservations/:id/cancel", anyone, h.cancelReservation)
		v1.POST("/reservations/:id/complete", staff, h.completeReservation)

		v1.GET("/cars/available", anyone, h.listAvailableCars)
		v1.GET("/cars/:id", anyone, h.getCar)
		v1.DELETE("/cars/:id", RequireRole(RoleAdmin), h.deleteCar)
		v1.POST("/cars/:id/restore", RequireRole(RoleAdmin), h.restoreCar)

		m := v1.Group("/maintenance", staff)
		m.POST("", h.scheduleMaintenance)
		m.GET("", h.listMaintenance)
		m.GET("/:id", h.getMaintenance)
		m.POST("/:id/start", h.startMaintenance)
		m.POST("/:id/complete", h.completeMaintenance)
		m.POST("/:id/cancel", h.cancelMaintenance)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers a ping
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for name, p := range h.readiness {
		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not ready",
				"error":   name + " unavailable",
				"details": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps engine errors onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, title string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, store.ErrLockTimeout):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(title, zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   title,
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, title string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   title,
		"details": err.Error(),
	})
}

// pathID parses the :id parameter, answering 400 itself when it is malformed
func pathID(c *gin.Context, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + entity + " ID",
		})
		return 0, false
	}
	return id, true
}

// requestLogger tags each request with an X-Request-ID and logs its outcome
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		logger.Info("HTTP request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}
