package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total number of reservations created",
	})

	ReservationConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_conflicts_total",
		Help: "Total number of reservation writes rejected because the car was already booked",
	})

	ReservationTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_transitions_total",
		Help: "Total number of reservation status transitions",
	}, []string{"status"})

	ReservationFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_failed_total",
		Help: "Total number of failed reservation operations",
	}, []string{"reason"})

	CarLockWaitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "car_lock_wait_seconds",
		Help:    "Time spent waiting for the per-car reservation lock",
		Buckets: prometheus.DefBuckets,
	})

	MaintenanceTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_transitions_total",
		Help: "Total number of maintenance status transitions",
	}, []string{"status"})

	AvailabilityCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "availability_cache_hits_total",
		Help: "Total number of availability listings served from cache",
	})

	AvailabilityCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "availability_cache_misses_total",
		Help: "Total number of availability listings computed from the database",
	})

	PaymentEventsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_events_processed_total",
		Help: "Total number of payment outcome events handled",
	}, []string{"event_type", "result"})

	ConsumerRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_retries_total",
		Help: "Total number of failed message handling attempts that were retried",
	}, []string{"topic"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
