package models

import "github.com/shopspring/decimal"

// AvailabilityFilter selects cars at a branch that are free for a date window
type AvailabilityFilter struct {
	BranchID     int64
	StartDate    Date
	EndDate      Date
	Category     *CarCategory
	Transmission *TransmissionType
	FuelType     *FuelType
	MinSeats     *int
	MaxPrice     *decimal.Decimal
	Page         int
	Size         int
}

// ReservationFilter narrows reservation listings; nil fields are ignored
type ReservationFilter struct {
	CustomerID *int64
	CarID      *int64
	BranchID   *int64
	Status     *ReservationStatus
	StartDate  *Date
	EndDate    *Date
	Page       int
	Size       int
}

type MaintenanceFilter struct {
	CarID      *int64
	EmployeeID *int64
	BranchID   *int64
	Status     *MaintenanceStatus
	Type       *MaintenanceType
	From       *Date
	To         *Date
	Page       int
	Size       int
}

// Page is one slice of a paginated result
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPage[T any](items []T, page, size int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: totalPages,
	}
}
