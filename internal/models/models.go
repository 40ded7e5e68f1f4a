package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Branch is a rental location
type Branch struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Customer is the renting party of a reservation
type Customer struct {
	ID        int64     `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Car represents a vehicle in the fleet
type Car struct {
	ID           int64            `db:"id" json:"id"`
	VIN          string           `db:"vin" json:"vin"`
	Make         string           `db:"make" json:"make"`
	Model        string           `db:"model" json:"model"`
	Year         int              `db:"car_year" json:"year"`
	Category     CarCategory      `db:"category" json:"category"`
	Transmission TransmissionType `db:"transmission" json:"transmission"`
	FuelType     FuelType         `db:"fuel_type" json:"fuel_type"`
	Seats        int              `db:"seats" json:"seats"`
	Mileage      int              `db:"mileage" json:"mileage"`
	DailyPrice   decimal.Decimal  `db:"daily_price" json:"daily_price"`
	Status       CarStatus        `db:"status" json:"status"`
	Deleted      bool             `db:"deleted" json:"deleted"`
	BranchID     int64            `db:"branch_id" json:"branch_id"`
	Color        string           `db:"color" json:"color,omitempty"`
	LicensePlate string           `db:"license_plate" json:"license_plate,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

func (c *Car) DisplayName() string {
	return fmt.Sprintf("%d %s %s", c.Year, c.Make, c.Model)
}

// Reservation is one booking of one car by one customer for a date interval
type Reservation struct {
	ID              int64             `db:"id" json:"id"`
	CustomerID      int64             `db:"customer_id" json:"customer_id"`
	CarID           int64             `db:"car_id" json:"car_id"`
	StartDate       Date              `db:"start_date" json:"start_date"`
	EndDate         Date              `db:"end_date" json:"end_date"`
	PickupBranchID  int64             `db:"pickup_branch_id" json:"pickup_branch_id"`
	DropoffBranchID int64             `db:"dropoff_branch_id" json:"dropoff_branch_id"`
	Status          ReservationStatus `db:"status" json:"status"`
	TotalPrice      decimal.Decimal   `db:"total_price" json:"total_price"`
	Currency        string            `db:"currency" json:"currency"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

func (r *Reservation) DurationDays() int64 {
	return DaysBetween(r.StartDate, r.EndDate)
}

func (r *Reservation) IsActive() bool {
	return r.Status.IsActive()
}

func (r *Reservation) CanBeConfirmed() bool {
	return r.Status == ReservationStatusPending
}

func (r *Reservation) CanBeCancelled() bool {
	return r.Status == ReservationStatusPending || r.Status == ReservationStatusConfirmed
}

// CanBeCompleted requires a confirmed reservation whose rental period has elapsed as of today
func (r *Reservation) CanBeCompleted(today Date) bool {
	return r.Status == ReservationStatusConfirmed && !r.EndDate.After(today)
}

// Maintenance is a work order against a car
type Maintenance struct {
	ID            int64             `db:"id" json:"id"`
	CarID         int64             `db:"car_id" json:"car_id"`
	EmployeeID    *int64            `db:"employee_id" json:"employee_id,omitempty"`
	Type          MaintenanceType   `db:"maintenance_type" json:"maintenance_type"`
	Description   string            `db:"description" json:"description"`
	ScheduledDate Date              `db:"scheduled_date" json:"scheduled_date"`
	CompletedDate *Date             `db:"completed_date" json:"completed_date,omitempty"`
	Cost          *decimal.Decimal  `db:"cost" json:"cost,omitempty"`
	Currency      string            `db:"currency" json:"currency"`
	Status        MaintenanceStatus `db:"status" json:"status"`
	Notes         string            `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

func (m *Maintenance) CanBeStarted() bool {
	return m.Status == MaintenanceStatusScheduled
}

func (m *Maintenance) CanBeCompleted() bool {
	return m.Status == MaintenanceStatusInProgress
}

func (m *Maintenance) CanBeCancelled() bool {
	return m.Status == MaintenanceStatusScheduled || m.Status == MaintenanceStatusInProgress
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
