package service

import (
	"rentacar-service/internal/models"

	"github.com/shopspring/decimal"
)

// validateDateRange checks the requested rental window
func validateDateRange(start, end *models.Date) error {
	if start == nil || end == nil || start.IsZero() || end.IsZero() {
		return invalidArgument("Start and end dates are required")
	}
	if !end.After(*start) {
		return invalidArgument("End date must be after start date")
	}
	return nil
}

// rentalDays returns the billable number of days, at least one
func rentalDays(start, end models.Date) (int64, error) {
	days := models.DaysBetween(start, end)
	if days <= 0 {
		return 0, invalidArgument("Reservation must be at least 1 day")
	}
	return days, nil
}

// calculateTotal is dailyPrice times days, exact to the cent
func calculateTotal(dailyPrice decimal.Decimal, days int64) decimal.Decimal {
	return dailyPrice.Mul(decimal.NewFromInt(days)).Round(2)
}
