package redisclient

import (
	"testing"

	"rentacar-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseClaimResult(t *testing.T) {
	claimed, value, err := parseClaimResult([]interface{}{int64(1), ""})
	assert.NoError(t, err)
	assert.True(t, claimed)
	assert.Empty(t, value)

	claimed, value, err = parseClaimResult([]interface{}{int64(0), "42"})
	assert.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "42", value)

	_, _, err = parseClaimResult("OK")
	assert.Error(t, err)
}

func TestAvailabilityKey(t *testing.T) {
	f := models.AvailabilityFilter{
		BranchID:  3,
		StartDate: models.NewDate(2024, 6, 1),
		EndDate:   models.NewDate(2024, 6, 6),
		Page:      0,
		Size:      20,
	}
	assert.Equal(t, "availability:3:g0:2024-06-01:2024-06-06:p=0:s=20", availabilityKey(f, 0))

	seats := 5
	maxPrice := decimal.RequireFromString("75.50")
	cat := models.CarCategorySUV
	f.MinSeats = &seats
	f.MaxPrice = &maxPrice
	f.Category = &cat
	assert.Equal(t, "availability:3:g7:2024-06-01:2024-06-06:cat=SUV:seats=5:max=75.5:p=0:s=20", availabilityKey(f, 7))
}
