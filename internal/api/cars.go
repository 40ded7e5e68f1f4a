package api

import (
	"net/http"

	"rentacar-service/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listAvailableCars(c *gin.Context) {
	q := newQueryParser(c)
	branchID := q.int64Ptr("branch_id")
	start := q.date("start_date")
	end := q.date("end_date")
	q.required("branch_id", branchID != nil)
	q.required("start_date", start != nil)
	q.required("end_date", end != nil)

	f := models.AvailabilityFilter{
		Category:     queryEnum(q, "category", models.ParseCarCategory),
		Transmission: queryEnum(q, "transmission", models.ParseTransmissionType),
		FuelType:     queryEnum(q, "fuel_type", models.ParseFuelType),
		MinSeats:     q.intPtr("min_seats"),
		MaxPrice:     q.decimal("max_price"),
		Page:         q.intOr("page", 0),
		Size:         q.intOr("size", 0),
	}
	if q.err != nil {
		badRequest(c, "Invalid query parameters", q.err)
		return
	}
	f.BranchID, f.StartDate, f.EndDate = *branchID, *start, *end

	page, err := h.cars.ListAvailableCars(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "Failed to list available cars", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getCar(c *gin.Context) {
	id, ok := pathID(c, "car")
	if !ok {
		return
	}

	car, err := h.cars.GetCar(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to get car", err)
		return
	}
	c.JSON(http.StatusOK, car)
}

// deleteCar soft-deletes a car
func (h *Handler) deleteCar(c *gin.Context) {
	id, ok := pathID(c, "car")
	if !ok {
		return
	}

	if err := h.cars.DeleteCar(c.Request.Context(), id); err != nil {
		h.respondError(c, "Failed to delete car", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) restoreCar(c *gin.Context) {
	id, ok := pathID(c, "car")
	if !ok {
		return
	}

	car, err := h.cars.RestoreCar(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to restore car", err)
		return
	}
	c.JSON(http.StatusOK, car)
}
