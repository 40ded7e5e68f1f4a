package api

import (
	"context"
	"net/http"
	"strconv"

	"rentacar-service/internal/models"
	"rentacar-service/internal/service"

	"github.com/gin-gonic/gin"
)

// createReservation handles reservation creation
func (h *Handler) createReservation(c *gin.Context) {
	var req service.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if !actsFor(c, req.CustomerID) {
		forbidden(c)
		return
	}

	r, err := h.reservations.CreateReservation(c.Request.Context(), &req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.respondError(c, "Failed to create reservation", err)
		return
	}

	c.JSON(http.StatusCreated, reservationResponse(r))
}

func (h *Handler) updateReservation(c *gin.Context) {
	id, ok := pathID(c, "reservation")
	if !ok {
		return
	}

	var req service.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if !actsFor(c, req.CustomerID) || !h.ownsReservation(c, id, "Failed to update reservation") {
		if !c.IsAborted() {
			forbidden(c)
		}
		return
	}

	r, err := h.reservations.UpdateReservation(c.Request.Context(), id, &req)
	if err != nil {
		h.respondError(c, "Failed to update reservation", err)
		return
	}
	c.JSON(http.StatusOK, reservationResponse(r))
}

func (h *Handler) getReservation(c *gin.Context) {
	id, ok := pathID(c, "reservation")
	if !ok {
		return
	}

	r, err := h.reservations.GetReservation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to get reservation", err)
		return
	}
	c.JSON(http.StatusOK, reservationResponse(r))
}

func (h *Handler) listReservations(c *gin.Context) {
	q := newQueryParser(c)
	f := models.ReservationFilter{
		CustomerID: q.int64Ptr("customer_id"),
		CarID:      q.int64Ptr("car_id"),
		BranchID:   q.int64Ptr("branch_id"),
		Status:     queryEnum(q, "status", models.ParseReservationStatus),
		StartDate:  q.date("start_date"),
		EndDate:    q.date("end_date"),
		Page:       q.intOr("page", 0),
		Size:       q.intOr("size", 0),
	}
	if q.err != nil {
		badRequest(c, "Invalid query parameters", q.err)
		return
	}

	page, err := h.reservations.ListReservations(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "Failed to list reservations", err)
		return
	}

	items := make([]reservationView, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, reservationResponse(&page.Items[i]))
	}
	c.JSON(http.StatusOK, models.Page[reservationView]{
		Items:      items,
		Page:       page.Page,
		Size:       page.Size,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

func (h *Handler) confirmReservation(c *gin.Context) {
	h.reservationTransition(c, "Failed to confirm reservation", h.reservations.ConfirmReservation)
}

func (h *Handler) cancelReservation(c *gin.Context) {
	h.reservationTransition(c, "Failed to cancel reservation", h.reservations.CancelReservation)
}

func (h *Handler) completeReservation(c *gin.Context) {
	h.reservationTransition(c, "Failed to complete reservation", h.reservations.CompleteReservation)
}

func (h *Handler) reservationTransition(
	c *gin.Context,
	title string,
	apply func(ctx context.Context, id int64) (*models.Reservation, error),
) {
	id, ok := pathID(c, "reservation")
	if !ok {
		return
	}
	if !h.ownsReservation(c, id, title) {
		if !c.IsAborted() {
			forbidden(c)
		}
		return
	}

	r, err := apply(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, title, err)
		return
	}
	c.JSON(http.StatusOK, reservationResponse(r))
}

// actsFor reports whether the caller may act for customerID. Staff act for
// anyone, a customer only for the customer id in its token subject.
func actsFor(c *gin.Context, customerID int64) bool {
	if c.GetString(ctxRole) != RoleCustomer {
		return true
	}
	return c.GetString(ctxUserID) == strconv.FormatInt(customerID, 10)
}

// ownsReservation checks a customer caller against the stored reservation owner.
// A failed lookup is answered here and aborts the request.
func (h *Handler) ownsReservation(c *gin.Context, id int64, title string) bool {
	if c.GetString(ctxRole) != RoleCustomer {
		return true
	}
	r, err := h.reservations.GetReservation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, title, err)
		c.Abort()
		return false
	}
	return actsFor(c, r.CustomerID)
}

func forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
}

// reservationView adds derived fields to a reservation response and renders
// the total at cent scale
type reservationView struct {
	*models.Reservation
	TotalPrice   string `json:"total_price"`
	DurationDays int64  `json:"duration_days"`
}

func reservationResponse(r *models.Reservation) reservationView {
	return reservationView{
		Reservation:  r,
		TotalPrice:   r.TotalPrice.StringFixed(2),
		DurationDays: r.DurationDays(),
	}
}
