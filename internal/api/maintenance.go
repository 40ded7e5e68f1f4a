package api

import (
	"errors"
	"io"
	"net/http"

	"rentacar-service/internal/models"
	"rentacar-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) scheduleMaintenance(c *gin.Context) {
	var req service.ScheduleMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	m, err := h.maintenance.ScheduleMaintenance(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to schedule maintenance", err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) startMaintenance(c *gin.Context) {
	id, ok := pathID(c, "maintenance")
	if !ok {
		return
	}

	m, err := h.maintenance.StartMaintenance(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to start maintenance", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// completeMaintenance accepts an optional body carrying the final cost and notes
func (h *Handler) completeMaintenance(c *gin.Context) {
	id, ok := pathID(c, "maintenance")
	if !ok {
		return
	}

	var req service.CompleteMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body", err)
		return
	}

	m, err := h.maintenance.CompleteMaintenance(c.Request.Context(), id, &req)
	if err != nil {
		h.respondError(c, "Failed to complete maintenance", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) cancelMaintenance(c *gin.Context) {
	id, ok := pathID(c, "maintenance")
	if !ok {
		return
	}

	m, err := h.maintenance.CancelMaintenance(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to cancel maintenance", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) getMaintenance(c *gin.Context) {
	id, ok := pathID(c, "maintenance")
	if !ok {
		return
	}

	m, err := h.maintenance.GetMaintenance(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "Failed to get maintenance", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) listMaintenance(c *gin.Context) {
	q := newQueryParser(c)
	f := models.MaintenanceFilter{
		CarID:      q.int64Ptr("car_id"),
		EmployeeID: q.int64Ptr("employee_id"),
		BranchID:   q.int64Ptr("branch_id"),
		Status:     queryEnum(q, "status", models.ParseMaintenanceStatus),
		Type:       queryEnum(q, "type", models.ParseMaintenanceType),
		From:       q.date("from"),
		To:         q.date("to"),
		Page:       q.intOr("page", 0),
		Size:       q.intOr("size", 0),
	}
	if q.err != nil {
		badRequest(c, "Invalid query parameters", q.err)
		return
	}

	page, err := h.maintenance.ListMaintenance(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "Failed to list maintenance", err)
		return
	}
	c.JSON(http.StatusOK, page)
}
