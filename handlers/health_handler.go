package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsmesh/watchtower-backend/errors"
	"github.com/opsmesh/watchtower-backend/services"
	"github.com/opsmesh/watchtower-backend/types"
)

// HealthHandler exposes the infrastructure probes and the system health
// report endpoints.
type HealthHandler struct {
	probe   *services.ProbeService
	monitor *services.HealthMonitor
}

func NewHealthHandler(probe *services.ProbeService, monitor *services.HealthMonitor) *HealthHandler {
	return &HealthHandler{probe: probe, monitor: monitor}
}

// LivenessCheck handles kubernetes liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

// ReadinessCheck handles kubernetes readiness probe
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	result := h.probe.CheckHealth(c.Request.Context())

	if result.Status == types.HealthStatusUnhealthy {
		c.JSON(http.StatusServiceUnavailable, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DetailedHealth provides detailed infrastructure health information.
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.probe.CheckHealth(c.Request.Context()))
}

// SystemHealthReportHandler generates, persists and returns a fresh
// system-wide health report.
func (h *HealthHandler) SystemHealthReportHandler(c *gin.Context) {
	report, err := h.monitor.GetSystemHealthReport(c.Request.Context())
	if err != nil {
		_ = c.Error(errors.Wrap(err, errors.ServerError, "Failed to generate health report"))
		return
	}

	c.JSON(http.StatusOK, report)
}

// componentHealthUpdate is the body of a manual component health upsert.
type componentHealthUpdate struct {
	Status  types.HealthStatus     `json:"status" binding:"required"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// UpdateComponentHealthHandler upserts the health of a named component.
func (h *HealthHandler) UpdateComponentHealthHandler(c *gin.Context) {
	component := c.Param("component")
	if component == "" {
		_ = c.Error(errors.ValidationFailed("Missing component", "component name is required"))
		return
	}

	var update componentHealthUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		_ = c.Error(errors.ValidationFailed("Invalid health update", err.Error()))
		return
	}
	if !update.Status.Valid() {
		_ = c.Error(errors.ValidationFailed("Invalid status",
			"status must be healthy, degraded or unhealthy"))
		return
	}

	if err := h.monitor.UpdateComponentHealth(c.Request.Context(), component, update.Status, update.Metrics); err != nil {
		_ = c.Error(errors.Wrap(err, errors.DatabaseError, "Failed to update component health"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": component, "status": update.Status})
}
