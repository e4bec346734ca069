package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opsmesh/watchtower-backend/errors"
	"github.com/opsmesh/watchtower-backend/services"
	"github.com/opsmesh/watchtower-backend/types"
)

// ErrorHandler exposes error ingestion and pattern analysis over HTTP.
type ErrorHandler struct {
	tracker *services.ErrorTracker
}

func NewErrorHandler(tracker *services.ErrorTracker) *ErrorHandler {
	return &ErrorHandler{tracker: tracker}
}

// ReportErrorHandler ingests one error report. Returns 201 with the
// stored record ID, or 202 with a null id when the tracker fell back to
// diagnostic logging (the report was accepted but not stored).
func (h *ErrorHandler) ReportErrorHandler(c *gin.Context) {
	var report types.ErrorReport
	if err := c.ShouldBindJSON(&report); err != nil {
		_ = c.Error(errors.ValidationFailed("Invalid error report", err.Error()))
		return
	}

	id := h.tracker.LogError(c.Request.Context(), report)
	if id == uuid.Nil {
		c.JSON(http.StatusAccepted, gin.H{"id": nil, "status": "accepted"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id.String(), "status": "recorded"})
}

// ErrorPatternsHandler returns the aggregated error patterns for a
// lookback window given as ?window=<int>&unit=hours|days|weeks.
func (h *ErrorHandler) ErrorPatternsHandler(c *gin.Context) {
	quantity := 0
	if raw := c.Query("window"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = c.Error(errors.ValidationFailed("Invalid window", "window must be an integer"))
			return
		}
		quantity = parsed
	}
	unit := services.WindowUnit(c.Query("unit"))

	summary, err := h.tracker.TrackErrorPatterns(c.Request.Context(), quantity, unit)
	if err != nil {
		_ = c.Error(errors.Wrap(err, errors.ServerError, "Pattern analysis failed"))
		return
	}

	c.JSON(http.StatusOK, summary)
}

// RecentErrorsHandler lists recent error records with optional severity
// and category filters.
func (h *ErrorHandler) RecentErrorsHandler(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = c.Error(errors.ValidationFailed("Invalid limit", "limit must be an integer"))
			return
		}
		limit = parsed
	}

	records := h.tracker.RecentErrors(
		c.Request.Context(),
		types.Severity(c.Query("severity")),
		types.Category(c.Query("category")),
		limit,
	)

	c.JSON(http.StatusOK, gin.H{"errors": records, "count": len(records)})
}
