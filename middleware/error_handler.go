package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsmesh/watchtower-backend/errors"
	"github.com/opsmesh/watchtower-backend/logger"
	"github.com/opsmesh/watchtower-backend/services"
	"github.com/opsmesh/watchtower-backend/types"
)

// ErrorHandler translates errors attached to the gin context into the
// service's JSON error shape and feeds every failed request through the
// error tracker. The HTTP status comes from the AppError when there is
// one, otherwise 500. The tracker may be nil (probe-only routers).
func ErrorHandler(tracker *services.ErrorTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		statusCode := 500
		errType := string(errors.ServerError)
		message := "Internal Server Error"

		if appError, ok := err.(*errors.AppError); ok {
			statusCode = appError.GetHTTPStatus()
			errType = string(appError.Type)
			message = appError.Message
		} else if c.Errors.Last().Type == gin.ErrorTypeBind {
			statusCode = 400
			errType = string(errors.ValidationError)
			message = "Failed to bind request"
		}

		logger.LogHTTPError(c, err, statusCode, message)

		if tracker != nil {
			tracker.LogError(c.Request.Context(), types.ErrorReport{
				Message:   err.Error(),
				Component: "api",
				Context: map[string]interface{}{
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"client_ip":  c.ClientIP(),
					"request_id": c.GetString(RequestIDKey),
					"status":     statusCode,
				},
			})
		}

		c.JSON(statusCode, gin.H{
			"error":     message,
			"type":      errType,
			"code":      strconv.Itoa(statusCode),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
