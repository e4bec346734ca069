package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/opsmesh/watchtower-backend/errors"
	"github.com/opsmesh/watchtower-backend/logger"
)

func init() {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
}

func performRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_AppError(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler(nil))
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound("error record", "42"))
	})

	w := performRequest(router, http.MethodGet, "/boom")

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, "error record not found", body["error"])
	assert.Equal(t, string(apperrors.NotFoundError), body["type"])
	assert.Equal(t, "404", body["code"])

	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestErrorHandler_UnknownErrorIs500(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler(nil))
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("something unexpected"))
	})

	w := performRequest(router, http.MethodGet, "/boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, "Internal Server Error", body["error"])
	assert.Equal(t, string(apperrors.ServerError), body["type"])
	assert.Equal(t, "500", body["code"])
}

func TestErrorHandler_BindErrorIs400(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler(nil))
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("bad payload")).SetType(gin.ErrorTypeBind)
	})

	w := performRequest(router, http.MethodGet, "/boom")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, string(apperrors.ValidationError), body["type"])
}

func TestErrorHandler_NoErrorPassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler(nil))
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := performRequest(router, http.MethodGet, "/ok")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = c.GetString(RequestIDKey)
		c.Status(http.StatusOK)
	})

	w := performRequest(router, http.MethodGet, "/")

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_HonorsUpstreamID(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "lb-assigned-id")
	router.ServeHTTP(w, req)

	assert.Equal(t, "lb-assigned-id", w.Header().Get("X-Request-ID"))
}
