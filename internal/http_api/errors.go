package http_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/core-coin/obolus/internal/models"
)

var statusByKind = map[models.Kind]int{
	models.KindValidation:        http.StatusBadRequest,
	models.KindNotFound:          http.StatusNotFound,
	models.KindInsufficientFunds: http.StatusPaymentRequired,
	models.KindSignature:         http.StatusBadRequest,
	models.KindConflict:          http.StatusConflict,
	models.KindUnauthorized:      http.StatusUnauthorized,
	models.KindForbidden:         http.StatusForbidden,
	models.KindStore:             http.StatusInternalServerError,
}

// respondError writes {"success":false,"kind":...,"error":...}. Store errors
// are logged and their details are not exposed.
func (s *HTTPServer) respondError(c *gin.Context, err error) {
	kind := models.ErrorKind(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if kind == models.KindStore {
		s.logger.Errorw("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		message = "internal error"
	} else {
		s.logger.Debugw("Request rejected", "method", c.Request.Method, "path", c.FullPath(), "kind", kind, "error", err)
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"kind":    kind,
		"error":   message,
	})
}

func (s *HTTPServer) respondBadRequest(c *gin.Context, err error) {
	s.logger.Debugw("Invalid request body", "path", c.FullPath(), "error", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"kind":    models.KindValidation,
		"error":   "Invalid request body: " + err.Error(),
	})
}
