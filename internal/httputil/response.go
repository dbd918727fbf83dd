// Package httputil provides shared HTTP response helpers.
package httputil

import (
	"github.com/gin-gonic/gin"

	"github.com/persistorai/auditlog/internal/models"
)

// Context keys shared by middleware and handlers.
const (
	RequestIDKey = "request_id"
	TenantIDKey  = "tenant_id"
	ErrorCodeKey = "error_code"
)

// ErrorResponse is the JSON envelope for every non-2xx response.
type ErrorResponse struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Details   []models.FieldError `json:"details,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// RespondError writes a standardized JSON error response and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	respond(c, status, ErrorResponse{Code: code, Message: message})
}

// RespondValidation writes a 400 listing every offending field.
func RespondValidation(c *gin.Context, status int, verr *models.ValidationError) {
	respond(c, status, ErrorResponse{
		Code:    "validation_error",
		Message: "request validation failed",
		Details: verr.Fields,
	})
}

func respond(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = c.GetString(RequestIDKey)
	c.Set(ErrorCodeKey, resp.Code)
	c.AbortWithStatusJSON(status, resp)
}
