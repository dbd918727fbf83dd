package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/auditlog/internal/httputil"
	"github.com/persistorai/auditlog/internal/models"
	"github.com/persistorai/auditlog/internal/store"
	"github.com/persistorai/auditlog/internal/tenancy"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest      = "invalid_request"
	ErrCodeMissingTenant       = "missing_tenant"
	ErrCodeInternalError       = "internal_error"
	ErrCodeTenantSetupFailed   = "tenant_setup_failed"
	ErrCodeUnavailable         = "unavailable"
	ErrCodeValidationError     = "validation_error"
	ErrCodeNotFound            = "not_found"
	ErrCodeRequestTimeout      = "timeout"
	ErrCodeMethodNotAllowed    = "method_not_allowed"
	internalErrorPublicMessage = "internal server error"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	httputil.RespondError(c, status, code, message)
}

// errorResponder maps service errors onto HTTP responses. Server-side detail
// is only exposed when debug is set.
type errorResponder struct {
	debug bool
}

func (r errorResponder) respond(c *gin.Context, err error) {
	var (
		verr       *models.ValidationError
		setupErr   *tenancy.SetupError
		storageErr *store.StorageError
	)

	switch {
	case errors.As(err, &verr):
		httputil.RespondValidation(c, http.StatusBadRequest, verr)
	case errors.Is(err, models.ErrMissingTenant), errors.Is(err, tenancy.ErrMissingTenant):
		respondError(c, http.StatusBadRequest, ErrCodeMissingTenant, models.ErrMissingTenant.Error())
	case errors.Is(err, models.ErrMixedTenants), errors.Is(err, store.ErrTenantMismatch):
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, tenancy.ErrPoolExhausted):
		c.Header("Retry-After", "1")
		respondError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "no database capacity, retry later")
	case errors.As(err, &setupErr):
		respondError(c, http.StatusInternalServerError, ErrCodeTenantSetupFailed, r.detail(err, "could not establish tenant session"))
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, ErrCodeRequestTimeout, r.detail(err, "request timed out"))
	case errors.As(err, &storageErr):
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, r.detail(err, internalErrorPublicMessage))
	default:
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, r.detail(err, internalErrorPublicMessage))
	}
}

func (r errorResponder) detail(err error, public string) string {
	if r.debug {
		return err.Error()
	}

	return public
}
