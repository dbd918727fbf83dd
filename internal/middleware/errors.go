package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/persistorai/auditlog/internal/httputil"
)

// Error codes written by middleware.
const (
	errCodeUnauthorized    = "unauthorized"
	errCodeRateLimited     = "rate_limited"
	errCodeInvalidRequest  = "invalid_request"
	errCodeMissingTenant   = "missing_tenant"
	errCodePayloadTooLarge = "payload_too_large"
)

// respondError delegates to the shared httputil.RespondError helper.
func respondError(c *gin.Context, code int, errCode, message string) {
	httputil.RespondError(c, code, errCode, message)
}
