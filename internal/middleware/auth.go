package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditlog/internal/httputil"
	"github.com/persistorai/auditlog/internal/metrics"
	"github.com/persistorai/auditlog/internal/models"
	"github.com/persistorai/auditlog/internal/security"
)

// APIKeyHeader carries the caller's tenant API key.
const APIKeyHeader = "x-api-key"

// authTimingFloor is the minimum response time for rejected credentials, so
// a wrong key and an unknown tenant cannot be told apart by latency.
const authTimingFloor = 50 * time.Millisecond

var errInvalidBody = errors.New("request body is not a valid batch")

// KeyVerifier checks an API key against a tenant. *security.KeyRing satisfies it.
type KeyVerifier interface {
	Verify(tenantID, apiKey string) bool
}

// enforceTimingFloor sleeps if needed so the response takes at least authTimingFloor.
func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// TenantAuth resolves the tenant a request targets and checks the x-api-key
// header against it. Reads name their tenant in the comp_code query
// parameter; batch writes name it in every entry's comp_code. The resolved
// tenant is stored under httputil.TenantIDKey.
//
// A missing key is 401. A missing or inconsistent tenant is 400 and stops the
// request before any database work. Clients that keep failing are locked out
// by guard, when one is given.
func TenantAuth(keys KeyVerifier, guard *security.BruteForceGuard, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				enforceTimingFloor(start)
			}
		}()

		subject := c.ClientIP()
		if guard != nil && guard.IsBlocked(subject) {
			metrics.AuthFailures.WithLabelValues("locked_out").Inc()
			respondError(c, http.StatusTooManyRequests, errCodeRateLimited, "too many failed authentication attempts")

			return
		}

		apiKey := c.GetHeader(APIKeyHeader)
		if apiKey == "" {
			metrics.AuthFailures.WithLabelValues("missing_key").Inc()
			respondError(c, http.StatusUnauthorized, errCodeUnauthorized, "missing x-api-key header")

			return
		}

		tenantID, ok := resolveTenant(c)
		if !ok {
			return
		}

		if !keys.Verify(tenantID, apiKey) {
			metrics.AuthFailures.WithLabelValues("invalid_key").Inc()
			logAuthFailure(log, c, tenantID, apiKey)

			if guard != nil {
				guard.RecordFailure(subject)
			}

			respondError(c, http.StatusUnauthorized, errCodeUnauthorized, "invalid api key for tenant")

			return
		}

		if guard != nil {
			guard.Reset(subject)
		}

		c.Set(httputil.TenantIDKey, tenantID)
		c.Next()
	}
}

// resolveTenant reads the target tenant and writes the 4xx response itself
// when it cannot.
func resolveTenant(c *gin.Context) (string, bool) {
	if c.Request.Method == http.MethodGet {
		tenantID := strings.TrimSpace(c.Query("comp_code"))
		if tenantID == "" {
			metrics.AuthFailures.WithLabelValues("missing_tenant").Inc()
			respondError(c, http.StatusBadRequest, errCodeMissingTenant, models.ErrMissingTenant.Error())

			return "", false
		}

		return tenantID, true
	}

	// The raw body is cached by gin so the handler can bind it again.
	var req models.BatchRequest
	if err := c.ShouldBindBodyWithJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, errCodePayloadTooLarge, "request body too large")

			return "", false
		}

		respondError(c, http.StatusBadRequest, errCodeInvalidRequest, errInvalidBody.Error())

		return "", false
	}

	if len(req.Logs) == 0 {
		verr := &models.ValidationError{}
		verr.Add("logs", models.ErrEmptyBatch)
		httputil.RespondValidation(c, http.StatusBadRequest, verr)

		return "", false
	}

	tenantID, err := req.TenantID()
	if err != nil {
		metrics.AuthFailures.WithLabelValues("missing_tenant").Inc()

		code := errCodeMissingTenant
		if errors.Is(err, models.ErrMixedTenants) {
			code = errCodeInvalidRequest
		}

		respondError(c, http.StatusBadRequest, code, err.Error())

		return "", false
	}

	return tenantID, true
}

// logAuthFailure logs a failed authentication attempt without the key itself.
func logAuthFailure(log *logrus.Logger, c *gin.Context, tenantID, apiKey string) {
	log.WithFields(logrus.Fields{
		"client_ip":       c.ClientIP(),
		"method":          c.Request.Method,
		"path":            c.Request.URL.Path,
		"user_agent":      c.Request.UserAgent(),
		"request_id":      c.GetString(httputil.RequestIDKey),
		"tenant_id":       tenantID,
		"key_fingerprint": security.Fingerprint(apiKey),
	}).Warn("authentication failed: invalid api key")
}
