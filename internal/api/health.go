// Package api provides HTTP handlers for the audit log service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	pool          HealthChecker
	log           *logrus.Logger
	version       string
	schemaVersion int
	startTime     time.Time
}

// NewHealthHandler creates a HealthHandler. schemaVersion is the migration
// version this binary expects the database to be at.
func NewHealthHandler(pool HealthChecker, log *logrus.Logger, version string, schemaVersion int) *HealthHandler {
	return &HealthHandler{
		pool:          pool,
		log:           log,
		version:       version,
		schemaVersion: schemaVersion,
		startTime:     time.Now(),
	}
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	SchemaVersion int     `json:"schema_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Liveness handles GET /health. It always answers 200; the database field is
// informational.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		SchemaVersion: h.schemaVersion,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.pool != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.pool.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	} else {
		resp.Database = "not_configured"
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /ready: the database must answer, be migrated to at
// least the expected schema version, and the service role must be subject to
// row-level security.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{
		"database":     "ok",
		"schema":       "ok",
		"row_security": "enforced",
	}
	status := "ready"
	statusCode := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if h.pool == nil {
		checks["database"] = "not_configured"
		checks["schema"] = "unknown"
		checks["row_security"] = "unknown"
		c.JSON(http.StatusServiceUnavailable, readinessResponse{Status: "not_ready", Checks: checks})

		return
	}

	if err := h.pool.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database health check failed")
		checks["database"] = "error"
		checks["schema"] = "unknown"
		checks["row_security"] = "unknown"
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	} else {
		if err := h.checkSchema(ctx); err != nil {
			h.log.WithError(err).Error("readiness: schema check failed")
			checks["schema"] = "error"
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
		}

		bypassed, err := h.bypassesRowSecurity(ctx)
		switch {
		case err != nil:
			h.log.WithError(err).Error("readiness: role check failed")
			checks["row_security"] = "error"
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
		case bypassed:
			h.log.Error("readiness: database role is superuser or BYPASSRLS, tenant policy is not applied")
			checks["row_security"] = "bypassed"
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
		}
	}

	c.JSON(statusCode, readinessResponse{
		Status: status,
		Checks: checks,
	})
}

// bypassesRowSecurity reports whether the connected role ignores row-level
// security policies. FORCE ROW LEVEL SECURITY does not apply to such roles.
func (h *HealthHandler) bypassesRowSecurity(ctx context.Context) (bool, error) {
	var bypassed bool
	err := h.pool.QueryRow(ctx,
		"SELECT rolsuper OR rolbypassrls FROM pg_roles WHERE rolname = current_user",
	).Scan(&bypassed)
	if err != nil {
		return false, fmt.Errorf("role check: %w", err)
	}

	return bypassed, nil
}

// checkSchema compares the newest applied goose migration with the expected version.
func (h *HealthHandler) checkSchema(ctx context.Context) error {
	var applied int64
	err := h.pool.QueryRow(ctx,
		"SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied",
	).Scan(&applied)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	if applied < int64(h.schemaVersion) {
		return fmt.Errorf("schema at version %d, want %d", applied, h.schemaVersion)
	}

	return nil
}
