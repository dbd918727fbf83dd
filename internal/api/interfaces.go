package api

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/auditlog/internal/domain"
)

// LogService is the audit log surface used by LogHandler.
type LogService = domain.AuditLogService

// HealthChecker is the database surface used by HealthHandler. *dbpool.Pool satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
