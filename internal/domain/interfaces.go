// Package domain defines the canonical service interfaces shared across API
// layers (REST handlers, client SDK). Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/persistorai/auditlog/internal/models"
	"github.com/persistorai/auditlog/internal/tenancy"
)

// AuditLogService defines every audit log operation exposed over HTTP.
type AuditLogService interface {
	BatchSubmitter
	LogReader
}

// BatchSubmitter ingests a batch of entries for the tenant named in the batch.
type BatchSubmitter interface {
	SubmitBatch(ctx context.Context, req models.BatchRequest) (*models.BatchResult, error)
}

// LogReader serves the paginated read shapes. The tenant is f.CompCode.
type LogReader interface {
	ListByEmployee(ctx context.Context, f models.LogFilter) (*models.Page, error)
	ListByApplication(ctx context.Context, f models.LogFilter) (*models.Page, error)
	Search(ctx context.Context, f models.LogFilter) (*models.Page, error)
}

// SessionManager hands out tenant-bound sessions. *tenancy.Manager satisfies it.
type SessionManager interface {
	Acquire(ctx context.Context, tenantID string) (tenancy.Session, error)
}
