// Package service provides business logic between API handlers and data stores.
//
// Every operation follows the same session discipline: validate, acquire a
// tenant-bound session under a per-request deadline, run one store call, and
// release the session on every path.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditlog/internal/domain"
	"github.com/persistorai/auditlog/internal/models"
	"github.com/persistorai/auditlog/internal/store"
	"github.com/persistorai/auditlog/internal/tenancy"
)

const defaultRequestTimeout = 30 * time.Second

// BatchStore is the write path AuditLogService depends on.
type BatchStore interface {
	StoreBatch(ctx context.Context, sess store.Session, logs []models.LogInput) (*models.BatchResult, error)
}

// QueryStore is the read path AuditLogService depends on.
type QueryStore interface {
	ByEmployee(ctx context.Context, sess store.Session, f models.LogFilter) (*models.Page, error)
	ByApplication(ctx context.Context, sess store.Session, f models.LogFilter) (*models.Page, error)
	Search(ctx context.Context, sess store.Session, f models.LogFilter) (*models.Page, error)
}

// Compile-time check: *AuditLogService must satisfy domain.AuditLogService.
var _ domain.AuditLogService = (*AuditLogService)(nil)

// AuditLogService coordinates tenant sessions with the batch and query stores.
type AuditLogService struct {
	sessions       domain.SessionManager
	batches        BatchStore
	queries        QueryStore
	log            *logrus.Logger
	requestTimeout time.Duration
}

// NewAuditLogService creates an AuditLogService. requestTimeout bounds the
// whole session lifetime of one call; zero selects the default.
func NewAuditLogService(
	sessions domain.SessionManager, batches BatchStore, queries QueryStore, log *logrus.Logger, requestTimeout time.Duration,
) *AuditLogService {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return &AuditLogService{
		sessions:       sessions,
		batches:        batches,
		queries:        queries,
		log:            log,
		requestTimeout: requestTimeout,
	}
}

// withSession runs fn on a session bound to tenantID. The session is released
// before withSession returns, whatever fn does.
func (s *AuditLogService) withSession(ctx context.Context, tenantID string, fn func(context.Context, tenancy.Session) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	sess, err := s.sessions.Acquire(ctx, tenantID)
	if err != nil {
		s.report(ctx, tenantID, err)

		return err
	}
	defer sess.Release()

	if err := fn(ctx, sess); err != nil {
		s.report(ctx, tenantID, err)

		return err
	}

	return nil
}

// report logs server-side failures and forwards them to Sentry. Client errors
// are left to the HTTP layer.
func (s *AuditLogService) report(ctx context.Context, tenantID string, err error) {
	var setupErr *tenancy.SetupError
	var storageErr *store.StorageError

	switch {
	case errors.As(err, &setupErr), errors.As(err, &storageErr):
	case errors.Is(err, tenancy.ErrPoolExhausted):
		s.log.WithError(err).WithField("tenant_id", tenantID).Warn("session pool exhausted")

		return
	default:
		return
	}

	s.log.WithError(err).WithField("tenant_id", tenantID).Error("audit log operation failed")

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("tenant_id", tenantID)
		hub.CaptureException(err)
	})
}
