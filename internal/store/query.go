package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/auditlog/internal/metrics"
	"github.com/persistorai/auditlog/internal/models"
)

// QueryStore serves paginated reads of audit_logs.
type QueryStore struct {
	Base
}

// NewQueryStore creates a QueryStore with the given shared base.
func NewQueryStore(base Base) *QueryStore {
	return &QueryStore{Base: base}
}

// ByEmployee returns entries for f.EmpID, optionally bounded by f.From/f.To.
func (s *QueryStore) ByEmployee(ctx context.Context, sess Session, f models.LogFilter) (*models.Page, error) {
	return s.query(ctx, sess, ShapeByEmployee, &f)
}

// ByApplication returns entries for f.SourceApp, optionally narrowed by
// f.SourceFunction and a time range.
func (s *QueryStore) ByApplication(ctx context.Context, sess Session, f models.LogFilter) (*models.Page, error) {
	return s.query(ctx, sess, ShapeByApplication, &f)
}

// Search returns entries matching any combination of the search predicates.
func (s *QueryStore) Search(ctx context.Context, sess Session, f models.LogFilter) (*models.Page, error) {
	return s.query(ctx, sess, ShapeSearch, &f)
}

// query runs the count and the page in one repeatable-read snapshot so the
// total always agrees with the rows returned.
func (s *QueryStore) query(ctx context.Context, sess Session, shape Shape, f *models.LogFilter) (*models.Page, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues(string(shape)).Observe(time.Since(start).Seconds())
	}()

	// The bound tenant wins over anything the caller put in the filter.
	f.CompCode = sess.TenantID()

	where, args, err := buildLogFilter(shape, f)
	if err != nil {
		return nil, err
	}

	limit := min(f.PageLimit(), models.MaxPageLimit)
	offset := min(max(f.Offset, 0), models.MaxPageOffset)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := sess.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, &StorageError{Op: "beginning read transaction", Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	var total int64
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs "+where, args...).Scan(&total); err != nil {
		return nil, &StorageError{Op: "counting audit logs", Err: err}
	}

	page := &models.Page{Data: []models.AuditLogEntry{}, TotalCount: total, Limit: limit, Offset: offset}
	if total == 0 || offset >= int(total) {
		return page, nil
	}

	pageArgs := make([]any, 0, len(args)+2)
	pageArgs = append(pageArgs, args...)
	pageArgs = append(pageArgs, limit, offset)

	rows, err := tx.Query(ctx, "SELECT "+logColumns+" FROM audit_logs "+where+pageClause(len(args)+1), pageArgs...)
	if err != nil {
		return nil, &StorageError{Op: "querying audit logs", Err: err}
	}

	entries, err := collectLogs(rows)
	if err != nil {
		return nil, &StorageError{Op: "reading audit logs", Err: err}
	}

	page.Data = entries

	return page, nil
}
