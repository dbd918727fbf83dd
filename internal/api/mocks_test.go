package api_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/auditlog/internal/models"
)

// mockLogService implements api.LogService for testing.
type mockLogService struct {
	mu    sync.Mutex
	calls []string

	submitFn func(ctx context.Context, req models.BatchRequest) (*models.BatchResult, error)
	listFn   func(ctx context.Context, f models.LogFilter) (*models.Page, error)
}

func (m *mockLogService) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockLogService) called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockLogService) SubmitBatch(ctx context.Context, req models.BatchRequest) (*models.BatchResult, error) {
	m.record("SubmitBatch")
	return m.submitFn(ctx, req)
}

func (m *mockLogService) ListByEmployee(ctx context.Context, f models.LogFilter) (*models.Page, error) {
	m.record("ListByEmployee")
	return m.listFn(ctx, f)
}

func (m *mockLogService) ListByApplication(ctx context.Context, f models.LogFilter) (*models.Page, error) {
	m.record("ListByApplication")
	return m.listFn(ctx, f)
}

func (m *mockLogService) Search(ctx context.Context, f models.LogFilter) (*models.Page, error) {
	m.record("Search")
	return m.listFn(ctx, f)
}

// capturingList returns an empty page and stores the filter it was given.
func capturingList(dst *models.LogFilter) func(context.Context, models.LogFilter) (*models.Page, error) {
	return func(_ context.Context, f models.LogFilter) (*models.Page, error) {
		*dst = f
		return &models.Page{Data: []models.AuditLogEntry{}, Limit: f.PageLimit(), Offset: f.Offset}, nil
	}
}

// mockHealthChecker implements api.HealthChecker. Role queries answer with
// bypassRLS, every other query with schemaVer.
type mockHealthChecker struct {
	pingErr   error
	schemaVer int64
	schemaErr error
	bypassRLS bool
	roleErr   error
}

func (m *mockHealthChecker) HealthCheck(context.Context) error { return m.pingErr }

func (m *mockHealthChecker) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if strings.Contains(sql, "pg_roles") {
		return fakeRow{val: m.bypassRLS, err: m.roleErr}
	}

	return fakeRow{val: m.schemaVer, err: m.schemaErr}
}

type fakeRow struct {
	val any
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return errors.New("fakeRow: expected one destination")
	}
	switch p := dest[0].(type) {
	case *int64:
		v, ok := r.val.(int64)
		if !ok {
			return errors.New("fakeRow: value is not int64")
		}
		*p = v
	case *bool:
		v, ok := r.val.(bool)
		if !ok {
			return errors.New("fakeRow: value is not bool")
		}
		*p = v
	default:
		return errors.New("fakeRow: unsupported destination")
	}
	return nil
}
