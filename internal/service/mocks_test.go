package service

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/auditlog/internal/models"
	"github.com/persistorai/auditlog/internal/store"
	"github.com/persistorai/auditlog/internal/tenancy"
)

// mockSession counts releases.
type mockSession struct {
	tenantID string

	mu       sync.Mutex
	releases int
}

func (s *mockSession) TenantID() string { return s.tenantID }

func (s *mockSession) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) { //nolint:gocritic // matching pgx signature.
	return nil, tenancy.ErrSessionReleased
}

func (s *mockSession) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
}

func (s *mockSession) released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

// mockSessions records acquired tenants and returns configured responses.
type mockSessions struct {
	mu       sync.Mutex
	tenants  []string
	sessions []*mockSession

	err      error
	deadline bool
}

func (m *mockSessions) Acquire(ctx context.Context, tenantID string) (tenancy.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, m.deadline = ctx.Deadline()
	m.tenants = append(m.tenants, tenantID)
	if m.err != nil {
		return nil, m.err
	}

	sess := &mockSession{tenantID: tenantID}
	m.sessions = append(m.sessions, sess)

	return sess, nil
}

func (m *mockSessions) acquired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tenants...)
}

// mockBatchStore records calls and returns configured responses.
type mockBatchStore struct {
	calls      int
	storeBatch func(ctx context.Context, sess store.Session, logs []models.LogInput) (*models.BatchResult, error)
}

func (m *mockBatchStore) StoreBatch(ctx context.Context, sess store.Session, logs []models.LogInput) (*models.BatchResult, error) {
	m.calls++
	return m.storeBatch(ctx, sess, logs)
}

// mockQueryStore records the shape called and the filter it received.
type mockQueryStore struct {
	shape  string
	filter models.LogFilter
	tenant string

	page *models.Page
	err  error
}

func (m *mockQueryStore) run(shape string, sess store.Session, f models.LogFilter) (*models.Page, error) {
	m.shape = shape
	m.filter = f
	m.tenant = sess.TenantID()
	if m.err != nil {
		return nil, m.err
	}
	if m.page != nil {
		return m.page, nil
	}
	return &models.Page{Data: []models.AuditLogEntry{}, Limit: f.PageLimit(), Offset: f.Offset}, nil
}

func (m *mockQueryStore) ByEmployee(_ context.Context, sess store.Session, f models.LogFilter) (*models.Page, error) {
	return m.run("by_employee", sess, f)
}

func (m *mockQueryStore) ByApplication(_ context.Context, sess store.Session, f models.LogFilter) (*models.Page, error) {
	return m.run("by_application", sess, f)
}

func (m *mockQueryStore) Search(_ context.Context, sess store.Session, f models.LogFilter) (*models.Page, error) {
	return m.run("search", sess, f)
}
