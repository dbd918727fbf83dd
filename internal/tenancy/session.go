// Package tenancy binds pooled database connections to a single tenant for the
// lifetime of one request.
//
// The audit_logs row-level-security policy reads the app.current_tenant
// setting on every statement. A Session sets that marker right after the
// connection leaves the pool and clears it before the connection goes back,
// so a reused connection never carries a previous tenant's binding.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditlog/internal/metrics"
)

// TenantSetting is the session variable the isolation policy reads.
const TenantSetting = "app.current_tenant"

const (
	defaultAcquireTimeout = 5 * time.Second
	releaseTimeout        = 5 * time.Second
)

var (
	// ErrMissingTenant is returned before any connection is requested.
	ErrMissingTenant = errors.New("tenant identifier is required")

	// ErrPoolExhausted means no connection became free within the acquire timeout.
	ErrPoolExhausted = errors.New("no database session available")

	// ErrSessionReleased is returned when a released session is used again.
	ErrSessionReleased = errors.New("session already released")
)

// SetupError reports a failure to bind a connection to a tenant. The
// connection has already been discarded when this is returned.
type SetupError struct {
	TenantID string
	Err      error
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	return fmt.Sprintf("binding session to tenant %q: %v", e.TenantID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SetupError) Unwrap() error { return e.Err }

// Session is a connection bound to one tenant. Release must be called exactly
// once on every path; extra calls are no-ops.
type Session interface {
	TenantID() string
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Release()
}

// ConnSource hands out pooled connections. *dbpool.Pool satisfies it.
type ConnSource interface {
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
}

// Manager acquires tenant-bound sessions from a bounded pool.
type Manager struct {
	pool           ConnSource
	log            *logrus.Logger
	acquireTimeout time.Duration
}

// NewManager creates a Manager. acquireTimeout caps how long Acquire waits for
// a free connection.
func NewManager(pool ConnSource, log *logrus.Logger, acquireTimeout time.Duration) *Manager {
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}

	return &Manager{pool: pool, log: log, acquireTimeout: acquireTimeout}
}

// Acquire takes a connection from the pool, binds it to tenantID and verifies
// the binding. No session is returned on failure.
func (m *Manager) Acquire(ctx context.Context, tenantID string) (Session, error) {
	if tenantID == "" {
		return nil, ErrMissingTenant
	}

	start := time.Now()

	acquireCtx, cancel := context.WithTimeout(ctx, m.acquireTimeout)
	conn, err := m.pool.Acquire(acquireCtx)
	cancel()

	metrics.SessionAcquireDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			metrics.SessionSetupFailures.WithLabelValues("pool_exhausted").Inc()

			return nil, fmt.Errorf("waited %s: %w", m.acquireTimeout, ErrPoolExhausted)
		}

		metrics.SessionSetupFailures.WithLabelValues("acquire").Inc()

		return nil, &SetupError{TenantID: tenantID, Err: fmt.Errorf("acquiring connection: %w", err)}
	}

	if err := bindTenant(ctx, conn, tenantID); err != nil {
		metrics.SessionSetupFailures.WithLabelValues("bind").Inc()
		discard(conn)

		return nil, &SetupError{TenantID: tenantID, Err: err}
	}

	metrics.SessionsInUse.Inc()

	return &boundSession{conn: conn, tenantID: tenantID, log: m.log}, nil
}

// bindTenant sets the tenant marker through a bound parameter and reads it back.
func bindTenant(ctx context.Context, conn *pgxpool.Conn, tenantID string) error {
	if _, err := conn.Exec(ctx, "SELECT set_config($1, $2, false)", TenantSetting, tenantID); err != nil {
		return fmt.Errorf("setting tenant context: %w", err)
	}

	var bound string
	if err := conn.QueryRow(ctx, "SELECT COALESCE(current_setting($1, true), '')", TenantSetting).Scan(&bound); err != nil {
		return fmt.Errorf("verifying tenant context: %w", err)
	}

	if bound != tenantID {
		return fmt.Errorf("tenant context mismatch after bind")
	}

	return nil
}

// discard closes the underlying connection so the pool destroys it on release.
func discard(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	conn.Conn().Close(ctx) //nolint:errcheck // connection is being thrown away.
	conn.Release()
}

type boundSession struct {
	conn     *pgxpool.Conn
	tenantID string
	log      *logrus.Logger
	released atomic.Bool
	once     sync.Once
}

func (s *boundSession) TenantID() string { return s.tenantID }

func (s *boundSession) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) { //nolint:gocritic // matching pgx signature.
	if s.released.Load() {
		return nil, ErrSessionReleased
	}

	return s.conn.BeginTx(ctx, opts)
}

// Release clears the tenant marker and returns the connection to the pool. It
// uses its own context so a cancelled request still resets the binding. If
// the reset fails the connection is destroyed instead of reused.
func (s *boundSession) Release() {
	s.once.Do(func() {
		s.released.Store(true)
		defer metrics.SessionsInUse.Dec()

		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if _, err := s.conn.Exec(ctx, "SELECT set_config($1, '', false)", TenantSetting); err != nil {
			s.log.WithError(err).WithField("tenant_id", s.tenantID).Warn("clearing tenant context failed, discarding connection")
			discard(s.conn)

			return
		}

		s.conn.Release()
	})
}
