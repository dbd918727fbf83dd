// Package store provides data access for the audit_logs table.
//
// Every operation runs on a tenant-bound session handed in by the caller;
// stores never acquire connections themselves. Statements are always
// parameterized. Column names come only from constants in this package.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

const defaultQueryTimeout = 30 * time.Second

// ErrTenantMismatch means an entry names a different tenant than the session it is written on.
var ErrTenantMismatch = errors.New("entry comp_code does not match session tenant")

// Session is the slice of a tenant-bound connection the stores need.
// tenancy.Session satisfies it.
type Session interface {
	TenantID() string
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Base contains shared dependencies for all stores.
type Base struct {
	Log *logrus.Logger
}

// StorageError wraps any failure while reading or writing audit_logs. The
// enclosing transaction has been rolled back when it is returned.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error { return e.Err }

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}
