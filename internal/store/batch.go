package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditlog/internal/models"
)

// insertLogSQL writes one entry. A row with the same (comp_code, process_id)
// turns the insert into a no-op, which is how retried submissions stay idempotent.
const insertLogSQL = `INSERT INTO audit_logs (
		process_id, comp_code, emp_id, source_app, source_function, reference_id,
		action, description, metadata, created_by, created_at, app_version, batch_id
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (comp_code, process_id) DO NOTHING`

// BatchStore ingests batches of audit entries.
type BatchStore struct {
	Base

	now func() time.Time
}

// NewBatchStore creates a BatchStore with the given shared base.
func NewBatchStore(base Base) *BatchStore {
	return &BatchStore{Base: base, now: time.Now}
}

// StoreBatch writes logs in submission order inside one transaction and stamps
// every entry with a fresh batch ID. Duplicate process IDs are skipped; any
// other failure rolls back the whole batch.
//
// TotalReceived in the result is len(logs) whether or not rows were new.
func (s *BatchStore) StoreBatch(ctx context.Context, sess Session, logs []models.LogInput) (*models.BatchResult, error) {
	switch n := len(logs); {
	case n == 0:
		return nil, models.ErrEmptyBatch
	case n > models.MaxBatchSize:
		return nil, fmt.Errorf("storing batch of %d entries: %w", n, models.ErrBatchTooLarge)
	}

	tenantID := sess.TenantID()
	now := s.now()
	batchID := NewBatchID(now)

	// Build every row's arguments before opening the transaction to keep it short.
	rows := make([][]any, len(logs))
	for i := range logs {
		if strings.TrimSpace(logs[i].CompCode) != tenantID {
			return nil, fmt.Errorf("entry %d: %w", i, ErrTenantMismatch)
		}

		args, err := entryArgs(&logs[i], tenantID, batchID, now)
		if err != nil {
			return nil, fmt.Errorf("preparing entry %d: %w", i, err)
		}

		rows[i] = args
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := sess.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &StorageError{Op: "beginning batch transaction", Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	inserted, err := execInserts(ctx, tx, rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &StorageError{Op: "committing batch", Err: err}
	}

	s.Log.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"batch_id":   batchID,
		"received":   len(logs),
		"inserted":   inserted,
		"duplicates": len(logs) - inserted,
	}).Debug("batch stored")

	return &models.BatchResult{BatchID: batchID, TotalReceived: len(logs), Inserted: inserted}, nil
}

// execInserts pipelines one INSERT per row. pgx runs queued statements in
// order, and the first failure aborts the transaction.
func execInserts(ctx context.Context, tx pgx.Tx, rows [][]any) (int, error) {
	b := &pgx.Batch{}
	for _, args := range rows {
		b.Queue(insertLogSQL, args...)
	}

	br := tx.SendBatch(ctx, b)

	inserted := 0
	for i := range rows {
		tag, err := br.Exec()
		if err != nil {
			br.Close() //nolint:errcheck // the insert error is the one worth reporting.

			return 0, &StorageError{Op: fmt.Sprintf("inserting entry %d", i), Err: err}
		}

		inserted += int(tag.RowsAffected())
	}

	if err := br.Close(); err != nil {
		return 0, &StorageError{Op: "closing insert batch", Err: err}
	}

	return inserted, nil
}

// entryArgs applies defaults and returns the insert arguments for one entry.
// Metadata is passed through as the caller's raw bytes.
func entryArgs(in *models.LogInput, tenantID, batchID string, now time.Time) ([]any, error) {
	processID := in.ProcessID
	if processID == "" {
		processID = uuid.NewString()
	}

	createdAt := now
	if in.CreatedAt != nil {
		createdAt = *in.CreatedAt
	}

	createdBy := in.CreatedBy
	if createdBy == "" {
		createdBy = models.DefaultCreatedBy
	}

	metadata := []byte("{}")
	if models.HasMetadata(in.Metadata) {
		if err := models.ValidateMetadata(in.Metadata); err != nil {
			return nil, err
		}
		metadata = in.Metadata
	}

	return []any{
		processID,
		tenantID,
		nullable(in.EmpID),
		in.SourceApp,
		nullable(in.SourceFunction),
		nullable(in.ReferenceID),
		in.Action,
		nullable(in.Description),
		metadata,
		createdBy,
		createdAt,
		nullable(in.AppVersion),
		batchID,
	}, nil
}

// nullable maps an empty optional string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
