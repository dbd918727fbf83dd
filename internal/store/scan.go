package store

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/auditlog/internal/models"
)

// logColumns lists the columns selected for audit log queries.
const logColumns = `id, process_id, comp_code, emp_id, source_app, source_function,
	reference_id, action, description, metadata, created_by, created_at,
	app_version, batch_id`

// scanLog scans a single row into a models.AuditLogEntry.
func scanLog(scan func(dest ...any) error) (*models.AuditLogEntry, error) {
	var e models.AuditLogEntry
	var metadata []byte

	err := scan(
		&e.ID,
		&e.ProcessID,
		&e.CompCode,
		&e.EmpID,
		&e.SourceApp,
		&e.SourceFunction,
		&e.ReferenceID,
		&e.Action,
		&e.Description,
		&metadata,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.AppVersion,
		&e.BatchID,
	)
	if err != nil {
		return nil, err
	}

	e.Metadata = json.RawMessage("{}")
	if len(metadata) > 0 {
		e.Metadata = metadata
	}

	return &e, nil
}

// collectLogs scans all rows into an entry slice. The result is never nil.
func collectLogs(rows pgx.Rows) ([]models.AuditLogEntry, error) {
	defer rows.Close()

	entries := make([]models.AuditLogEntry, 0, 16)

	for rows.Next() {
		e, err := scanLog(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning audit log row: %w", err)
		}

		entries = append(entries, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit log rows: %w", err)
	}

	return entries, nil
}
