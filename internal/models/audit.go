// Package models defines data types for audit log ingestion and retrieval.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Batch and field limits. Lengths are in bytes and mirror the column sizes in
// the audit_logs migration.
const (
	MaxBatchSize = 1000

	MaxProcessIDLen      = 100
	MaxCompCodeLen       = 50
	MaxEmpIDLen          = 50
	MaxSourceAppLen      = 100
	MaxSourceFunctionLen = 100
	MaxReferenceIDLen    = 100
	MaxActionLen         = 100
	MaxDescriptionLen    = 5000
	MaxCreatedByLen      = 100
	MaxAppVersionLen     = 50
	MaxMetadataBytes     = 65536
)

// DefaultCreatedBy is stamped on entries submitted without a created_by.
const DefaultCreatedBy = "SYSTEM"

// AuditLogEntry is one persisted audit event.
type AuditLogEntry struct {
	ID             int64           `json:"id"`
	ProcessID      string          `json:"process_id"`
	CompCode       string          `json:"comp_code"`
	EmpID          *string         `json:"emp_id"`
	SourceApp      string          `json:"source_app"`
	SourceFunction *string         `json:"source_function"`
	ReferenceID    *string         `json:"reference_id"`
	Action         string          `json:"action"`
	Description    *string         `json:"description"`
	Metadata       json.RawMessage `json:"metadata"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	AppVersion     *string         `json:"app_version"`
	BatchID        string          `json:"batch_id"`
}

// LogInput is one event as submitted by a client. Empty optional strings are
// stored as NULL. batch_id is never accepted from callers.
type LogInput struct {
	ProcessID      string          `json:"process_id,omitempty"`
	CompCode       string          `json:"comp_code"`
	EmpID          string          `json:"emp_id,omitempty"`
	SourceApp      string          `json:"source_app"`
	SourceFunction string          `json:"source_function,omitempty"`
	ReferenceID    string          `json:"reference_id,omitempty"`
	Action         string          `json:"action"`
	Description    string          `json:"description,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedBy      string          `json:"created_by,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	AppVersion     string          `json:"app_version,omitempty"`
}

// Validate checks required fields and length limits, reporting every problem
// under the given field prefix (e.g. "logs[3]").
func (in *LogInput) Validate(prefix string, verr *ValidationError) {
	required := func(name, v string, maxLen int) {
		switch {
		case strings.TrimSpace(v) == "":
			verr.Add(prefix+"."+name, fmt.Errorf("%s is required", name))
		case len(v) > maxLen:
			verr.Add(prefix+"."+name, ErrFieldTooLong(name, maxLen))
		}
	}
	optional := func(name, v string, maxLen int) {
		if len(v) > maxLen {
			verr.Add(prefix+"."+name, ErrFieldTooLong(name, maxLen))
		}
	}

	required("comp_code", in.CompCode, MaxCompCodeLen)
	required("source_app", in.SourceApp, MaxSourceAppLen)
	required("action", in.Action, MaxActionLen)

	optional("process_id", in.ProcessID, MaxProcessIDLen)
	optional("emp_id", in.EmpID, MaxEmpIDLen)
	optional("source_function", in.SourceFunction, MaxSourceFunctionLen)
	optional("reference_id", in.ReferenceID, MaxReferenceIDLen)
	optional("description", in.Description, MaxDescriptionLen)
	optional("created_by", in.CreatedBy, MaxCreatedByLen)
	optional("app_version", in.AppVersion, MaxAppVersionLen)

	if HasMetadata(in.Metadata) {
		if err := ValidateMetadata(in.Metadata); err != nil {
			verr.Add(prefix+".metadata", err)
		}
	}
}

// HasMetadata reports whether raw holds a document. Absent and JSON null
// both mean "no metadata".
func HasMetadata(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)

	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

// ValidateMetadata checks that raw is a single JSON object within
// MaxMetadataBytes. The document is never decoded, so numbers keep their
// exact textual form.
func ValidateMetadata(raw json.RawMessage) error {
	if len(raw) > MaxMetadataBytes {
		return ErrFieldTooLong("metadata", MaxMetadataBytes)
	}

	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] != '{' || !json.Valid(t) {
		return ErrMetadataNotObject
	}

	return nil
}

// BatchRequest is the payload for POST /audit/logs/batch.
type BatchRequest struct {
	Logs []LogInput `json:"logs"`
}

// TenantID returns the single comp_code shared by every entry. It is used to
// authorize the request before the batch is fully validated.
func (r *BatchRequest) TenantID() (string, error) {
	var tenant string

	for _, in := range r.Logs {
		cc := strings.TrimSpace(in.CompCode)
		if cc == "" {
			return "", ErrMissingTenant
		}

		if tenant == "" {
			tenant = cc
		} else if cc != tenant {
			return "", ErrMixedTenants
		}
	}

	if tenant == "" {
		return "", ErrMissingTenant
	}

	return tenant, nil
}

// Validate checks the batch size bound first, then every entry.
func (r *BatchRequest) Validate() error {
	verr := &ValidationError{}

	switch {
	case len(r.Logs) == 0:
		verr.Add("logs", ErrEmptyBatch)
		return verr
	case len(r.Logs) > MaxBatchSize:
		verr.Add("logs", ErrBatchTooLarge)
		return verr
	}

	for i := range r.Logs {
		r.Logs[i].Validate("logs["+strconv.Itoa(i)+"]", verr)
	}

	if _, err := r.TenantID(); err != nil && len(verr.Fields) == 0 {
		verr.Add("logs", err)
	}

	return verr.OrNil()
}

// BatchResult is returned after a batch has been committed.
// TotalReceived counts submitted entries, including duplicates that were
// skipped. Inserted is the number of new rows; it is kept for logs and
// metrics only and never sent to callers.
type BatchResult struct {
	BatchID       string `json:"batchId"`
	TotalReceived int    `json:"totalReceived"`
	Inserted      int    `json:"-"`
}
