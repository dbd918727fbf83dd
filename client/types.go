package client

import (
	"encoding/json"
	"time"
)

// LogInput is one audit event submitted in a batch. Optional fields are
// omitted when empty.
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

// BatchRequest is the body of a batch submission.
type BatchRequest struct {
	Logs []LogInput `json:"logs"`
}

// BatchResult acknowledges a committed batch.
type BatchResult struct {
	BatchID       string `json:"batchId"`
	TotalReceived int    `json:"totalReceived"`
}

// LogEntry is a stored audit event.
type LogEntry struct {
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

// Page is one page of query results, newest first.
type Page struct {
	Data       []LogEntry `json:"data"`
	TotalCount int64      `json:"totalCount"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// HasMore reports whether entries exist beyond this page.
func (p *Page) HasMore() bool {
	return int64(p.Offset+len(p.Data)) < p.TotalCount
}

// ListOptions are the paging and time-range options shared by every read.
type ListOptions struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// AppListOptions narrows an application listing to one source function.
type AppListOptions struct {
	ListOptions
	SourceFunction string
}

// SearchOptions combines every supported predicate. Empty fields are ignored.
type SearchOptions struct {
	ListOptions
	SourceApp      string
	SourceFunction string
	ReferenceID    string
	CreatedBy      string
	Action         string
	EmpID          string
	BatchID        string
	// Metadata is a JSON object the entry's metadata must contain.
	Metadata json.RawMessage
}

// HealthResponse is returned by the liveness endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	SchemaVersion int     `json:"schema_version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadinessResponse is returned by the readiness endpoint.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
