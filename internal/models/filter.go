package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Pagination bounds for log queries.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
	MaxPageOffset    = 100000

	maxBatchIDLen = 50
)

// LogFilter is the fixed set of optional predicates a log query may use.
// Each query shape reads only the slots it supports.
type LogFilter struct {
	CompCode       string
	EmpID          string
	SourceApp      string
	SourceFunction string
	ReferenceID    string
	CreatedBy      string
	Action         string
	BatchID        string
	Metadata       json.RawMessage
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// PageLimit returns Limit, falling back to DefaultPageLimit when unset.
func (f *LogFilter) PageLimit() int {
	if f.Limit <= 0 {
		return DefaultPageLimit
	}

	return f.Limit
}

// Page is one page of query results plus the total match count.
type Page struct {
	Data       []AuditLogEntry `json:"data"`
	TotalCount int64           `json:"totalCount"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// Validate checks pagination bounds and predicate lengths. A zero Limit
// means DefaultPageLimit.
func (f *LogFilter) Validate() error {
	verr := &ValidationError{}

	if strings.TrimSpace(f.CompCode) == "" {
		verr.Add("comp_code", ErrMissingTenant)
	}

	if f.Limit < 0 || f.Limit > MaxPageLimit {
		verr.Add("limit", fmt.Errorf("limit must be between 1 and %d", MaxPageLimit))
	}

	if f.Offset < 0 || f.Offset > MaxPageOffset {
		verr.Add("offset", fmt.Errorf("offset must be between 0 and %d", MaxPageOffset))
	}

	for _, c := range []struct {
		name, value string
		maxLen      int
	}{
		{"comp_code", f.CompCode, MaxCompCodeLen},
		{"emp_id", f.EmpID, MaxEmpIDLen},
		{"source_app", f.SourceApp, MaxSourceAppLen},
		{"source_function", f.SourceFunction, MaxSourceFunctionLen},
		{"reference_id", f.ReferenceID, MaxReferenceIDLen},
		{"created_by", f.CreatedBy, MaxCreatedByLen},
		{"action", f.Action, MaxActionLen},
		{"batch_id", f.BatchID, maxBatchIDLen},
	} {
		if len(c.value) > c.maxLen {
			verr.Add(c.name, ErrFieldTooLong(c.name, c.maxLen))
		}
	}

	return verr.OrNil()
}
