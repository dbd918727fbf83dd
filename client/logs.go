package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"
)

// ErrNoLogs is returned when SubmitBatch is called with an empty batch.
var ErrNoLogs = errors.New("auditlog: batch has no logs")

// ErrInvalidMetadata is returned when a metadata filter is not valid JSON.
var ErrInvalidMetadata = errors.New("auditlog: metadata filter is not valid JSON")

// LogService handles audit log ingestion and queries. Every read is scoped
// to compCode, which must be the tenant the client's API key belongs to.
type LogService struct {
	c *Client
}

// SubmitBatch stores logs atomically. Resubmitting entries with the same
// process_id is safe; duplicates are skipped by the server.
func (s *LogService) SubmitBatch(ctx context.Context, logs []LogInput) (*BatchResult, error) {
	if len(logs) == 0 {
		return nil, ErrNoLogs
	}
	var resp BatchResult
	if err := s.c.post(ctx, "/audit/logs/batch", BatchRequest{Logs: logs}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ByEmployee lists a tenant's entries for one employee.
func (s *LogService) ByEmployee(ctx context.Context, compCode, empID string, opts *ListOptions) (*Page, error) {
	params := url.Values{}
	params.Set("comp_code", compCode)
	if opts != nil {
		opts.encode(params)
	}
	return s.list(ctx, "/audit/logs/user/"+url.PathEscape(empID), params)
}

// ByApplication lists a tenant's entries for one source application.
func (s *LogService) ByApplication(ctx context.Context, compCode, sourceApp string, opts *AppListOptions) (*Page, error) {
	params := url.Values{}
	params.Set("comp_code", compCode)
	if opts != nil {
		opts.encode(params)
		setIf(params, "source_function", opts.SourceFunction)
	}
	return s.list(ctx, "/audit/logs/app/"+url.PathEscape(sourceApp), params)
}

// Search lists a tenant's entries matching every set option.
func (s *LogService) Search(ctx context.Context, compCode string, opts *SearchOptions) (*Page, error) {
	params := url.Values{}
	params.Set("comp_code", compCode)
	if opts != nil {
		opts.encode(params)
		setIf(params, "source_app", opts.SourceApp)
		setIf(params, "source_function", opts.SourceFunction)
		setIf(params, "reference_id", opts.ReferenceID)
		setIf(params, "created_by", opts.CreatedBy)
		setIf(params, "action", opts.Action)
		setIf(params, "emp_id", opts.EmpID)
		setIf(params, "batch_id", opts.BatchID)
		if len(opts.Metadata) > 0 {
			if !json.Valid(opts.Metadata) {
				return nil, ErrInvalidMetadata
			}
			params.Set("metadata", string(opts.Metadata))
		}
	}
	return s.list(ctx, "/audit/logs/search", params)
}

func (s *LogService) list(ctx context.Context, path string, params url.Values) (*Page, error) {
	var page Page
	if err := s.c.get(ctx, path, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (o *ListOptions) encode(params url.Values) {
	if o.From != nil {
		params.Set("from", o.From.Format(time.RFC3339))
	}
	if o.To != nil {
		params.Set("to", o.To.Format(time.RFC3339))
	}
	if o.Limit > 0 {
		params.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		params.Set("offset", strconv.Itoa(o.Offset))
	}
}

func setIf(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}
