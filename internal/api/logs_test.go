package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/persistorai/auditlog/internal/api"
	"github.com/persistorai/auditlog/internal/httputil"
	"github.com/persistorai/auditlog/internal/models"
	"github.com/persistorai/auditlog/internal/store"
	"github.com/persistorai/auditlog/internal/tenancy"
)

func newLogRouter(svc *mockLogService, debug bool) http.Handler {
	h := api.NewLogHandler(svc, testLogger(), debug)
	r := newTestRouter()
	r.POST("/audit/logs/batch", h.SubmitBatch)
	r.GET("/audit/logs/user/:employeeId", h.ByEmployee)
	r.GET("/audit/logs/app/:sourceApp", h.ByApplication)
	r.GET("/audit/logs/search", h.Search)
	return r
}

func decodeError(t *testing.T, body []byte) httputil.ErrorResponse {
	t.Helper()

	var resp httputil.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return resp
}

func TestSubmitBatch_Created(t *testing.T) {
	svc := &mockLogService{submitFn: func(_ context.Context, req models.BatchRequest) (*models.BatchResult, error) {
		return &models.BatchResult{BatchID: "BATCH_20240101_ABCDEF12", TotalReceived: len(req.Logs), Inserted: 1}, nil
	}}

	w := doRequest(newLogRouter(svc, false), http.MethodPost, "/audit/logs/batch",
		`{"logs":[{"comp_code":"COMP001","source_app":"HR","action":"LOGIN"},{"comp_code":"COMP001","source_app":"HR","action":"LOGOUT"}]}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["batchId"] != "BATCH_20240101_ABCDEF12" {
		t.Errorf("batchId = %v", body["batchId"])
	}
	if body["totalReceived"] != float64(2) {
		t.Errorf("totalReceived = %v, want 2", body["totalReceived"])
	}
	if _, leaked := body["Inserted"]; leaked {
		t.Error("inserted count must not be part of the response")
	}
}

func TestSubmitBatch_ValidationDetails(t *testing.T) {
	svc := &mockLogService{submitFn: func(_ context.Context, req models.BatchRequest) (*models.BatchResult, error) {
		return nil, req.Validate()
	}}

	w := doRequest(newLogRouter(svc, false), http.MethodPost, "/audit/logs/batch",
		`{"logs":[{"comp_code":"COMP001","action":"LOGIN"}]}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	resp := decodeError(t, w.Body.Bytes())
	if resp.Code != api.ErrCodeValidationError {
		t.Errorf("code = %q, want %q", resp.Code, api.ErrCodeValidationError)
	}
	if len(resp.Details) != 1 || resp.Details[0].Field != "logs[0].source_app" {
		t.Errorf("details = %+v, want logs[0].source_app", resp.Details)
	}
}

func TestSubmitBatch_MalformedBody(t *testing.T) {
	svc := &mockLogService{}

	w := doRequest(newLogRouter(svc, false), http.MethodPost, "/audit/logs/batch", `{"logs":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(svc.called()) != 0 {
		t.Errorf("service called: %v", svc.called())
	}
}

func TestErrorMapping(t *testing.T) {
	storageErr := &store.StorageError{Op: "inserting entry 0", Err: errors.New("disk on fire")}

	tests := []struct {
		name       string
		err        error
		debug      bool
		wantCode   int
		wantErr    string
		wantDetail bool
	}{
		{"missing tenant", models.ErrMissingTenant, false, http.StatusBadRequest, api.ErrCodeMissingTenant, false},
		{"pool exhausted", tenancy.ErrPoolExhausted, false, http.StatusServiceUnavailable, api.ErrCodeUnavailable, false},
		{"setup failed", &tenancy.SetupError{TenantID: "COMP001", Err: errors.New("bind")}, false, http.StatusInternalServerError, api.ErrCodeTenantSetupFailed, false},
		{"storage hidden", storageErr, false, http.StatusInternalServerError, api.ErrCodeInternalError, false},
		{"storage debug", storageErr, true, http.StatusInternalServerError, api.ErrCodeInternalError, true},
		{"deadline", &store.StorageError{Op: "querying", Err: context.DeadlineExceeded}, false, http.StatusGatewayTimeout, api.ErrCodeRequestTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockLogService{listFn: func(context.Context, models.LogFilter) (*models.Page, error) {
				return nil, tt.err
			}}

			w := doRequest(newLogRouter(svc, tt.debug), http.MethodGet, "/audit/logs/search", "")
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}

			resp := decodeError(t, w.Body.Bytes())
			if resp.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantErr)
			}

			hasDetail := strings.Contains(resp.Message, "disk on fire")
			if hasDetail != tt.wantDetail {
				t.Errorf("message = %q, detail exposed = %v, want %v", resp.Message, hasDetail, tt.wantDetail)
			}
		})
	}
}

func TestByEmployee_ParsesFilter(t *testing.T) {
	var got models.LogFilter
	svc := &mockLogService{listFn: capturingList(&got)}

	w := doRequest(newLogRouter(svc, false), http.MethodGet,
		"/audit/logs/user/E42?from=2024-01-01T00:00:00Z&to=2024-02-01T00:00:00Z&limit=10&offset=20&action=ignored", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if got.CompCode != testTenantID || got.EmpID != "E42" {
		t.Errorf("filter = %+v", got)
	}
	if got.Limit != 10 || got.Offset != 20 {
		t.Errorf("limit/offset = %d/%d, want 10/20", got.Limit, got.Offset)
	}
	if got.From == nil || !got.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", got.From)
	}
	if got.Action != "" {
		t.Errorf("by-employee must ignore search params, got action %q", got.Action)
	}

	var page map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if data, ok := page["data"].([]any); !ok || len(data) != 0 {
		t.Errorf("data = %v, want empty array", page["data"])
	}
	if page["totalCount"] != float64(0) {
		t.Errorf("totalCount = %v, want 0", page["totalCount"])
	}
}

func TestByApplication_SourceFunction(t *testing.T) {
	var got models.LogFilter
	svc := &mockLogService{listFn: capturingList(&got)}

	w := doRequest(newLogRouter(svc, false), http.MethodGet, "/audit/logs/app/HR?source_function=approve", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got.SourceApp != "HR" || got.SourceFunction != "approve" {
		t.Errorf("filter = %+v", got)
	}
	if got.Limit != models.DefaultPageLimit {
		t.Errorf("limit = %d, want default %d", got.Limit, models.DefaultPageLimit)
	}
}

func TestSearch_AllParams(t *testing.T) {
	var got models.LogFilter
	svc := &mockLogService{listFn: capturingList(&got)}

	w := doRequest(newLogRouter(svc, false), http.MethodGet,
		`/audit/logs/search?source_app=HR&source_function=f&reference_id=R1&created_by=bob&action=A&emp_id=E1&batch_id=B1&metadata=%7B%22device%22%3A%22Android%22%7D`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	want := models.LogFilter{
		CompCode: testTenantID, SourceApp: "HR", SourceFunction: "f", ReferenceID: "R1",
		CreatedBy: "bob", Action: "A", EmpID: "E1", BatchID: "B1", Limit: models.DefaultPageLimit,
	}
	if string(got.Metadata) != `{"device":"Android"}` {
		t.Errorf("metadata = %s", got.Metadata)
	}
	got.Metadata = nil
	if got.From != nil || got.To != nil {
		t.Errorf("unexpected time bounds")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filter = %+v, want %+v", got, want)
	}
}

func TestReadParams_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"limit zero", "limit=0", "limit"},
		{"limit too large", "limit=201", "limit"},
		{"limit not a number", "limit=ten", "limit"},
		{"negative offset", "offset=-1", "offset"},
		{"offset too large", "offset=100001", "offset"},
		{"bad from", "from=yesterday", "from"},
		{"bad to", "to=2024-13-01", "to"},
		{"metadata not JSON", "metadata=nope", "metadata"},
		{"metadata not object", "metadata=%5B1%2C2%5D", "metadata"},
		{"metadata null", "metadata=null", "metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockLogService{}

			w := doRequest(newLogRouter(svc, false), http.MethodGet, "/audit/logs/search?"+tt.query, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}

			resp := decodeError(t, w.Body.Bytes())
			if len(resp.Details) == 0 || resp.Details[0].Field != tt.field {
				t.Errorf("details = %+v, want field %q", resp.Details, tt.field)
			}
			if len(svc.called()) != 0 {
				t.Errorf("service called: %v", svc.called())
			}
		})
	}
}

func TestSearch_MetadataLargeIntegerKept(t *testing.T) {
	var got models.LogFilter
	svc := &mockLogService{listFn: capturingList(&got)}

	w := doRequest(newLogRouter(svc, false), http.MethodGet,
		"/audit/logs/search?metadata=%7B%22txn%22%3A9007199254740993%7D", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if string(got.Metadata) != `{"txn":9007199254740993}` {
		t.Errorf("metadata = %s", got.Metadata)
	}
}

func TestSearch_TimeBounds(t *testing.T) {
	want := time.Date(2024, 1, 15, 8, 0, 0, 500_000_000, time.UTC)

	tests := []struct {
		name  string
		query string
	}{
		{"utc with fraction", "from=2024-01-15T08:00:00.5Z"},
		{"encoded offset", "from=2024-01-15T10:00:00.5%2B02:00"},
		{"unencoded offset", "from=2024-01-15T10:00:00.5+02:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got models.LogFilter
			svc := &mockLogService{listFn: capturingList(&got)}

			w := doRequest(newLogRouter(svc, false), http.MethodGet, "/audit/logs/search?"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			if got.From == nil || !got.From.Equal(want) {
				t.Errorf("from = %v, want %v", got.From, want)
			}
		})
	}
}

func TestSearch_BadTimeMentionsEncoding(t *testing.T) {
	w := doRequest(newLogRouter(&mockLogService{}, false), http.MethodGet, "/audit/logs/search?to=soon", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	resp := decodeError(t, w.Body.Bytes())
	if len(resp.Details) != 1 || !strings.Contains(resp.Details[0].Message, "%2B") {
		t.Errorf("details = %+v", resp.Details)
	}
}
