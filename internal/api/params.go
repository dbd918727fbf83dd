package api

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/auditlog/internal/httputil"
	"github.com/persistorai/auditlog/internal/models"
)

// readParams selects which optional query parameters a read route accepts.
type readParams struct {
	sourceFunction bool
	search         bool
}

// parseLogFilter builds a LogFilter from the authenticated tenant and the
// query string. Every malformed parameter is reported, not just the first.
func parseLogFilter(c *gin.Context, p readParams) (models.LogFilter, error) {
	q := c.Request.URL.Query()
	verr := &models.ValidationError{}

	f := models.LogFilter{CompCode: c.GetString(httputil.TenantIDKey)}

	f.From = parseTime(q, "from", verr)
	f.To = parseTime(q, "to", verr)
	f.Limit = parseBoundedInt(q, "limit", 1, models.MaxPageLimit, models.DefaultPageLimit, verr)
	f.Offset = parseBoundedInt(q, "offset", 0, models.MaxPageOffset, 0, verr)

	if p.sourceFunction || p.search {
		f.SourceFunction = strings.TrimSpace(q.Get("source_function"))
	}

	if p.search {
		f.SourceApp = strings.TrimSpace(q.Get("source_app"))
		f.ReferenceID = strings.TrimSpace(q.Get("reference_id"))
		f.CreatedBy = strings.TrimSpace(q.Get("created_by"))
		f.Action = strings.TrimSpace(q.Get("action"))
		f.EmpID = strings.TrimSpace(q.Get("emp_id"))
		f.BatchID = strings.TrimSpace(q.Get("batch_id"))
		f.Metadata = parseMetadata(q, verr)
	}

	return f, verr.OrNil()
}

// parseTime reads an RFC3339 timestamp. An unencoded "+" in the offset
// arrives as a space after query decoding and is put back.
func parseTime(q url.Values, name string, verr *models.ValidationError) *time.Time {
	raw := q.Get(name)
	if raw == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil && strings.Contains(raw, " ") {
		t, err = time.Parse(time.RFC3339Nano, strings.ReplaceAll(raw, " ", "+"))
	}

	if err != nil {
		verr.Add(name, fmt.Errorf("%s must be an RFC3339 timestamp (percent-encode a '+' offset as %%2B)", name))

		return nil
	}

	return &t
}

func parseBoundedInt(q url.Values, name string, lo, hi, fallback int, verr *models.ValidationError) int {
	raw := q.Get(name)
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		verr.Add(name, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi))

		return fallback
	}

	return v
}

// parseMetadata reads the metadata containment document, which must be a
// JSON object. It is kept as raw bytes so numbers are matched exactly.
func parseMetadata(q url.Values, verr *models.ValidationError) json.RawMessage {
	raw := q.Get("metadata")
	if raw == "" {
		return nil
	}

	doc := json.RawMessage(raw)
	if err := models.ValidateMetadata(doc); err != nil {
		verr.Add("metadata", err)

		return nil
	}

	return doc
}
