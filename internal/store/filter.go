package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/persistorai/auditlog/internal/models"
)

// Shape selects which predicate slots of a LogFilter a query honours.
type Shape string

// Supported query shapes.
const (
	ShapeByEmployee    Shape = "by_employee"
	ShapeByApplication Shape = "by_application"
	ShapeSearch        Shape = "search"
)

// Errors returned when a filter does not satisfy its shape.
var (
	ErrFilterMissingTenant   = errors.New("filter requires comp_code")
	ErrFilterMissingEmployee = errors.New("filter requires emp_id")
	ErrFilterMissingApp      = errors.New("filter requires source_app")
	ErrUnknownShape          = errors.New("unknown query shape")
)

// predicates accumulates AND-ed conditions with positional placeholders.
type predicates struct {
	conds []string
	args  []any
}

// add appends arg and a condition whose %d verb becomes its placeholder index.
func (p *predicates) add(cond string, arg any) {
	p.args = append(p.args, arg)
	p.conds = append(p.conds, fmt.Sprintf(cond, len(p.args)))
}

func (p *predicates) eq(column, value string) {
	if value == "" {
		return
	}

	p.add(column+" = $%d", value)
}

// timeRange adds an inclusive created_at range; either bound may be nil.
func (p *predicates) timeRange(from, to *time.Time) {
	if from != nil {
		p.add("created_at >= $%d", *from)
	}

	if to != nil {
		p.add("created_at <= $%d", *to)
	}
}

// contains matches rows whose metadata is a structural superset of doc. The
// document is bound as text so its numbers reach Postgres unchanged.
func (p *predicates) contains(doc json.RawMessage) error {
	if !models.HasMetadata(doc) {
		return nil
	}

	if err := models.ValidateMetadata(doc); err != nil {
		return fmt.Errorf("metadata filter: %w", err)
	}

	p.add("metadata @> $%d::jsonb", string(doc))

	return nil
}

func (p *predicates) where() string {
	if len(p.conds) == 0 {
		return ""
	}

	return "WHERE " + strings.Join(p.conds, " AND ")
}

// buildLogFilter turns a filter into a WHERE clause and its arguments for the
// given shape. The tenant predicate is always first and always present.
func buildLogFilter(shape Shape, f *models.LogFilter) (where string, args []any, err error) {
	if f.CompCode == "" {
		return "", nil, ErrFilterMissingTenant
	}

	var p predicates
	p.eq("comp_code", f.CompCode)

	switch shape {
	case ShapeByEmployee:
		if f.EmpID == "" {
			return "", nil, ErrFilterMissingEmployee
		}
		p.eq("emp_id", f.EmpID)
	case ShapeByApplication:
		if f.SourceApp == "" {
			return "", nil, ErrFilterMissingApp
		}
		p.eq("source_app", f.SourceApp)
		p.eq("source_function", f.SourceFunction)
	case ShapeSearch:
		p.eq("source_app", f.SourceApp)
		p.eq("source_function", f.SourceFunction)
		p.eq("reference_id", f.ReferenceID)
		p.eq("created_by", f.CreatedBy)
		p.eq("action", f.Action)
		p.eq("emp_id", f.EmpID)
		p.eq("batch_id", f.BatchID)
		if err := p.contains(f.Metadata); err != nil {
			return "", nil, err
		}
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownShape, shape)
	}

	p.timeRange(f.From, f.To)

	return p.where(), p.args, nil
}

// pageClause returns the ORDER BY / LIMIT / OFFSET tail. id breaks ties
// between equal timestamps so page boundaries are stable.
func pageClause(nextArg int) string {
	return " ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(nextArg) + " OFFSET $" + strconv.Itoa(nextArg+1)
}
