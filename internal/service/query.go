package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/persistorai/auditlog/internal/models"
	"github.com/persistorai/auditlog/internal/store"
	"github.com/persistorai/auditlog/internal/tenancy"
)

type queryFunc func(ctx context.Context, sess store.Session, f models.LogFilter) (*models.Page, error)

// ListByEmployee returns one page of entries for f.EmpID in tenant f.CompCode.
func (s *AuditLogService) ListByEmployee(ctx context.Context, f models.LogFilter) (*models.Page, error) {
	if strings.TrimSpace(f.EmpID) == "" {
		return nil, requiredField("emp_id")
	}

	return s.list(ctx, f, s.queries.ByEmployee)
}

// ListByApplication returns one page of entries for f.SourceApp in tenant f.CompCode.
func (s *AuditLogService) ListByApplication(ctx context.Context, f models.LogFilter) (*models.Page, error) {
	if strings.TrimSpace(f.SourceApp) == "" {
		return nil, requiredField("source_app")
	}

	return s.list(ctx, f, s.queries.ByApplication)
}

// Search returns one page of entries matching every predicate set in f.
func (s *AuditLogService) Search(ctx context.Context, f models.LogFilter) (*models.Page, error) {
	return s.list(ctx, f, s.queries.Search)
}

func (s *AuditLogService) list(ctx context.Context, f models.LogFilter, query queryFunc) (*models.Page, error) {
	f.CompCode = strings.TrimSpace(f.CompCode)
	if f.CompCode == "" {
		return nil, models.ErrMissingTenant
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	var page *models.Page
	err := s.withSession(ctx, f.CompCode, func(ctx context.Context, sess tenancy.Session) error {
		var queryErr error
		page, queryErr = query(ctx, sess, f)

		return queryErr
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

func requiredField(name string) error {
	verr := &models.ValidationError{}
	verr.Add(name, fmt.Errorf("%s is required", name))

	return verr
}
