package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditlog/internal/metrics"
	"github.com/persistorai/auditlog/internal/models"
	"github.com/persistorai/auditlog/internal/tenancy"
)

// SubmitBatch validates req, then writes it atomically for the batch's tenant.
// Nothing touches the pool until the whole batch has passed validation.
func (s *AuditLogService) SubmitBatch(ctx context.Context, req models.BatchRequest) (*models.BatchResult, error) {
	if err := req.Validate(); err != nil {
		metrics.BatchesTotal.WithLabelValues("rejected").Inc()

		return nil, err
	}

	tenantID, err := req.TenantID()
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("rejected").Inc()

		return nil, err
	}

	metrics.BatchSize.Observe(float64(len(req.Logs)))

	var res *models.BatchResult
	err = s.withSession(ctx, tenantID, func(ctx context.Context, sess tenancy.Session) error {
		var storeErr error
		res, storeErr = s.batches.StoreBatch(ctx, sess, req.Logs)

		return storeErr
	})
	if err != nil {
		metrics.BatchesTotal.WithLabelValues(batchOutcome(err)).Inc()

		return nil, err
	}

	metrics.BatchesTotal.WithLabelValues("stored").Inc()
	metrics.EntriesTotal.WithLabelValues("inserted").Add(float64(res.Inserted))
	metrics.EntriesTotal.WithLabelValues("duplicate").Add(float64(res.TotalReceived - res.Inserted))

	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"batch_id":  res.BatchID,
		"received":  res.TotalReceived,
		"inserted":  res.Inserted,
	}).Info("audit.batch")

	return res, nil
}

func batchOutcome(err error) string {
	var setupErr *tenancy.SetupError

	switch {
	case errors.Is(err, tenancy.ErrPoolExhausted):
		return "unavailable"
	case errors.As(err, &setupErr):
		return "setup_failed"
	default:
		return "failed"
	}
}
