package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditlog/internal/models"
)

type listFunc func(ctx context.Context, f models.LogFilter) (*models.Page, error)

// LogHandler serves the /audit/logs endpoints.
type LogHandler struct {
	svc    LogService
	log    *logrus.Logger
	errors errorResponder
}

// NewLogHandler creates a LogHandler. debugErrors exposes server-side error
// detail in responses.
func NewLogHandler(svc LogService, log *logrus.Logger, debugErrors bool) *LogHandler {
	return &LogHandler{svc: svc, log: log, errors: errorResponder{debug: debugErrors}}
}

// SubmitBatch handles POST /audit/logs/batch.
func (h *LogHandler) SubmitBatch(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindBodyWithJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	res, err := h.svc.SubmitBatch(c.Request.Context(), req)
	if err != nil {
		h.errors.respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// ByEmployee handles GET /audit/logs/user/:employeeId.
func (h *LogHandler) ByEmployee(c *gin.Context) {
	f, err := parseLogFilter(c, readParams{})
	if err != nil {
		h.errors.respond(c, err)
		return
	}

	f.EmpID = c.Param("employeeId")

	h.respondPage(c, f, h.svc.ListByEmployee)
}

// ByApplication handles GET /audit/logs/app/:sourceApp.
func (h *LogHandler) ByApplication(c *gin.Context) {
	f, err := parseLogFilter(c, readParams{sourceFunction: true})
	if err != nil {
		h.errors.respond(c, err)
		return
	}

	f.SourceApp = c.Param("sourceApp")

	h.respondPage(c, f, h.svc.ListByApplication)
}

// Search handles GET /audit/logs/search.
func (h *LogHandler) Search(c *gin.Context) {
	f, err := parseLogFilter(c, readParams{search: true})
	if err != nil {
		h.errors.respond(c, err)
		return
	}

	h.respondPage(c, f, h.svc.Search)
}

func (h *LogHandler) respondPage(c *gin.Context, f models.LogFilter, list listFunc) {
	page, err := list(c.Request.Context(), f)
	if err != nil {
		h.errors.respond(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
