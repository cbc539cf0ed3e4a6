package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/mfgops/ledger/internal/infrastructure/scheduler"
)

// AuditRunner runs one invariant audit pass
type AuditRunner interface {
	Run(ctx context.Context) (*ledger.AuditReport, error)
}

// AuditStatusSource reports the state of the scheduled audit
type AuditStatusSource interface {
	Status() scheduler.AuditStatus
}

// AuditHandler exposes the invariant audit on demand
type AuditHandler struct {
	BaseHandler
	runner AuditRunner
}

// NewAuditHandler creates an AuditHandler
func NewAuditHandler(runner AuditRunner) *AuditHandler {
	return &AuditHandler{runner: runner}
}

type auditResponse struct {
	*ledger.AuditReport
	Healthy bool `json:"healthy"`
}

// Run godoc
// GET /ledger/audit
//
// Violations are data, not an error: the call answers 200 either way.
func (h *AuditHandler) Run(c *gin.Context) {
	report, err := h.runner.Run(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, auditResponse{AuditReport: report, Healthy: report.Healthy()})
}

// Status godoc
// GET /ledger/audit/status
func (h *AuditHandler) Status(c *gin.Context) {
	src, ok := h.runner.(AuditStatusSource)
	if !ok {
		h.HandleError(c, shared.NewNotFoundError("audit schedule", "configuration"))
		return
	}
	h.Success(c, src.Status())
}
