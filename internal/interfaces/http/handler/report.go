package handler

import (
	"github.com/gin-gonic/gin"
	appledger "github.com/mfgops/ledger/internal/application/ledger"
)

// ReportHandler serves the on-hand and batch ledger reports
type ReportHandler struct {
	BaseHandler
	service *appledger.ReportService
}

// NewReportHandler creates a ReportHandler
func NewReportHandler(service *appledger.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// OnHand lists total available stock per material, zero-stock materials included.
// GET /ledger/reports/on-hand
func (h *ReportHandler) OnHand(c *gin.Context) {
	var q appledger.OnHandQuery
	if !h.BindQuery(c, &q) {
		return
	}
	page, err := h.service.OnHand(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// MaterialOnHand returns the on-hand row of a single material.
// GET /ledger/reports/on-hand/:id
func (h *ReportHandler) MaterialOnHand(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	row, err := h.service.MaterialOnHand(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, row)
}

// BatchLedger lists batches with received, used and available quantities.
// GET /ledger/reports/batch-ledger
func (h *ReportHandler) BatchLedger(c *gin.Context) {
	var q appledger.BatchLedgerQuery
	if !h.BindQuery(c, &q) {
		return
	}
	page, err := h.service.BatchLedger(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
