package handler

import (
	"github.com/gin-gonic/gin"
	appledger "github.com/mfgops/ledger/internal/application/ledger"
)

// BatchHandler serves the batch registry
type BatchHandler struct {
	BaseHandler
	batches *appledger.BatchService
	reports *appledger.ReportService
}

// NewBatchHandler creates a BatchHandler. Listing goes through the report
// service so list rows carry the same derived balances as the batch ledger.
func NewBatchHandler(batches *appledger.BatchService, reports *appledger.ReportService) *BatchHandler {
	return &BatchHandler{batches: batches, reports: reports}
}

// Create godoc
// POST /ledger/batches
func (h *BatchHandler) Create(c *gin.Context) {
	var req appledger.CreateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	batch, err := h.batches.CreateBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, batch)
}

// List godoc
// GET /ledger/batches
func (h *BatchHandler) List(c *gin.Context) {
	var q appledger.BatchLedgerQuery
	if !h.BindQuery(c, &q) {
		return
	}
	page, err := h.reports.BatchLedger(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get godoc
// GET /ledger/batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	batch, err := h.batches.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Update godoc
// PUT /ledger/batches/:id
func (h *BatchHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req appledger.UpdateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	batch, err := h.batches.UpdateBatch(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Delete godoc
// DELETE /ledger/batches/:id
func (h *BatchHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.batches.DeleteBatch(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
