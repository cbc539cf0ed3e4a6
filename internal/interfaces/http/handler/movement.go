package handler

import (
	"github.com/gin-gonic/gin"
	appledger "github.com/mfgops/ledger/internal/application/ledger"
)

// MovementHandler serves manual ledger entries
type MovementHandler struct {
	BaseHandler
	service *appledger.MovementService
}

// NewMovementHandler creates a MovementHandler
func NewMovementHandler(service *appledger.MovementService) *MovementHandler {
	return &MovementHandler{service: service}
}

// Create records a movement against a chosen batch.
// POST /ledger/movements
func (h *MovementHandler) Create(c *gin.Context) {
	var req appledger.CreateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	movement, err := h.service.CreateMovement(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, movement)
}

// List godoc
// GET /ledger/movements
func (h *MovementHandler) List(c *gin.Context) {
	var filter appledger.MovementListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	page, err := h.service.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get godoc
// GET /ledger/movements/:id
func (h *MovementHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	movement, err := h.service.GetMovement(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movement)
}

// Update changes a movement's quantity. Growing it is checked against
// the batch's remaining stock.
// PUT /ledger/movements/:id
func (h *MovementHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req appledger.UpdateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	movement, err := h.service.UpdateMovement(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movement)
}

// Delete removes a movement, returning its quantity to the batch.
// DELETE /ledger/movements/:id
func (h *MovementHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteMovement(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
