package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	appledger "github.com/mfgops/ledger/internal/application/ledger"
)

// IdempotencyKeyHeader lets clients retry an allocation without allocating twice.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// AllocationHandler serves FIFO allocation
type AllocationHandler struct {
	BaseHandler
	service *appledger.AllocationService
}

// NewAllocationHandler creates an AllocationHandler
func NewAllocationHandler(service *appledger.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: service}
}

// Allocate godoc
// POST /ledger/allocations
//
// Consumes qty of a material for a lot, oldest batches first. The whole
// request commits or nothing does; a shortage answers 422 with
// error.details.shortage.
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req appledger.AllocateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		h.BadRequest(c, "Idempotency-Key must be at most 128 characters")
		return
	}
	req.IdempotencyKey = key

	result, err := h.service.Allocate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
