package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appledger "github.com/mfgops/ledger/internal/application/ledger"
	"github.com/mfgops/ledger/internal/domain/ledger"
)

// CatalogHandler stands in for the external material catalog and the
// production lot registry.
type CatalogHandler struct {
	BaseHandler
	service *appledger.CatalogService
}

// NewCatalogHandler creates a CatalogHandler
func NewCatalogHandler(service *appledger.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterMaterial godoc
// POST /catalog/materials
func (h *CatalogHandler) RegisterMaterial(c *gin.Context) {
	var req appledger.RegisterMaterialRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.service.RegisterMaterial(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// GetMaterial resolves a material by UUID or by code.
// GET /catalog/materials/:ref
func (h *CatalogHandler) GetMaterial(c *gin.Context) {
	ref := c.Param("ref")
	key := ledger.KeyByCode(ref)
	if id, err := uuid.Parse(ref); err == nil {
		key = ledger.KeyByID(id)
	}
	material, err := h.service.GetMaterial(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, material)
}

// RegisterSupplier godoc
// POST /catalog/suppliers
func (h *CatalogHandler) RegisterSupplier(c *gin.Context) {
	var req appledger.RegisterSupplierRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.service.RegisterSupplier(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// OpenLot godoc
// POST /catalog/lots
func (h *CatalogHandler) OpenLot(c *gin.Context) {
	var req appledger.OpenLotRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.service.OpenLot(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// GetLot godoc
// GET /catalog/lots/:id
func (h *CatalogHandler) GetLot(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	entry, err := h.service.GetLot(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}
