package router

import (
	"github.com/mfgops/ledger/internal/interfaces/http/handler"
)

// Handlers bundles every HTTP handler of the ledger API
type Handlers struct {
	Allocation *handler.AllocationHandler
	Movement   *handler.MovementHandler
	Batch      *handler.BatchHandler
	Report     *handler.ReportHandler
	Audit      *handler.AuditHandler
	Catalog    *handler.CatalogHandler
	Health     *handler.HealthHandler
}

// LedgerGroup returns the /ledger routes: allocations, movements, batches,
// reports and the invariant audit.
func LedgerGroup(h Handlers) *DomainGroup {
	ledger := NewDomainGroup("/ledger")

	ledger.POST("/allocations", h.Allocation.Allocate)
	ledger.Collection("/movements", h.Movement)
	ledger.Collection("/batches", h.Batch)

	ledger.Group("/reports").
		GET("/on-hand", h.Report.OnHand).
		GET("/on-hand/:id", h.Report.MaterialOnHand).
		GET("/batch-ledger", h.Report.BatchLedger)

	ledger.Group("/audit").
		GET("", h.Audit.Run).
		GET("/status", h.Audit.Status)
	return ledger
}

// CatalogGroup returns the /catalog routes standing in for the external
// material catalog and lot registry.
func CatalogGroup(h Handlers) *DomainGroup {
	return NewDomainGroup("/catalog").
		POST("/materials", h.Catalog.RegisterMaterial).
		GET("/materials/:ref", h.Catalog.GetMaterial).
		POST("/suppliers", h.Catalog.RegisterSupplier).
		POST("/lots", h.Catalog.OpenLot).
		GET("/lots/:id", h.Catalog.GetLot)
}

// HealthGroup returns GET /health
func HealthGroup(h Handlers) *DomainGroup {
	return NewDomainGroup("").GET("/health", h.Health.Check)
}
