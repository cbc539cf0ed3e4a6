package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
)

// CatalogService is a thin shim over the external catalog collaborators.
// It lets a standalone deployment register the materials, suppliers and lots
// the ledger refers to.
type CatalogService struct {
	repos TransactionalRepositories
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(repos TransactionalRepositories) *CatalogService {
	return &CatalogService{repos: repos}
}

// RegisterMaterial adds a material to the catalog
func (s *CatalogService) RegisterMaterial(ctx context.Context, req RegisterMaterialRequest) (*CatalogEntryResponse, error) {
	m, err := ledger.NewMaterial(req.Code, req.Name, req.Unit)
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.MaterialRepo().FindByCode(ctx, m.Code); err == nil {
		return nil, shared.NewConflictError("material code already exists").WithDetail("code", m.Code)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if err := s.repos.MaterialRepo().Save(ctx, m); err != nil {
		return nil, err
	}
	return &CatalogEntryResponse{ID: m.ID, Code: m.Code, Name: m.Name, Unit: m.Unit}, nil
}

// GetMaterial resolves a material by ID or code
func (s *CatalogService) GetMaterial(ctx context.Context, key ledger.Key) (*ledger.MaterialRef, error) {
	ref, err := resolveMaterial(ctx, s.repos.MaterialRepo(), key)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// RegisterSupplier adds a supplier reference
func (s *CatalogService) RegisterSupplier(ctx context.Context, req RegisterSupplierRequest) (*CatalogEntryResponse, error) {
	sup, err := ledger.NewSupplier(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.SupplierRepo().FindByCode(ctx, sup.Code); err == nil {
		return nil, shared.NewConflictError("supplier code already exists").WithDetail("code", sup.Code)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if err := s.repos.SupplierRepo().Save(ctx, sup); err != nil {
		return nil, err
	}
	return &CatalogEntryResponse{ID: sup.ID, Code: sup.Code, Name: sup.Name}, nil
}

// OpenLot registers a production lot that may consume material
func (s *CatalogService) OpenLot(ctx context.Context, req OpenLotRequest) (*CatalogEntryResponse, error) {
	lot, err := ledger.NewLot(req.LotNo)
	if err != nil {
		return nil, err
	}
	if err := s.repos.LotRepo().Save(ctx, lot); err != nil {
		return nil, err
	}
	return &CatalogEntryResponse{ID: lot.ID, Code: lot.LotNo}, nil
}

// GetLot finds a production lot
func (s *CatalogService) GetLot(ctx context.Context, id uuid.UUID) (*CatalogEntryResponse, error) {
	lot, err := s.repos.LotRepo().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("lot", id.String())
		}
		return nil, err
	}
	return &CatalogEntryResponse{ID: lot.ID, Code: lot.LotNo}, nil
}
