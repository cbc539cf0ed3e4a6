package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
)

// ReportService serves the read-only reporting views. All figures come from
// aggregating committed movements.
type ReportService struct {
	repos   TransactionalRepositories
	reports ledger.ReportRepository
}

// NewReportService creates a new ReportService
func NewReportService(repos TransactionalRepositories, reports ledger.ReportRepository) *ReportService {
	return &ReportService{repos: repos, reports: reports}
}

// OnHand reports the on-hand quantity per material
func (s *ReportService) OnHand(ctx context.Context, q OnHandQuery) (*shared.Paginated[ledger.OnHandRow], error) {
	filter := ledger.OnHandFilter{
		Filter: shared.Filter{Page: q.Page, PageSize: q.PageSize, Search: strings.TrimSpace(q.Search)}.Normalize(),
	}
	key, err := queryKey("material_id", q.MaterialID, q.MaterialCode)
	if err != nil {
		return nil, err
	}
	if !key.IsZero() {
		ref, err := resolveMaterial(ctx, s.repos.MaterialRepo(), key)
		if err != nil {
			return nil, err
		}
		filter.MaterialID = &ref.ID
	}

	rows, total, err := s.reports.OnHand(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(rows, total, filter.Page, filter.PageSize)
	return &page, nil
}

// BatchLedger reports batches with their received, used and available quantities
func (s *ReportService) BatchLedger(ctx context.Context, q BatchLedgerQuery) (*shared.Paginated[ledger.BatchLedgerRow], error) {
	if q.ReceivedFrom != nil && q.ReceivedTo != nil && q.ReceivedTo.Before(*q.ReceivedFrom) {
		return nil, shared.NewInvalidArgumentError("received_to", "received_to must not be before received_from")
	}
	filter := ledger.BatchFilter{
		Filter:       shared.Filter{Page: q.Page, PageSize: q.PageSize}.Normalize(),
		BatchNo:      strings.TrimSpace(q.BatchNo),
		Location:     strings.TrimSpace(q.Location),
		ReceivedFrom: q.ReceivedFrom,
		ReceivedTo:   q.ReceivedTo,
	}

	materialKey, err := queryKey("material_id", q.MaterialID, q.MaterialCode)
	if err != nil {
		return nil, err
	}
	supplierKey, err := queryKey("supplier_id", q.SupplierID, q.SupplierCode)
	if err != nil {
		return nil, err
	}
	if !materialKey.IsZero() {
		ref, err := resolveMaterial(ctx, s.repos.MaterialRepo(), materialKey)
		if err != nil {
			return nil, err
		}
		filter.MaterialID = &ref.ID
	}
	if !supplierKey.IsZero() {
		sup, err := resolveSupplier(ctx, s.repos.SupplierRepo(), supplierKey)
		if err != nil {
			return nil, err
		}
		filter.SupplierID = &sup.ID
	}

	rows, total, err := s.reports.BatchLedger(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(rows, total, filter.Page, filter.PageSize)
	return &page, nil
}

// MaterialOnHand returns the on-hand quantity of one material
func (s *ReportService) MaterialOnHand(ctx context.Context, materialID uuid.UUID) (*ledger.OnHandRow, error) {
	page, err := s.OnHand(ctx, OnHandQuery{MaterialID: materialID.String(), Page: 1, PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, shared.NewNotFoundError("material", materialID.String())
	}
	return &page.Items[0], nil
}
