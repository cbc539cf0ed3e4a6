package persistence

import (
	"context"
	"strings"

	"github.com/mfgops/ledger/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormReportRepository serves the reporting views. Every figure is an
// aggregate over committed movements.
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// batchUsage is per-batch usage, joined as "u" onto material_batches.
func (r *GormReportRepository) batchUsage() *gorm.DB {
	return r.db.Table("material_movements").
		Select("batch_id, SUM(quantity) AS used").
		Group("batch_id")
}

// OnHand reports on-hand quantity per material. Materials without stock are
// listed with zero.
func (r *GormReportRepository) OnHand(ctx context.Context, filter ledger.OnHandFilter) ([]ledger.OnHandRow, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.MaterialID != nil {
			q = q.Where("mt.id = ?", *filter.MaterialID)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(mt.code) LIKE ? OR LOWER(mt.name) LIKE ?", like, like)
		}
		return q
	}

	var total int64
	if err := scope(r.db.WithContext(ctx).Table("materials AS mt")).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []ledger.OnHandRow
	err := scope(r.db.WithContext(ctx).Table("materials AS mt")).
		Select("mt.id AS material_id, mt.code AS material_code, mt.name AS material_name, mt.unit AS unit, " +
			"COALESCE(SUM(b.qty_received - COALESCE(u.used, 0)), 0) AS total_on_hand").
		Joins("LEFT JOIN material_batches AS b ON b.material_id = mt.id").
		Joins("LEFT JOIN (?) AS u ON u.batch_id = b.id", r.batchUsage()).
		Group("mt.id, mt.code, mt.name, mt.unit").
		Order("mt.code ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	for i := range rows {
		rows[i].TotalOnHand = rows[i].TotalOnHand.Round(quantityScale)
	}
	return rows, total, nil
}

// BatchLedger lists batches in FIFO order with received, used and available
func (r *GormReportRepository) BatchLedger(ctx context.Context, filter ledger.BatchFilter) ([]ledger.BatchLedgerRow, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.MaterialID != nil {
			q = q.Where("material_batches.material_id = ?", *filter.MaterialID)
		}
		if filter.SupplierID != nil {
			q = q.Where("material_batches.supplier_id = ?", *filter.SupplierID)
		}
		if filter.BatchNo != "" {
			q = q.Where("material_batches.batch_no = ?", filter.BatchNo)
		}
		if filter.Location != "" {
			q = q.Where("material_batches.location = ?", filter.Location)
		}
		if filter.ReceivedFrom != nil {
			q = q.Where("material_batches.received_at >= ?", *filter.ReceivedFrom)
		}
		if filter.ReceivedTo != nil {
			q = q.Where("material_batches.received_at < ?", filter.ReceivedTo.AddDate(0, 0, 1))
		}
		return q
	}

	var total int64
	if err := scope(r.db.WithContext(ctx).Table("material_batches")).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []ledger.BatchLedgerRow
	err := scope(r.db.WithContext(ctx).Table("material_batches")).
		Select("material_batches.id AS batch_id, material_batches.batch_no, material_batches.material_id, " +
			"mt.code AS material_code, COALESCE(s.code, '') AS supplier_code, material_batches.received_at, " +
			"material_batches.qty_received, COALESCE(u.used, 0) AS qty_used, " +
			"material_batches.qty_received - COALESCE(u.used, 0) AS qty_available, material_batches.location").
		Joins("JOIN materials AS mt ON mt.id = material_batches.material_id").
		Joins("LEFT JOIN suppliers AS s ON s.id = material_batches.supplier_id").
		Joins("LEFT JOIN (?) AS u ON u.batch_id = material_batches.id", r.batchUsage()).
		Order(fifoOrder).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	for i := range rows {
		rows[i].QtyReceived = rows[i].QtyReceived.Round(quantityScale)
		rows[i].QtyUsed = rows[i].QtyUsed.Round(quantityScale)
		rows[i].QtyAvailable = rows[i].QtyAvailable.Round(quantityScale)
	}
	return rows, total, nil
}

// Violations returns batches whose usage is negative or exceeds qty_received
func (r *GormReportRepository) Violations(ctx context.Context) ([]ledger.InvariantViolation, int64, error) {
	var checked int64
	if err := r.db.WithContext(ctx).Table("material_batches").Count(&checked).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var rows []ledger.InvariantViolation
	err := r.db.WithContext(ctx).
		Table("material_batches AS b").
		Select("b.id AS batch_id, b.batch_no, b.material_id, b.qty_received, COALESCE(u.used, 0) AS qty_used").
		Joins("LEFT JOIN (?) AS u ON u.batch_id = b.id", r.batchUsage()).
		Where("COALESCE(u.used, 0) < 0 OR COALESCE(u.used, 0) > b.qty_received").
		Order("b.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return rows, checked, nil
}

var _ ledger.ReportRepository = (*GormReportRepository)(nil)
