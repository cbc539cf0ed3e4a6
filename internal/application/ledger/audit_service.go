package ledger

import (
	"context"
	"time"

	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AuditService re-derives every batch balance from the ledger and reports
// batches whose usage left [0, qty_received]. A healthy ledger never
// produces a violation; any hit points at writes that bypassed the lock
// discipline.
type AuditService struct {
	reports ledger.ReportRepository
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
	now     func() time.Time
}

// NewAuditService creates a new AuditService
func NewAuditService(reports ledger.ReportRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{reports: reports, logger: logger, now: time.Now}
}

// SetLedgerMetrics sets the metrics recorder
func (s *AuditService) SetLedgerMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// Run performs one audit pass
func (s *AuditService) Run(ctx context.Context) (report *ledger.AuditReport, err error) {
	ctx, span := telemetry.StartLedgerSpan(ctx, "audit")
	defer func() { telemetry.EndSpan(span, err) }()

	var (
		violations []ledger.InvariantViolation
		checked    int64
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationAudit, nil), func(ctx context.Context) {
		violations, checked, err = s.reports.Violations(ctx)
	})
	if err != nil {
		s.logger.Error("ledger audit failed", zap.Error(err))
		return nil, err
	}
	if violations == nil {
		violations = []ledger.InvariantViolation{}
	}

	report = &ledger.AuditReport{
		CheckedAt:      s.now().UTC(),
		BatchesChecked: checked,
		Violations:     violations,
	}
	s.metrics.RecordAuditViolations(ctx, int64(len(violations)))

	for _, v := range violations {
		s.logger.Error("ledger invariant violated",
			zap.String("batch_id", v.BatchID.String()),
			zap.String("batch_no", v.BatchNo),
			zap.String("qty_received", v.QtyReceived.String()),
			zap.String("qty_used", v.QtyUsed.String()),
		)
	}
	s.logger.Info("ledger audit finished",
		zap.Int64("batches_checked", checked),
		zap.Int("violations", len(violations)),
	)
	return report, nil
}
