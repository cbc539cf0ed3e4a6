package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AuditRunner performs one ledger audit pass.
type AuditRunner interface {
	Run(ctx context.Context) (*ledger.AuditReport, error)
}

// AuditSchedulerConfig holds configuration for the periodic ledger audit
type AuditSchedulerConfig struct {
	// Schedule is a standard five-field cron expression or a descriptor such as "@hourly"
	Schedule string
	// JobTimeout bounds a single audit pass
	JobTimeout time.Duration
}

// DefaultAuditSchedulerConfig runs the audit daily at 03:00.
func DefaultAuditSchedulerConfig() AuditSchedulerConfig {
	return AuditSchedulerConfig{
		Schedule:   "0 3 * * *",
		JobTimeout: 5 * time.Minute,
	}
}

// AuditStatus is the outcome of the most recent audit pass.
type AuditStatus struct {
	Running    bool       `json:"running"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	Checked    int64      `json:"batches_checked"`
	Violations int        `json:"violations"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
}

// AuditScheduler runs the ledger audit on a cron schedule. Passes never
// overlap: a tick that fires while an audit is still running is skipped.
type AuditScheduler struct {
	cfg    AuditSchedulerConfig
	runner AuditRunner
	logger *zap.Logger
	cron   *cron.Cron
	entry  cron.EntryID

	mu      sync.Mutex
	started bool
	running bool
	status  AuditStatus
}

// NewAuditScheduler validates the schedule and registers the audit job.
// The scheduler does nothing until Start is called.
func NewAuditScheduler(runner AuditRunner, cfg AuditSchedulerConfig, logger *zap.Logger) (*AuditScheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("%w: audit runner is nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultAuditSchedulerConfig().Schedule
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultAuditSchedulerConfig().JobTimeout
	}

	s := &AuditScheduler{cfg: cfg, runner: runner, logger: logger}
	cl := cronLogger{logger: logger}
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))

	id, err := s.cron.AddFunc(cfg.Schedule, s.tick)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, cfg.Schedule, err)
	}
	s.entry = id
	return s, nil
}

// Start begins running the schedule in the background.
func (s *AuditScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("ledger audit scheduler started",
		zap.String("schedule", s.cfg.Schedule),
		zap.Time("next_run", s.cron.Entry(s.entry).Next),
	)
}

// Stop halts the schedule and waits for a running pass to finish or ctx to end.
func (s *AuditScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("ledger audit scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run performs an audit pass immediately, outside the schedule. It is
// rejected with a conflict while another pass is running.
func (s *AuditScheduler) Run(ctx context.Context) (*ledger.AuditReport, error) {
	if !s.begin() {
		return nil, shared.NewConflictError("ledger audit already in progress").Wrap(ErrAuditInProgress)
	}
	return s.execute(ctx)
}

// Status returns the outcome of the last pass and the next scheduled run.
func (s *AuditScheduler) Status() AuditStatus {
	s.mu.Lock()
	st := s.status
	st.Running = s.running
	started := s.started
	s.mu.Unlock()

	if started {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			st.NextRunAt = &next
		}
	}
	return st
}

func (s *AuditScheduler) tick() {
	if !s.begin() {
		s.logger.Warn("skipping scheduled ledger audit, previous pass still running")
		return
	}
	_, _ = s.execute(context.Background())
}

func (s *AuditScheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *AuditScheduler) execute(ctx context.Context) (report *ledger.AuditReport, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	started := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ledger audit panicked",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			report, err = nil, fmt.Errorf("ledger audit panicked: %v", r)
		}
		s.finish(started, report, err)
	}()

	report, err = s.runner.Run(ctx)
	if err == nil && report == nil {
		err = errors.New("ledger audit returned no report")
	}
	if err != nil {
		s.logger.Error("scheduled ledger audit failed", zap.Error(err))
		return nil, err
	}
	return report, nil
}

// finish releases the running flag and records the outcome of a pass.
func (s *AuditScheduler) finish(started time.Time, report *ledger.AuditReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.status.LastRunAt = &started
	if err != nil {
		s.status.LastError = err.Error()
		return
	}
	s.status.LastError = ""
	s.status.Checked = report.BatchesChecked
	s.status.Violations = len(report.Violations)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
