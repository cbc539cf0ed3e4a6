package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/ledger"
	"github.com/mfgops/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeAuditRunner struct {
	calls   atomic.Int32
	block   chan struct{}
	err     error
	report  *ledger.AuditReport
	sawDone atomic.Bool
}

func (f *fakeAuditRunner) Run(ctx context.Context) (*ledger.AuditReport, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if _, ok := ctx.Deadline(); ok {
		f.sawDone.Store(true)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func healthyReport(violations int) *ledger.AuditReport {
	r := &ledger.AuditReport{CheckedAt: time.Now(), BatchesChecked: 12}
	for i := 0; i < violations; i++ {
		r.Violations = append(r.Violations, ledger.InvariantViolation{BatchID: uuid.New()})
	}
	return r
}

func TestNewAuditScheduler_Validation(t *testing.T) {
	_, err := NewAuditScheduler(nil, DefaultAuditSchedulerConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewAuditScheduler(&fakeAuditRunner{}, AuditSchedulerConfig{Schedule: "every tuesday"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := NewAuditScheduler(&fakeAuditRunner{}, AuditSchedulerConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * *", s.cfg.Schedule)
	assert.Equal(t, 5*time.Minute, s.cfg.JobTimeout)
}

func TestAuditScheduler_RunRecordsStatus(t *testing.T) {
	runner := &fakeAuditRunner{report: healthyReport(2)}
	s, err := NewAuditScheduler(runner, DefaultAuditSchedulerConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Violations, 2)
	assert.True(t, runner.sawDone.Load(), "audit must run under the job timeout")

	st := s.Status()
	require.NotNil(t, st.LastRunAt)
	assert.Equal(t, int64(12), st.Checked)
	assert.Equal(t, 2, st.Violations)
	assert.Empty(t, st.LastError)
	assert.Nil(t, st.NextRunAt, "not started")
}

func TestAuditScheduler_FailureIsRecorded(t *testing.T) {
	runner := &fakeAuditRunner{err: errors.New("db down")}
	s, err := NewAuditScheduler(runner, DefaultAuditSchedulerConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	s.tick()

	st := s.Status()
	assert.Equal(t, "db down", st.LastError)
	assert.False(t, st.Running)
}

// panicOnceRunner panics on its first pass and reports normally afterwards.
type panicOnceRunner struct {
	calls atomic.Int32
}

func (p *panicOnceRunner) Run(context.Context) (*ledger.AuditReport, error) {
	if p.calls.Add(1) == 1 {
		panic("nil batch in audit scan")
	}
	return healthyReport(1), nil
}

func TestAuditScheduler_PanicReleasesRunningFlag(t *testing.T) {
	runner := &panicOnceRunner{}
	s, err := NewAuditScheduler(runner, DefaultAuditSchedulerConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "nil batch in audit scan")

	st := s.Status()
	assert.False(t, st.Running)
	assert.Contains(t, st.LastError, "panicked")

	report, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Violations, 1)
	st = s.Status()
	assert.False(t, st.Running)
	assert.Empty(t, st.LastError)
	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestAuditScheduler_TickSurvivesPanic(t *testing.T) {
	runner := &panicOnceRunner{}
	s, err := NewAuditScheduler(runner, DefaultAuditSchedulerConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NotPanics(t, s.tick)
	assert.False(t, s.Status().Running)

	s.tick()
	assert.Equal(t, int32(2), runner.calls.Load())
	assert.Equal(t, 1, s.Status().Violations)
}

func TestAuditScheduler_NoOverlap(t *testing.T) {
	runner := &fakeAuditRunner{block: make(chan struct{}), report: healthyReport(0)}
	s, err := NewAuditScheduler(runner, DefaultAuditSchedulerConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Run(context.Background())
	}()

	require.Eventually(t, func() bool { return s.Status().Running }, time.Second, 5*time.Millisecond)

	_, err = s.Run(context.Background())
	assert.ErrorIs(t, err, ErrAuditInProgress)
	assert.ErrorIs(t, err, shared.ErrConflict)
	s.tick()

	close(runner.block)
	<-done
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestAuditScheduler_StartStop(t *testing.T) {
	s, err := NewAuditScheduler(&fakeAuditRunner{report: healthyReport(0)},
		AuditSchedulerConfig{Schedule: "@hourly"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	s.Start()
	s.Start()
	st := s.Status()
	require.NotNil(t, st.NextRunAt)
	assert.True(t, st.NextRunAt.After(time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
	assert.Nil(t, s.Status().NextRunAt)
}
