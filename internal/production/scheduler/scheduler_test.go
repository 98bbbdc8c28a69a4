package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeJobs struct {
	sweeps   int32
	audits   int32
	sweepErr error
	drift    []service.AggregateReport
}

func (f *fakeJobs) ExpirySweep(ctx context.Context) ([]entity.InventoryQuant, error) {
	atomic.AddInt32(&f.sweeps, 1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("job context has no deadline")
	}
	if f.sweepErr != nil {
		return nil, f.sweepErr
	}
	return []entity.InventoryQuant{{ID: "q1"}, {ID: "q2"}}, nil
}

func (f *fakeJobs) VerifyWorkOrders(ctx context.Context) ([]service.AggregateReport, error) {
	atomic.AddInt32(&f.audits, 1)
	return f.drift, nil
}

func TestNewRegistersJobs(t *testing.T) {
	s, err := New(&fakeJobs{}, "0 2 * * *", "*/30 * * * *", nil)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)

	s, err = New(&fakeJobs{}, "", "", nil)
	require.NoError(t, err)
	assert.Empty(t, s.cron.Entries())

	_, err = New(&fakeJobs{}, "every day", "", nil)
	assert.Error(t, err)
}

func TestJobsLogResults(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	jobs := &fakeJobs{drift: []service.AggregateReport{{WorkOrderID: "wo-1"}}}
	s, err := New(jobs, "", "", zap.New(core))
	require.NoError(t, err)

	s.runExpirySweep()
	s.runAudit()
	assert.Equal(t, int32(1), atomic.LoadInt32(&jobs.sweeps))
	assert.Equal(t, int32(1), atomic.LoadInt32(&jobs.audits))

	sweep := logs.FilterMessage("expiry sweep").All()
	require.Len(t, sweep, 1)
	assert.Equal(t, int64(2), sweep[0].ContextMap()["flagged"])
	assert.Equal(t, 1, logs.FilterMessage("work order audit found drift").Len())

	jobs.sweepErr = errors.New("db down")
	s.runExpirySweep()
	assert.Equal(t, 1, logs.FilterMessage("expiry sweep failed").Len())
}

func TestStartStop(t *testing.T) {
	s, err := New(&fakeJobs{}, "@every 1h", "", nil)
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
