package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/broadcast/internal/transfer"
	"github.com/stretchr/testify/assert"
)

type stubScheduler struct {
	sweeps, resets int
	err            error
}

func (s *stubScheduler) Sweep(context.Context) (*transfer.SweepReport, error) {
	s.sweeps++
	if s.err != nil {
		return nil, s.err
	}
	return &transfer.SweepReport{}, nil
}

func (s *stubScheduler) ResetMonthly(context.Context) (int64, error) {
	s.resets++
	return 3, s.err
}

func TestMuxRoutesTasks(t *testing.T) {
	sched := &stubScheduler{}
	mux := NewQueue(sched).Mux()
	ctx := context.Background()

	assert.NoError(t, mux.ProcessTask(ctx, asynq.NewTask(TaskTypeSweep, nil)))
	assert.NoError(t, mux.ProcessTask(ctx, asynq.NewTask(TaskTypeMonthlyReset, nil)))
	assert.Equal(t, 1, sched.sweeps)
	assert.Equal(t, 1, sched.resets)

	assert.Error(t, mux.ProcessTask(ctx, asynq.NewTask("unknown:task", nil)))
}

func TestHandlersPropagateErrors(t *testing.T) {
	sched := &stubScheduler{err: errors.New("db down")}
	q := NewQueue(sched)

	assert.Error(t, q.HandleSweepTask(context.Background(), asynq.NewTask(TaskTypeSweep, nil)))
	assert.Error(t, q.HandleMonthlyResetTask(context.Background(), asynq.NewTask(TaskTypeMonthlyReset, nil)))
}

func TestRegisterPeriodic(t *testing.T) {
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: "127.0.0.1:1"}, &asynq.SchedulerOpts{})
	assert.NoError(t, RegisterPeriodic(scheduler))
}
