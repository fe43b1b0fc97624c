package queue

import (
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// RegisterPeriodic adds the sweep and the monthly reset to scheduler. Each
// task is unique within its window. Sweeps are never retried.
func RegisterPeriodic(scheduler *asynq.Scheduler) error {
	entries := []struct {
		spec string
		task *asynq.Task
		opts []asynq.Option
	}{
		{
			spec: SweepSpec,
			task: asynq.NewTask(TaskTypeSweep, nil),
			opts: []asynq.Option{asynq.MaxRetry(0), asynq.Unique(55 * time.Second), asynq.Timeout(10 * time.Minute)},
		},
		{
			spec: MonthlyResetSpec,
			task: asynq.NewTask(TaskTypeMonthlyReset, nil),
			opts: []asynq.Option{asynq.MaxRetry(3), asynq.Unique(time.Hour)},
		},
	}

	for _, e := range entries {
		id, err := scheduler.Register(e.spec, e.task, e.opts...)
		if err != nil {
			return err
		}
		slog.Info("periodic task registered", "task", e.task.Type(), "spec", e.spec, "entry_id", id)
	}
	return nil
}
