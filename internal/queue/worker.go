package queue

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

func (j *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeSweep, j.HandleSweepTask)
	mux.HandleFunc(TaskTypeMonthlyReset, j.HandleMonthlyResetTask)
	return mux
}

func (j *Queue) HandleSweepTask(ctx context.Context, task *asynq.Task) error {
	report, err := j.scheduler.Sweep(ctx)
	if err != nil {
		slog.Error("scheduled sweep failed", "error", err)
		return err
	}
	slog.Info("scheduled sweep ran", "total", report.Total, "processed", report.Processed, "failed", report.Failed)
	return nil
}

func (j *Queue) HandleMonthlyResetTask(ctx context.Context, task *asynq.Task) error {
	_, err := j.scheduler.ResetMonthly(ctx)
	return err
}
