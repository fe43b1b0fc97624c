package queue

import (
	"github.com/maheshrc27/broadcast/internal/service"
)

type Queue struct {
	scheduler service.SchedulerService
}

func NewQueue(scheduler service.SchedulerService) *Queue {
	return &Queue{
		scheduler: scheduler,
	}
}

const (
	TaskTypeSweep        = "posts:sweep"
	TaskTypeMonthlyReset = "quota:monthly-reset"
)

const (
	SweepSpec        = "@every 1m"
	MonthlyResetSpec = "0 0 1 * *"
)
