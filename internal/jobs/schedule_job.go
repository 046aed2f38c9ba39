package job

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/curapost/internal/service"
)

type ScheduleJob struct {
	ss        service.SchedulerService
	batchSize int
}

func NewScheduleJob(ss service.SchedulerService, batchSize int) *ScheduleJob {
	return &ScheduleJob{ss: ss, batchSize: batchSize}
}

// Run schedules posts for a batch of unposted products with curated media.
func (j *ScheduleJob) Run() {
	count, err := j.ss.ScheduleUnposted(context.Background(), j.batchSize)
	if err != nil {
		slog.Error("scheduling unposted products failed", "error", err)
		return
	}
	slog.Info("scheduled unposted products", "count", count)
}
