package job

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/curapost/internal/service"
)

type DispatchJob struct {
	ds      service.DispatchService
	running atomic.Bool
	clock   func() time.Time
}

func NewDispatchJob(ds service.DispatchService) *DispatchJob {
	return &DispatchJob{ds: ds, clock: time.Now}
}

// Run performs one dispatch pass. A tick that arrives while a pass is still running is dropped.
func (j *DispatchJob) Run() {
	if !j.running.CompareAndSwap(false, true) {
		slog.Info("previous dispatch pass still running, skipping tick")
		return
	}
	defer j.running.Store(false)

	published, err := j.ds.RunDue(context.Background(), j.clock())
	if err != nil {
		slog.Error("dispatch pass failed", "error", err)
		return
	}
	slog.Info("dispatch pass complete", "published", published)
}
