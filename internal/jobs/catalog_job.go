package job

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/curapost/internal/service"
	"github.com/maheshrc27/curapost/internal/transfer"
)

type CatalogJob struct {
	cs     service.CatalogService
	filter transfer.CatalogFilter
}

func NewCatalogJob(cs service.CatalogService, filter transfer.CatalogFilter) *CatalogJob {
	return &CatalogJob{cs: cs, filter: filter}
}

func (j *CatalogJob) Run() {
	summary, err := j.cs.Ingest(context.Background(), j.filter)
	if err != nil {
		slog.Error("catalog fetch failed", "error", err)
		return
	}
	slog.Info("catalog fetch complete", "inserted", summary.Inserted, "skipped", summary.Skipped)
}
