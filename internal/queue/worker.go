package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/curapost/internal/service"
)

var errDownloadFailed = errors.New("media download failed")

func (q *Queue) HandleDownloadMediaTask(ctx context.Context, task *asynq.Task) error {
	var payload DownloadMediaPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if !q.acquirer.EnsureLocal(ctx, payload.MediaID) {
		return fmt.Errorf("media %d: %w", payload.MediaID, errDownloadFailed)
	}
	return nil
}

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	post, err := q.dispatcher.Publish(ctx, payload.PostID, time.Now())
	switch {
	case errors.Is(err, service.ErrNotDispatchable), errors.Is(err, service.ErrNotFound):
		slog.Info("publish task skipped", "post_id", payload.PostID, "reason", err)
		return nil
	case errors.Is(err, service.ErrTransportUnauthenticated):
		slog.Warn("publish task deferred to the next dispatch pass", "post_id", payload.PostID)
		return nil
	case err != nil:
		return err
	}

	slog.Info("publish task finished", "post_id", post.ID, "status", post.Status)
	return nil
}

// Register adds the task handlers to mux.
func (q *Queue) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeDownloadMedia, q.HandleDownloadMediaTask)
	mux.HandleFunc(TaskTypePublishPost, q.HandlePublishPostTask)
}
