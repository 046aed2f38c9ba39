package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	downloadMaxRetry = 3
	downloadTimeout  = 2 * time.Minute
	publishGrace     = time.Second
)

// Enqueuer submits background tasks to Redis.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueDownload(ctx context.Context, mediaID int64) error {
	payload, err := json.Marshal(DownloadMediaPayload{MediaID: mediaID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeDownloadMedia, payload)
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(downloadMaxRetry),
		asynq.Timeout(downloadTimeout),
	)
	if err != nil {
		return err
	}

	slog.Info("download task enqueued", "media_id", mediaID, "task_id", info.ID)
	return nil
}

// EnqueuePublish asks a worker to publish the post once it is due. The periodic dispatch
// pass still covers posts whose task is lost.
func (e *Enqueuer) EnqueuePublish(ctx context.Context, postID int64, scheduledAt time.Time) error {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	delay := time.Until(scheduledAt) + publishGrace
	if delay < 0 {
		delay = 0
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)
	_, err = e.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.MaxRetry(0))
	if err != nil {
		return err
	}

	slog.Info("publish task scheduled", "post_id", postID, "delay", delay)
	return nil
}
