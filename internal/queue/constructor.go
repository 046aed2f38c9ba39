package queue

import (
	"github.com/maheshrc27/curapost/internal/service"
)

type Queue struct {
	acquirer   service.MediaAcquirer
	dispatcher service.DispatchService
}

func NewQueue(acquirer service.MediaAcquirer, dispatcher service.DispatchService) *Queue {
	return &Queue{
		acquirer:   acquirer,
		dispatcher: dispatcher,
	}
}

const (
	TaskTypeDownloadMedia = "media:download"
	TaskTypePublishPost   = "post:publish"
)

type DownloadMediaPayload struct {
	MediaID int64 `json:"media_id"`
}

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
