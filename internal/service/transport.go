package service

import "context"

// PublishTransport is the social platform the posts go out to.
type PublishTransport interface {
	IsReady(ctx context.Context) bool
	UploadMedia(ctx context.Context, localPath string) (string, error)
	Publish(ctx context.Context, text string, mediaIDs []string) (string, error)
}
