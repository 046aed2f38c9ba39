package service

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrNoSelectedMedia          = errors.New("product has no selected media")
	ErrTransportUnauthenticated = errors.New("publish transport is not authenticated")
	ErrTooManySelected          = errors.New("too many media selected")
	ErrInvalidSelection         = errors.New("invalid media selection")
	ErrInvalidMode              = errors.New("invalid schedule mode")
)

// ErrNotDispatchable is returned when a post exists but is not due or no longer scheduled.
var ErrNotDispatchable = errors.New("post is not due or already dispatched")
