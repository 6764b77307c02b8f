package driver

import "errors"

// Admission errors returned by Submit and Post.
var (
	ErrQueueFull   = errors.New("command queue full")
	ErrRateLimited = errors.New("rate limited")
	ErrStopped     = errors.New("driver stopped")
)
