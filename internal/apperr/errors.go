package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrNoCheckpoint     = errors.New("no active checkpoint")
	ErrCheckpointActive = errors.New("checkpoint is active")
)
