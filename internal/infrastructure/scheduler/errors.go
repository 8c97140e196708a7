package scheduler

import "errors"

var (
	// ErrSyncAlreadyInProgress is returned when a sync-all run is requested while one is running
	ErrSyncAlreadyInProgress = errors.New("sync already in progress")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
