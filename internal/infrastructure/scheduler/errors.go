package scheduler

import "errors"

var (
	// ErrMonitorAlreadyRunning is returned when starting a running monitor
	ErrMonitorAlreadyRunning = errors.New("monitor is already running")

	// ErrMonitorNotRunning is returned when stopping a stopped monitor
	ErrMonitorNotRunning = errors.New("monitor is not running")

	// ErrInvalidConfig is returned when monitor configuration is invalid
	ErrInvalidConfig = errors.New("invalid monitor configuration")

	// ErrUnknownMethod is returned for an unrecognized monitoring method
	ErrUnknownMethod = errors.New("unknown monitoring method")
)
