package scheduler

import "errors"

var (
	// ErrSchedulerRunning is returned when registering a job after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrDuplicateJob is returned when two jobs share a name
	ErrDuplicateJob = errors.New("job already registered")

	// ErrInvalidJob is returned for a job without a name, function or positive interval
	ErrInvalidJob = errors.New("invalid job definition")

	// ErrJobNotFound is returned when triggering an unknown job
	ErrJobNotFound = errors.New("job not found")
)
