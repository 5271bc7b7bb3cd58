package domain

import "errors"

// Domain errors represent error conditions in the job agent domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrInvalidRequest is returned when a job request fails validation.
	ErrInvalidRequest = errors.New("jobagent: invalid job request")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("jobagent: invalid configuration")

	// ErrJobTimeout is the cancellation cause when a job exceeds its timeout.
	ErrJobTimeout = errors.New("jobagent: job timeout exceeded")

	// ErrKilled is the cancellation cause when the controller kills a job.
	ErrKilled = errors.New("jobagent: killed by controller")
)
