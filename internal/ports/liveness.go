package ports

// LivenessService reports job liveness while the job runs.
// heartbeat.Service is the production implementation.
type LivenessService interface {
	// Start begins reporting liveness for jobID.
	Start(jobID string) error

	// Stop ends reporting. It must be idempotent and return nil when the
	// service was never started.
	Stop() error
}
