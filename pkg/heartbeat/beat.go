package heartbeat

import "time"

// Beat is one liveness report for a running job.
type Beat struct {
	JobID    string    `cbor:"jobId"`
	AgentID  string    `cbor:"agentId"`
	Hostname string    `cbor:"hostname"`
	OSArch   string    `cbor:"osArch"`
	Sequence uint64    `cbor:"seq"`
	SentAt   time.Time `cbor:"sentAt"`

	// Final marks the deregistration beat sent by Stop.
	Final bool `cbor:"final,omitempty"`
}

// Response is the controller's answer to a beat.
type Response struct {
	// Kill asks the agent to terminate the job.
	Kill   bool   `cbor:"kill,omitempty"`
	Reason string `cbor:"reason,omitempty"`
}
