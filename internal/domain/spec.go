package domain

import "time"

// JobSpecification is the executable form of a JobRequest, with every
// agent default applied.
type JobSpecification struct {
	JobID   string
	Command []string
	Env     map[string]string
	Timeout time.Duration
	Archive bool
	Cleanup CleanupPolicy

	Metadata JobMetadata
	Criteria Criteria

	// Attachments are written into the work directory.
	Attachments []Attachment
}

// AgentInfo identifies the agent running a job.
type AgentInfo struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
	OSArch   string `json:"osArch"`
	Version  string `json:"version"`
}

// Job directory layout, relative to the job directory.
const (
	EnvFileName     = "job.env"
	SetupScriptName = "setup.sh"
	WorkDirName     = "work"
	StdoutFileName  = "stdout.log"
	StderrFileName  = "stderr.log"
)
