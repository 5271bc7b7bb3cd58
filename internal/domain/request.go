package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// JobRequest is a job as submitted to the agent.
type JobRequest struct {
	// ID is the controller-assigned job identifier. The agent generates
	// one when it is empty.
	ID string `yaml:"id" json:"id,omitempty"`

	// CommandArgs is the command line of the job. Blank arguments are
	// dropped by Normalize.
	CommandArgs []string `yaml:"commandArgs" json:"commandArgs"`

	Metadata    JobMetadata `yaml:"metadata" json:"metadata"`
	Criteria    Criteria    `yaml:"criteria" json:"criteria"`
	AgentConfig AgentConfig `yaml:"agentConfig" json:"agentConfig"`

	// Attachments are written into the work directory before launch.
	Attachments []Attachment `yaml:"attachments" json:"attachments,omitempty"`
}

// MaxCommandArgLength bounds each command argument, in characters.
const MaxCommandArgLength = 10000

// JobMetadata describes who submitted a job and why.
type JobMetadata struct {
	Name string   `yaml:"name" json:"name,omitempty"`
	User string   `yaml:"user" json:"user,omitempty"`
	Tags []string `yaml:"tags" json:"tags,omitempty"`
}

// Criteria are the tags the controller matched when selecting this agent.
type Criteria struct {
	ClusterTags []string `yaml:"clusterTags" json:"clusterTags,omitempty"`
	CommandTags []string `yaml:"commandTags" json:"commandTags,omitempty"`
}

// AgentConfig holds per-job overrides of the agent configuration.
// Zero values mean "use the agent default".
type AgentConfig struct {
	Timeout time.Duration     `yaml:"timeout" json:"timeout,omitempty"`
	Archive *bool             `yaml:"archive" json:"archive,omitempty"`
	Cleanup CleanupPolicy     `yaml:"cleanup" json:"cleanup,omitempty"`
	Env     map[string]string `yaml:"env" json:"env,omitempty"`
}

// Normalize drops blank command arguments and trims tag whitespace.
func (r *JobRequest) Normalize() {
	r.ID = strings.TrimSpace(r.ID)
	r.CommandArgs = filterBlank(r.CommandArgs)
	r.Metadata.Tags = filterBlank(r.Metadata.Tags)
	r.Criteria.ClusterTags = filterBlank(r.Criteria.ClusterTags)
	r.Criteria.CommandTags = filterBlank(r.Criteria.CommandTags)
}

// Validate checks that the request can be executed.
func (r JobRequest) Validate() error {
	if len(filterBlank(r.CommandArgs)) == 0 {
		return fmt.Errorf("%w: command args are empty", ErrInvalidRequest)
	}
	if err := ValidateCommandArgs(r.CommandArgs); err != nil {
		return err
	}
	if r.AgentConfig.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalidRequest, r.AgentConfig.Timeout)
	}
	if r.AgentConfig.Cleanup != "" {
		if _, err := ParseCleanupPolicy(string(r.AgentConfig.Cleanup)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	if err := ValidateEnv(r.AgentConfig.Env); err != nil {
		return err
	}
	if r.ID != "" {
		if err := ValidateJobID(r.ID); err != nil {
			return err
		}
	}
	return ValidateAttachments(r.Attachments)
}

// ValidateCommandArgs rejects arguments longer than MaxCommandArgLength
// characters.
func ValidateCommandArgs(args []string) error {
	for i, a := range args {
		if n := utf8.RuneCountInString(a); n > MaxCommandArgLength {
			return fmt.Errorf("%w: command arg %d has %d characters, limit is %d", ErrInvalidRequest, i, n, MaxCommandArgLength)
		}
	}
	return nil
}

func filterBlank(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
