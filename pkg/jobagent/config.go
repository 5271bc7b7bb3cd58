package jobagent

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bft-labs/jobagent/internal/domain"
	"github.com/bft-labs/jobagent/pkg/heartbeat"
)

// Default values applied by Config.SetDefaults.
const (
	DefaultHTTPTimeout     = 15 * time.Second
	DefaultStageRetries    = 3
	DefaultBackoffInitial  = 500 * time.Millisecond
	DefaultBackoffMax      = 10 * time.Second
	DefaultTeardownTimeout = 30 * time.Second
)

// NoRetries disables stage retries when set as Config.StageRetries.
const NoRetries = -1

// Config holds the configuration for an Agent.
type Config struct {
	// ControllerURL is the controller base URL. Empty runs standalone.
	ControllerURL string

	// AuthKey is sent as a bearer token to the controller.
	AuthKey string

	// AgentID identifies this agent. Defaults to the hostname.
	AgentID string

	// RunDir holds one execution directory per job. Required.
	RunDir string

	// ArchiveDir receives job archives. Defaults to RunDir/archives.
	ArchiveDir string

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	HTTPTimeout       time.Duration

	// StageRetries is the retry budget of retryable states. Zero selects
	// DefaultStageRetries; use NoRetries to disable retries.
	StageRetries int

	BackoffInitial  time.Duration
	BackoffMax      time.Duration
	TeardownTimeout time.Duration

	// Cleanup is the default cleanup policy for jobs whose request sets
	// none.
	Cleanup domain.CleanupPolicy

	// JobTimeout is the default job timeout. Zero means no timeout.
	JobTimeout time.Duration

	// Archive is the default archive toggle.
	Archive bool

	// Env is added to the environment of every job.
	Env map[string]string
}

// SetDefaults fills unset fields with default values.
func (c *Config) SetDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = heartbeat.DefaultInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = heartbeat.DefaultTimeout
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.StageRetries == 0 {
		c.StageRetries = DefaultStageRetries
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = DefaultBackoffInitial
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	if c.TeardownTimeout <= 0 {
		c.TeardownTimeout = DefaultTeardownTimeout
	}
	if c.Cleanup == "" {
		c.Cleanup = domain.CleanupNone
	}
	if c.ArchiveDir == "" && c.RunDir != "" {
		c.ArchiveDir = filepath.Join(c.RunDir, "archives")
	}
	c.ControllerURL = strings.TrimRight(c.ControllerURL, "/")
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	var errs []error
	if c.RunDir == "" {
		errs = append(errs, errors.New("run dir is required"))
	}
	if c.BackoffMax < c.BackoffInitial {
		errs = append(errs, fmt.Errorf("backoff max %s is below backoff initial %s", c.BackoffMax, c.BackoffInitial))
	}
	if c.JobTimeout < 0 {
		errs = append(errs, errors.New("job timeout must not be negative"))
	}
	if _, err := domain.ParseCleanupPolicy(string(c.Cleanup)); err != nil {
		errs = append(errs, err)
	}
	if err := domain.ValidateEnv(c.Env); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
