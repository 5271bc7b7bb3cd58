package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/jobagent/internal/domain"
)

// Config holds CLI configuration for the job agent.
type Config struct {
	// ControllerURL is the controller base URL. When empty the agent runs
	// standalone: no heartbeats are sent and requests resolve locally.
	ControllerURL string
	AuthKey       string
	AgentID       string

	RunDir     string
	ArchiveDir string

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	HTTPTimeout       time.Duration

	StageRetries    int
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
	TeardownTimeout time.Duration

	Cleanup    string
	JobTimeout time.Duration
	Archive    bool

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		RunDir:            DefaultRunDir(),
		HeartbeatInterval: 10 * time.Second,
		HeartbeatTimeout:  5 * time.Second,
		HTTPTimeout:       15 * time.Second,
		StageRetries:      3,
		BackoffInitial:    500 * time.Millisecond,
		BackoffMax:        10 * time.Second,
		TeardownTimeout:   30 * time.Second,
		Cleanup:           string(domain.CleanupNone),
		Archive:           true,
		LogLevel:          "info",
		AuthKey:           os.Getenv("JOBAGENT_AUTH_KEY"),
	}
}

// DefaultRunDir returns ~/.jobagent/runs, or a directory under the system
// temp dir when the home directory is unknown.
func DefaultRunDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".jobagent", "runs")
	}
	return filepath.Join(os.TempDir(), "jobagent", "runs")
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.RunDir == "" {
		return fmt.Errorf("%w: run-dir is required", domain.ErrInvalidConfig)
	}
	if c.ArchiveDir == "" {
		c.ArchiveDir = filepath.Join(c.RunDir, "archives")
	}

	if c.AgentID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "agent"
		}
		c.AgentID = host
	}

	// Ensure no trailing slash
	c.ControllerURL = strings.TrimRight(c.ControllerURL, "/")

	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat interval must be positive", domain.ErrInvalidConfig)
	}
	if c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("%w: heartbeat timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.StageRetries < 0 {
		return fmt.Errorf("%w: stage retries must not be negative", domain.ErrInvalidConfig)
	}
	if c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("%w: backoff max %s is below backoff initial %s", domain.ErrInvalidConfig, c.BackoffMax, c.BackoffInitial)
	}
	if c.JobTimeout < 0 {
		return fmt.Errorf("%w: job timeout must not be negative", domain.ErrInvalidConfig)
	}
	if _, err := domain.ParseCleanupPolicy(c.Cleanup); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value from a pointer if not nil and flag not changed.
// Zero is a meaningful retry budget, so presence rather than sign decides.
func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
