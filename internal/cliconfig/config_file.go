package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ControllerURL     string `toml:"controller_url"`
	AuthKey           string `toml:"auth_key"`
	AgentID           string `toml:"agent_id"`
	RunDir            string `toml:"run_dir"`
	ArchiveDir        string `toml:"archive_dir"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
	HeartbeatTimeout  string `toml:"heartbeat_timeout"`
	HTTPTimeout       string `toml:"http_timeout"`
	StageRetries      *int   `toml:"stage_retries"`
	BackoffInitial    string `toml:"backoff_initial"`
	BackoffMax        string `toml:"backoff_max"`
	TeardownTimeout   string `toml:"teardown_timeout"`
	Cleanup           string `toml:"cleanup"`
	JobTimeout        string `toml:"job_timeout"`
	Archive           *bool  `toml:"archive"`
	LogLevel          string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.jobagent/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".jobagent", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("controller-url", fc.ControllerURL, &cfg.ControllerURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("agent-id", fc.AgentID, &cfg.AgentID)
	s.setString("run-dir", fc.RunDir, &cfg.RunDir)
	s.setString("archive-dir", fc.ArchiveDir, &cfg.ArchiveDir)
	s.setString("cleanup", fc.Cleanup, &cfg.Cleanup)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"heartbeat-interval", fc.HeartbeatInterval, &cfg.HeartbeatInterval},
		{"heartbeat-timeout", fc.HeartbeatTimeout, &cfg.HeartbeatTimeout},
		{"http-timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
		{"backoff-initial", fc.BackoffInitial, &cfg.BackoffInitial},
		{"backoff-max", fc.BackoffMax, &cfg.BackoffMax},
		{"teardown-timeout", fc.TeardownTimeout, &cfg.TeardownTimeout},
		{"job-timeout", fc.JobTimeout, &cfg.JobTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("retries", fc.StageRetries, &cfg.StageRetries)
	s.setBool("archive", fc.Archive, &cfg.Archive)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
