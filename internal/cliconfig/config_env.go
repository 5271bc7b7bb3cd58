package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (JOBAGENT_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("controller-url", os.Getenv("JOBAGENT_CONTROLLER_URL"), &cfg.ControllerURL)
	s.setString("auth-key", os.Getenv("JOBAGENT_AUTH_KEY"), &cfg.AuthKey)
	s.setString("agent-id", os.Getenv("JOBAGENT_AGENT_ID"), &cfg.AgentID)
	s.setString("run-dir", os.Getenv("JOBAGENT_RUN_DIR"), &cfg.RunDir)
	s.setString("archive-dir", os.Getenv("JOBAGENT_ARCHIVE_DIR"), &cfg.ArchiveDir)
	s.setString("cleanup", os.Getenv("JOBAGENT_CLEANUP"), &cfg.Cleanup)
	s.setString("log-level", os.Getenv("JOBAGENT_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("heartbeat-interval", os.Getenv("JOBAGENT_HEARTBEAT_INTERVAL"), &cfg.HeartbeatInterval); err != nil {
		return err
	}
	if err := s.setDuration("heartbeat-timeout", os.Getenv("JOBAGENT_HEARTBEAT_TIMEOUT"), &cfg.HeartbeatTimeout); err != nil {
		return err
	}
	if err := s.setDuration("http-timeout", os.Getenv("JOBAGENT_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("backoff-initial", os.Getenv("JOBAGENT_BACKOFF_INITIAL"), &cfg.BackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", os.Getenv("JOBAGENT_BACKOFF_MAX"), &cfg.BackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("teardown-timeout", os.Getenv("JOBAGENT_TEARDOWN_TIMEOUT"), &cfg.TeardownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("job-timeout", os.Getenv("JOBAGENT_JOB_TIMEOUT"), &cfg.JobTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("retries", os.Getenv("JOBAGENT_STAGE_RETRIES"), &cfg.StageRetries); err != nil {
		return err
	}

	s.setBoolFromString("archive", os.Getenv("JOBAGENT_ARCHIVE"), &cfg.Archive)

	return nil
}
