package cliconfig

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/jobagent/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 3, cfg.StageRetries)
	assert.Equal(t, "none", cfg.Cleanup)
	assert.True(t, cfg.Archive)
	assert.NotEmpty(t, cfg.RunDir)
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.RunDir = "/tmp/runs"
	cfg.AgentID = "agent-1"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "missing run dir", mutate: func(c *Config) { c.RunDir = "" }, wantErr: true},
		{name: "zero heartbeat interval", mutate: func(c *Config) { c.HeartbeatInterval = 0 }, wantErr: true},
		{name: "zero heartbeat timeout", mutate: func(c *Config) { c.HeartbeatTimeout = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.StageRetries = -1 }, wantErr: true},
		{name: "zero retries allowed", mutate: func(c *Config) { c.StageRetries = 0 }},
		{name: "backoff max below initial", mutate: func(c *Config) { c.BackoffMax = time.Millisecond }, wantErr: true},
		{name: "negative job timeout", mutate: func(c *Config) { c.JobTimeout = -time.Second }, wantErr: true},
		{name: "unknown cleanup policy", mutate: func(c *Config) { c.Cleanup = "some" }, wantErr: true},
		{name: "cleanup all", mutate: func(c *Config) { c.Cleanup = "all" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestConfig_Validate_Derivations(t *testing.T) {
	cfg := validConfig()
	cfg.AgentID = ""
	cfg.ControllerURL = "http://controller:8080/"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join("/tmp/runs", "archives"), cfg.ArchiveDir, "derived from run dir")
	assert.NotEmpty(t, cfg.AgentID, "AgentID derived")
	assert.Equal(t, "http://controller:8080", cfg.ControllerURL, "trailing slash trimmed")
}

func TestConfig_Validate_KeepsExplicitArchiveDir(t *testing.T) {
	cfg := validConfig()
	cfg.ArchiveDir = "/srv/archives"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/srv/archives", cfg.ArchiveDir)
}
