package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFileConfig(t *testing.T) {
	zero := 0
	trueVal := true

	tests := []struct {
		name     string
		fc       FileConfig
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies file values",
			fc: FileConfig{
				ControllerURL:   "http://file:8080",
				RunDir:          "/file/runs",
				BackoffInitial:  "1s",
				TeardownTimeout: "1m",
				StageRetries:    &zero,
				Archive:         &trueVal,
				Cleanup:         "all",
			},
			changed: map[string]bool{},
			initial: Config{StageRetries: 3},
			expected: Config{
				ControllerURL:   "http://file:8080",
				RunDir:          "/file/runs",
				BackoffInitial:  time.Second,
				TeardownTimeout: time.Minute,
				StageRetries:    0,
				Archive:         true,
				Cleanup:         "all",
			},
		},
		{
			name:    "changed flags win",
			fc:      FileConfig{RunDir: "/file/runs", JobTimeout: "1h"},
			changed: map[string]bool{"run-dir": true, "job-timeout": true},
			initial: Config{RunDir: "/cli/runs", JobTimeout: time.Minute},
			expected: Config{
				RunDir:     "/cli/runs",
				JobTimeout: time.Minute,
			},
		},
		{
			name:    "empty values leave defaults",
			fc:      FileConfig{},
			changed: map[string]bool{},
			initial: Config{RunDir: "/default", StageRetries: 3},
			expected: Config{
				RunDir:       "/default",
				StageRetries: 3,
			},
		},
		{
			name:    "invalid duration",
			fc:      FileConfig{HeartbeatInterval: "soon"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fc, tt.changed)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
controller_url = "http://controller:8080"
agent_id = "test-agent"
heartbeat_interval = "5s"
stage_retries = 2
archive = false
cleanup = "all"
`

	require.NoError(t, os.WriteFile(configPath, []byte(tomlContent), 0o644))

	fc, err := LoadFileConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://controller:8080", fc.ControllerURL)
	assert.Equal(t, "test-agent", fc.AgentID)
	assert.Equal(t, "5s", fc.HeartbeatInterval)
	require.NotNil(t, fc.StageRetries)
	assert.Equal(t, 2, *fc.StageRetries)
	require.NotNil(t, fc.Archive)
	assert.False(t, *fc.Archive)
	assert.Equal(t, "all", fc.Cleanup)
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	assert.Error(t, err)
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
run_dir = "/test"
this is not valid toml
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidContent), 0o644))

	_, err := LoadFileConfig(configPath)
	assert.Error(t, err)
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if path != "" {
		assert.Contains(t, path, ".jobagent")
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")
	require.NoError(t, os.WriteFile(existingFile, []byte("test"), 0o644))

	assert.True(t, FileExists(existingFile))
	assert.False(t, FileExists(filepath.Join(tmpDir, "nonexistent.txt")))
}
