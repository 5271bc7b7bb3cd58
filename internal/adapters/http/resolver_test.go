package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/jobagent/internal/adapters/resolver"
	"github.com/bft-labs/jobagent/internal/domain"
	"github.com/bft-labs/jobagent/pkg/statemachine"
)

func newTestResolver(srv *httptest.Server) *SpecResolver {
	base := resolver.NewLocal(resolver.Defaults{Timeout: time.Hour})
	return NewSpecResolver(srv.Client(), base, srv.URL+"/", "secret", nil)
}

func respondWith(t *testing.T, out resolveResponse) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSpecResolver_AppliesControllerOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/agent/jobs/job-1/specification", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var body resolveRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "job-1", body.JobID)
		assert.Equal(t, []string{"echo", "hi"}, body.Request.CommandArgs)
		_ = json.NewEncoder(w).Encode(resolveResponse{
			Command: []string{"/opt/bin/echo", "hi"},
			Env:     map[string]string{"CLUSTER": "c1"},
			Timeout: "10m",
			Cleanup: "all",
		})
	}))
	defer srv.Close()

	spec, err := newTestResolver(srv).Resolve(context.Background(), "job-1", domain.JobRequest{CommandArgs: []string{"echo", "hi"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/bin/echo", "hi"}, spec.Command)
	assert.Equal(t, 10*time.Minute, spec.Timeout)
	assert.Equal(t, domain.CleanupAll, spec.Cleanup)
	assert.Equal(t, "c1", spec.Env["CLUSTER"])
	assert.Equal(t, "job-1", spec.Env["JOBAGENT_JOB_ID"])
}

func TestSpecResolver_EmptyResponseKeepsBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	spec, err := newTestResolver(srv).Resolve(context.Background(), "job-1", domain.JobRequest{CommandArgs: []string{"true"}})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, spec.Timeout)
	assert.Equal(t, []string{"true"}, spec.Command)
}

func TestSpecResolver_RejectsUnsafeControllerValues(t *testing.T) {
	tests := map[string]resolveResponse{
		"env name with command": {Env: map[string]string{"X;touch pwned;Y": "v"}},
		"env name with newline": {Env: map[string]string{"A\nB": "v"}},
		"oversized argument":    {Command: []string{"echo", strings.Repeat("a", domain.MaxCommandArgLength+1)}},
	}
	for name, out := range tests {
		t.Run(name, func(t *testing.T) {
			srv := respondWith(t, out)

			_, err := newTestResolver(srv).Resolve(context.Background(), "job-1", domain.JobRequest{CommandArgs: []string{"true"}})
			require.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.False(t, statemachine.IsTransient(err))
		})
	}
}

func TestSpecResolver_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server error", http.StatusBadGateway, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"not found", http.StatusNotFound, false},
		{"forbidden", http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, tt.name, tt.status)
			}))
			defer srv.Close()

			_, err := newTestResolver(srv).Resolve(context.Background(), "job-1", domain.JobRequest{CommandArgs: []string{"true"}})
			require.Error(t, err)
			assert.Equal(t, tt.transient, statemachine.IsTransient(err), "err: %v", err)
		})
	}
}

func TestSpecResolver_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	r := newTestResolver(srv)
	srv.Close()

	_, err := r.Resolve(context.Background(), "job-1", domain.JobRequest{CommandArgs: []string{"true"}})
	require.True(t, statemachine.IsTransient(err), "error = %v", err)
}
