package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/jobagent/internal/domain"
)

func TestLocal_Resolve(t *testing.T) {
	no := false
	l := NewLocal(Defaults{
		Timeout: time.Hour,
		Archive: true,
		Env:     map[string]string{"PATH": "/usr/bin", "MODE": "default"},
	})

	tests := []struct {
		name string
		req  domain.JobRequest
		want func(t *testing.T, s domain.JobSpecification)
	}{
		{
			name: "defaults applied",
			req:  domain.JobRequest{CommandArgs: []string{"true"}},
			want: func(t *testing.T, s domain.JobSpecification) {
				assert.Equal(t, time.Hour, s.Timeout)
				assert.True(t, s.Archive)
				assert.Equal(t, domain.CleanupNone, s.Cleanup)
				assert.Equal(t, "default", s.Env["MODE"])
				assert.Equal(t, "job-1", s.Env["JOBAGENT_JOB_ID"])
				assert.Empty(t, s.Attachments)
			},
		},
		{
			name: "request overrides",
			req: domain.JobRequest{
				CommandArgs: []string{"run"},
				Metadata:    domain.JobMetadata{Name: "etl", User: "alice"},
				AgentConfig: domain.AgentConfig{
					Timeout: time.Minute,
					Archive: &no,
					Cleanup: domain.CleanupAll,
					Env:     map[string]string{"MODE": "custom"},
				},
				Attachments: []domain.Attachment{{Name: "q.sql", Data: "U0VMRUNUIDE7"}},
			},
			want: func(t *testing.T, s domain.JobSpecification) {
				assert.Equal(t, time.Minute, s.Timeout)
				assert.False(t, s.Archive)
				assert.Equal(t, domain.CleanupAll, s.Cleanup)
				assert.Equal(t, "custom", s.Env["MODE"], "request env wins")
				assert.Equal(t, "/usr/bin", s.Env["PATH"], "default env kept")
				assert.Equal(t, "etl", s.Env["JOBAGENT_JOB_NAME"])
				assert.Equal(t, "alice", s.Env["JOBAGENT_JOB_USER"])
				assert.Equal(t, []domain.Attachment{{Name: "q.sql", Data: "U0VMRUNUIDE7"}}, s.Attachments)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := l.Resolve(context.Background(), "job-1", tt.req)
			require.NoError(t, err)
			assert.Equal(t, "job-1", spec.JobID)
			tt.want(t, spec)
		})
	}
}

func TestLocal_ResolveInvalid(t *testing.T) {
	tests := map[string]domain.JobRequest{
		"empty command":  {},
		"unsafe env":     {CommandArgs: []string{"true"}, AgentConfig: domain.AgentConfig{Env: map[string]string{"X;touch pwned;Y": "v"}}},
		"bad attachment": {CommandArgs: []string{"true"}, Attachments: []domain.Attachment{{Name: "a/b", Data: ""}}},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewLocal(Defaults{}).Resolve(context.Background(), "job-1", req)
			require.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}
