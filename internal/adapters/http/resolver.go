// Package http contains adapters that talk to the job controller over HTTP.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bft-labs/jobagent/internal/domain"
	"github.com/bft-labs/jobagent/internal/ports"
	"github.com/bft-labs/jobagent/pkg/log"
	"github.com/bft-labs/jobagent/pkg/statemachine"
)

const resolveEndpoint = "/v1/agent/jobs/%s/specification"

// resolveRequest is the body sent to the controller.
type resolveRequest struct {
	JobID   string            `json:"jobId"`
	Request domain.JobRequest `json:"request"`
}

// resolveResponse carries the controller's overrides. Empty fields keep the
// locally resolved value.
type resolveResponse struct {
	Command []string          `json:"command"`
	Env     map[string]string `json:"env"`
	Timeout string            `json:"timeout"`
	Archive *bool             `json:"archive"`
	Cleanup string            `json:"cleanup"`
}

// SpecResolver implements ports.SpecResolver by asking the controller to
// resolve the request on top of a local base resolution.
type SpecResolver struct {
	client  ports.HTTPClient
	base    ports.SpecResolver
	url     string
	authKey string
	logger  log.Logger
}

// NewSpecResolver creates a controller-backed resolver. base supplies the
// specification the controller response is applied to.
func NewSpecResolver(client ports.HTTPClient, base ports.SpecResolver, controllerURL, authKey string, logger log.Logger) *SpecResolver {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &SpecResolver{
		client:  client,
		base:    base,
		url:     strings.TrimRight(controllerURL, "/"),
		authKey: authKey,
		logger:  logger,
	}
}

// Resolve implements ports.SpecResolver. Transport failures, 5xx and 429
// responses are transient.
func (r *SpecResolver) Resolve(ctx context.Context, jobID string, req domain.JobRequest) (domain.JobSpecification, error) {
	spec, err := r.base.Resolve(ctx, jobID, req)
	if err != nil {
		return domain.JobSpecification{}, err
	}

	body, err := json.Marshal(resolveRequest{JobID: jobID, Request: req})
	if err != nil {
		return domain.JobSpecification{}, fmt.Errorf("marshal resolve request: %w", err)
	}

	endpoint := r.url + fmt.Sprintf(resolveEndpoint, url.PathEscape(jobID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.JobSpecification{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.authKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.authKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		err = fmt.Errorf("send request: %w", err)
		if errors.Is(ctx.Err(), context.Canceled) {
			return domain.JobSpecification{}, err
		}
		return domain.JobSpecification{}, statemachine.Transient(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.JobSpecification{}, statemachine.Transient(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode/100 != 2 {
		err := fmt.Errorf("controller returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return domain.JobSpecification{}, statemachine.Transient(err)
		}
		return domain.JobSpecification{}, err
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return spec, nil
	}
	var out resolveResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return domain.JobSpecification{}, fmt.Errorf("decode resolve response: %w", err)
	}
	if err := apply(&spec, out); err != nil {
		return domain.JobSpecification{}, err
	}

	r.logger.Debug("specification resolved by controller", log.String("job_id", jobID))
	return spec, nil
}

func apply(spec *domain.JobSpecification, out resolveResponse) error {
	if err := domain.ValidateCommandArgs(out.Command); err != nil {
		return fmt.Errorf("controller command: %w", err)
	}
	if err := domain.ValidateEnv(out.Env); err != nil {
		return fmt.Errorf("controller env: %w", err)
	}
	if len(out.Command) > 0 {
		spec.Command = out.Command
	}
	if spec.Env == nil && len(out.Env) > 0 {
		spec.Env = make(map[string]string, len(out.Env))
	}
	for k, v := range out.Env {
		spec.Env[k] = v
	}
	if out.Timeout != "" {
		d, err := time.ParseDuration(out.Timeout)
		if err != nil {
			return fmt.Errorf("controller timeout %q: %w", out.Timeout, err)
		}
		spec.Timeout = d
	}
	if out.Archive != nil {
		spec.Archive = *out.Archive
	}
	if out.Cleanup != "" {
		p, err := domain.ParseCleanupPolicy(out.Cleanup)
		if err != nil {
			return fmt.Errorf("controller cleanup: %w", err)
		}
		spec.Cleanup = p
	}
	return nil
}
