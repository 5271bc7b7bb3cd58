package heartbeat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/bft-labs/jobagent/pkg/log"
	"github.com/bft-labs/jobagent/pkg/statemachine"
)

const (
	heartbeatEndpoint = "/v1/agent/heartbeat"
	contentTypeCBOR   = "application/cbor"

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 64 << 10
)

// Endpoint identifies the controller the sender reports to.
type Endpoint struct {
	// URL is the controller base URL.
	URL string

	// AuthKey is sent as a bearer token.
	AuthKey string
}

// HTTPSender implements Sender by POSTing CBOR encoded beats.
type HTTPSender struct {
	client   HTTPClient
	endpoint Endpoint
	logger   log.Logger
	enc      cbor.EncMode
	dec      cbor.DecMode
}

// NewHTTPSender creates a new HTTP sender.
func NewHTTPSender(client HTTPClient, endpoint Endpoint, logger log.Logger) (*HTTPSender, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if endpoint.URL == "" {
		return nil, errors.New("heartbeat: controller URL is required")
	}

	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("heartbeat: cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("heartbeat: cbor decoder: %w", err)
	}

	endpoint.URL = strings.TrimRight(endpoint.URL, "/")
	return &HTTPSender{
		client:   client,
		endpoint: endpoint,
		logger:   logger,
		enc:      enc,
		dec:      dec,
	}, nil
}

// Send transmits beat to the controller.
func (s *HTTPSender) Send(ctx context.Context, beat Beat) (Response, error) {
	payload, err := s.enc.Marshal(beat)
	if err != nil {
		return Response{}, fmt.Errorf("marshal beat: %w", err)
	}

	url := s.endpoint.URL + heartbeatEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeCBOR)
	req.Header.Set("Accept", contentTypeCBOR)
	if s.endpoint.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.endpoint.AuthKey)
	}
	req.Header.Set("X-Agent-Id", beat.AgentID)
	req.Header.Set("X-Agent-Hostname", beat.Hostname)
	req.Header.Set("X-Agent-OSArch", beat.OSArch)

	resp, err := s.client.Do(req)
	if err != nil {
		err = fmt.Errorf("send request: %w", err)
		if isTransientTransport(ctx, err) {
			return Response{}, statemachine.Transient(err)
		}
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Response{}, statemachine.Transient(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode/100 != 2 {
		err := fmt.Errorf("controller returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return Response{}, statemachine.Transient(err)
		}
		return Response{}, err
	}

	var out Response
	if len(body) == 0 {
		return out, nil
	}
	if err := s.dec.Unmarshal(body, &out); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	s.logger.Debug("heartbeat delivered",
		log.String("job_id", beat.JobID),
		log.Int64("seq", int64(beat.Sequence)),
		log.Bool("final", beat.Final),
	)
	return out, nil
}

// isTransientTransport reports whether a transport error may clear on retry.
// Cancellation of the caller's own context is not transient; timeouts and
// connection failures are.
func isTransientTransport(ctx context.Context, err error) bool {
	return !errors.Is(ctx.Err(), context.Canceled) && !errors.Is(err, context.Canceled)
}
