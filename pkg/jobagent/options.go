package jobagent

import (
	"github.com/bft-labs/jobagent/internal/ports"
	"github.com/bft-labs/jobagent/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Launcher starts job processes. Tests and embedders can replace the
// default os/exec launcher with WithLauncher.
type Launcher = ports.Launcher

// Option configures optional behavior of an Agent.
type Option func(*options)

// options holds the optional configuration for an Agent.
type options struct {
	httpClient   ports.HTTPClient
	logger       log.Logger
	eventHandler EventHandler
	launcher     ports.Launcher
	newJobID     func() string
}

// WithHTTPClient sets a custom HTTP client for controller communication.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for execution events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithLauncher replaces the process launcher.
func WithLauncher(l Launcher) Option {
	return func(o *options) {
		o.launcher = l
	}
}

// WithJobIDGenerator sets the generator used for requests without an id.
// The default generates random UUIDs.
func WithJobIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.newJobID = fn
	}
}
