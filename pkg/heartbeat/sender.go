package heartbeat

import (
	"context"
	"net/http"
)

// Sender delivers beats to the controller.
type Sender interface {
	// Send transmits one beat and returns the controller's response.
	// Errors worth retrying are wrapped with statemachine.Transient.
	Send(ctx context.Context, beat Beat) (Response, error)
}

// HTTPClient abstracts HTTP request execution for testing and custom transports.
// The standard *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// NoopSender accepts every beat and never requests a kill. It is used when
// no controller is configured.
type NoopSender struct{}

// Send implements Sender.
func (NoopSender) Send(context.Context, Beat) (Response, error) { return Response{}, nil }
