// Package heartbeat provides the liveness service a job agent runs while a
// job is active.
//
// The service sends a Beat to the controller at a fixed interval on a
// background goroutine. The controller may answer a beat with a kill
// request, which the service forwards to a KillHandler exactly once.
//
// # Usage
//
//	sender, err := heartbeat.NewHTTPSender(httpClient, heartbeat.Endpoint{
//	    URL:     "https://controller.example.com",
//	    AuthKey: "api-key",
//	}, logger)
//	if err != nil {
//	    return err
//	}
//
//	svc := heartbeat.NewService(sender, heartbeat.Config{
//	    AgentID:  "agent-1",
//	    Interval: 10 * time.Second,
//	}, heartbeat.WithKillHandler(cancelJob))
//
//	if err := svc.Start(jobID); err != nil {
//	    return err
//	}
//	defer svc.Stop()
//
// Stop is idempotent. It stops the beat loop and sends one final beat so
// the controller can deregister the job. If that final beat times out, Stop
// returns a transient error and a later Stop retries only the final beat.
//
// # Custom Senders
//
// Implement the Sender interface to report liveness over another transport.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package heartbeat
