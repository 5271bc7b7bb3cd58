// Package jobagent provides an embeddable job execution agent.
//
// An Agent runs one job request at a time through a fixed state machine:
// it registers a heartbeat with the controller, resolves the request into a
// specification, prepares a job directory, launches and monitors the job
// process, archives its output and tears everything down again. Teardown
// runs on every path, including failures and cancellation.
//
// # Basic Usage
//
//	agent, err := jobagent.New(jobagent.Config{
//	    ControllerURL: "https://controller.example.com",
//	    AuthKey:       "your-api-key",
//	    RunDir:        "/var/lib/jobagent/runs",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	req, err := jobagent.LoadRequest("job.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	status := agent.Run(ctx, req)
//	os.Exit(status.ExitCode)
//
// Without a ControllerURL the agent runs standalone: heartbeats are dropped
// and requests are resolved from the request file and Config alone.
//
// # Status
//
// The status of every execution is written to status.json in
// RunDir/<job id> after each transition, and the final status is returned
// by [Agent.Run]. The exit code follows the job result: 0 success, 1 job
// failure, 2 agent failure, 3 cancelled.
//
// # Event Handling
//
// Implement [EventHandler] and pass it via [WithEventHandler] to observe
// transitions and stage attempts. Handlers are called synchronously from
// the engine goroutine.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package jobagent
