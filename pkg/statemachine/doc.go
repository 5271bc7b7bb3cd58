// Package statemachine drives a single job execution through an ordered
// graph of states.
//
// A [Table] declares, for every non-terminal [State], the success successor,
// the failure successor, a retry budget and whether the state is a teardown
// state. An [Engine] binds one [Stage] to each state and runs them one at a
// time on the caller's goroutine until [StateDone] or [StateFailed] is
// reached.
//
// # Outcomes
//
// A stage reports [Success], [Retryable] or [Fatal]. Retryable outcomes are
// re-attempted up to the state's budget with exponential backoff; once the
// budget is spent the outcome is escalated to fatal.
//
// # Cleanup
//
// A stage that starts a long-lived service registers a [CleanupAction]
// naming the teardown state that stops it. When a later stage fails, the
// engine runs every pending action in reverse registration order before
// following the failure edge. Teardown failures are logged and collected in
// [FinalStatus.TeardownErrors]; they never stop the remaining teardown.
// On the normal path, visiting a teardown state consumes its pending action,
// so each started service is stopped exactly once.
//
// [StopServiceStage] is the shared implementation for every teardown state
// whose job is to call Stop on a service.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package statemachine
