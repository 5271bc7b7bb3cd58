package app

import "github.com/bft-labs/jobagent/pkg/statemachine"

// DefaultRetries is the retry budget of states that talk to the
// controller or stop services.
const DefaultRetries = 3

// InitialState is where every agent execution starts.
const InitialState = statemachine.StateInitialize

// AgentTable returns the transition table of the job agent. retries is the
// budget of the states whose failures are usually transient; launching and
// monitoring the job are never retried.
func AgentTable(retries int) (*statemachine.Table, error) {
	return statemachine.NewTable(map[statemachine.State]statemachine.Transition{
		statemachine.StateInitialize:            {Next: statemachine.StateStartHeartbeatService, OnFailure: statemachine.StateFailed},
		statemachine.StateStartHeartbeatService: {Next: statemachine.StateResolveSpecification, OnFailure: statemachine.StateFailed, Retries: retries},
		statemachine.StateResolveSpecification:  {Next: statemachine.StateCreateJobDirectory, OnFailure: statemachine.StateFailed, Retries: retries},
		statemachine.StateCreateJobDirectory:    {Next: statemachine.StateStartFilesService, OnFailure: statemachine.StateFailed},
		statemachine.StateStartFilesService:     {Next: statemachine.StateLaunchJob, OnFailure: statemachine.StateFailed},
		statemachine.StateLaunchJob:             {Next: statemachine.StateMonitorJob, OnFailure: statemachine.StateFailed},
		statemachine.StateMonitorJob:            {Next: statemachine.StateCollectArchive, OnFailure: statemachine.StateFailed},
		statemachine.StateCollectArchive:        {Next: statemachine.StateStopFilesService, OnFailure: statemachine.StateFailed},
		statemachine.StateStopFilesService:      {Next: statemachine.StateCleanup, Retries: retries, Teardown: true},
		statemachine.StateCleanup:               {Next: statemachine.StateStopHeartbeatService, Retries: retries, Teardown: true},
		statemachine.StateStopHeartbeatService:  {Next: statemachine.StateDone, Retries: retries, Teardown: true},
	})
}
