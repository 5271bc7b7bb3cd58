// Package domain contains the core domain entities and value objects for the
// job agent.
//
// This package represents the innermost layer of the Clean Architecture. It
// has no dependencies on infrastructure concerns (HTTP, file system, logging)
// and contains only the job model and its rules.
//
// # Entities
//
//   - [JobRequest]: The job as submitted to the agent (command, metadata, criteria)
//   - [JobSpecification]: The resolved, executable form of a request
//   - [AgentInfo]: Identity of the agent running the job
//   - [Archive]: The collected output of a finished job
//   - [JobStatus]: The persisted progress and outcome of an execution
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
