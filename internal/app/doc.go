// Package app binds the job agent's states to concrete stages.
//
// It owns the ExecutionContext shared by every stage of one run, the
// agent transition table and the status recorder that persists progress
// after every transition. Stages depend only on the interfaces in
// internal/ports.
package app
