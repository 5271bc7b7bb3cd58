// Package log provides a logging abstraction for jobagent components.
//
// This package defines a Logger interface that can be implemented by
// any logging library. Default implementations are provided for zerolog
// and a no-op logger for testing.
//
// # Usage
//
// Use the provided zerolog adapter:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Bind fields that should appear on every entry, such as the job ID:
//
//	jobLog := logger.With(log.String("job_id", id))
//
// Or use the no-op logger for testing:
//
//	logger := log.NewNoopLogger()
package log
