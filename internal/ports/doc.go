// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [LivenessService]: Reports that the job is alive to the controller
//   - [SpecResolver]: Turns a job request into an executable specification
//   - [Workspace]: Creates, populates and removes job directories
//   - [FileService]: Tracks files produced in the job directory
//   - [Launcher]: Starts the job process
//   - [Archiver]: Collects job output into an archive
//   - [StatusRepository]: Persists execution status
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (file system, processes, fsnotify, etc.).
package ports
