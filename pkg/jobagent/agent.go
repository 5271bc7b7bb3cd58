package jobagent

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/bft-labs/jobagent/internal/adapters/files"
	"github.com/bft-labs/jobagent/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/jobagent/internal/adapters/http"
	"github.com/bft-labs/jobagent/internal/adapters/process"
	"github.com/bft-labs/jobagent/internal/adapters/resolver"
	"github.com/bft-labs/jobagent/internal/app"
	"github.com/bft-labs/jobagent/internal/domain"
	"github.com/bft-labs/jobagent/internal/ports"
	"github.com/bft-labs/jobagent/pkg/heartbeat"
	"github.com/bft-labs/jobagent/pkg/log"
	"github.com/bft-labs/jobagent/pkg/statemachine"
)

// Re-exported domain types.
type (
	// JobRequest is a job as submitted to the agent.
	JobRequest = domain.JobRequest

	// JobStatus is the persisted status of one execution.
	JobStatus = domain.JobStatus

	// CleanupPolicy selects what CLEANUP removes.
	CleanupPolicy = domain.CleanupPolicy

	// Attachment is a base64 encoded file written into the work directory.
	Attachment = domain.Attachment
)

// Cleanup policies.
const (
	CleanupNone = domain.CleanupNone
	CleanupAll  = domain.CleanupAll
)

// Sentinel errors callers can match with errors.Is.
var (
	ErrInvalidRequest = domain.ErrInvalidRequest
	ErrInvalidConfig  = domain.ErrInvalidConfig
	ErrKilled         = domain.ErrKilled
	ErrCancelled      = statemachine.ErrCancelled
	ErrJobFailed      = statemachine.ErrJobFailed
)

// LoadRequest reads a YAML or JSON job request file.
func LoadRequest(path string) (JobRequest, error) {
	return fs.LoadRequest(path)
}

// ParseRequest parses a YAML or JSON job request.
func ParseRequest(data []byte) (JobRequest, error) {
	return fs.ParseRequest(data)
}

// Agent executes job requests. An Agent may run several requests
// concurrently; each run gets its own services and execution context.
type Agent struct {
	config   Config
	opts     options
	table    *statemachine.Table
	sender   heartbeat.Sender
	resolver ports.SpecResolver
	hostname string
}

// New creates an Agent with the given configuration.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Agent, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := options{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     log.NewNoopLogger(),
		newJobID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.launcher == nil {
		o.launcher = process.NewLauncher(o.logger)
	}

	host := hostname()
	if cfg.AgentID == "" {
		cfg.AgentID = host
	}

	table, err := app.AgentTable(max(cfg.StageRetries, 0))
	if err != nil {
		return nil, fmt.Errorf("build transition table: %w", err)
	}

	a := &Agent{
		config:   cfg,
		opts:     o,
		table:    table,
		sender:   heartbeat.NoopSender{},
		hostname: host,
	}
	if cfg.ControllerURL != "" {
		s, err := heartbeat.NewHTTPSender(o.httpClient, heartbeat.Endpoint{
			URL:     cfg.ControllerURL,
			AuthKey: cfg.AuthKey,
		}, o.logger)
		if err != nil {
			return nil, err
		}
		a.sender = s
	}
	a.resolver = a.newResolver()
	return a, nil
}

// Config returns the effective configuration after defaults.
func (a *Agent) Config() Config {
	return a.config
}

// Table returns the transition table every run follows.
func (a *Agent) Table() *statemachine.Table {
	return a.table
}

// Run executes req to completion and returns its final status. Run always
// converges: errors are reported through the status, never returned.
// Cancelling ctx terminates the job and runs teardown before Run returns.
func (a *Agent) Run(ctx context.Context, req JobRequest) JobStatus {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	c := app.NewExecutionContext(req)
	logger := a.opts.logger

	liveness := heartbeat.NewService(a.sender, heartbeat.Config{
		AgentID:  a.config.AgentID,
		Hostname: a.hostname,
		Interval: a.config.HeartbeatInterval,
		Timeout:  a.config.HeartbeatTimeout,
	},
		heartbeat.WithLogger(logger),
		heartbeat.WithKillHandler(func(reason string) {
			logger.Warn("controller requested job termination",
				log.String("job_id", c.JobID),
				log.String("reason", reason),
			)
			cancel(fmt.Errorf("%w: %s", domain.ErrKilled, reason))
		}),
	)

	stages := app.Stages(app.Dependencies{
		Liveness:  liveness,
		Resolver:  a.resolver,
		Workspace: fs.NewWorkspace(),
		Files:     files.NewTracker(logger),
		Launcher:  a.opts.launcher,
		Archiver:  fs.NewArchiver(),
		Logger:    logger,
	}, app.Settings{
		AgentID:    a.config.AgentID,
		Hostname:   a.hostname,
		Version:    Version,
		RunDir:     a.config.RunDir,
		ArchiveDir: a.config.ArchiveDir,
		BaseEnv:    os.Environ(),
		NewJobID:   a.opts.newJobID,
	})

	var forward statemachine.EventEmitter
	if a.opts.eventHandler != nil {
		forward = &eventEmitterWrapper{
			handler: a.opts.eventHandler,
			jobID:   func() string { return c.JobID },
		}
	}
	rec := app.NewRecorder(c, func(dir string) ports.StatusRepository {
		return fs.NewStatusFileRepository(dir)
	}, logger, forward)

	engine, err := statemachine.NewEngine(a.table, stages,
		statemachine.WithLogger[*app.ExecutionContext](logger),
		statemachine.WithEventEmitter[*app.ExecutionContext](rec),
		statemachine.WithBackoff[*app.ExecutionContext](a.config.BackoffInitial, a.config.BackoffMax),
		statemachine.WithTeardownTimeout[*app.ExecutionContext](a.config.TeardownTimeout),
		statemachine.WithJobResult(app.JobResult),
	)
	if err != nil {
		return rec.Finish(statemachine.FinalStatus{
			State:  statemachine.StateFailed,
			Reason: statemachine.ReasonInternalFailure,
			Err:    fmt.Errorf("build engine: %w", err),
		})
	}

	final := engine.Run(runCtx, app.InitialState, c)
	status := rec.Finish(final)

	logger.Info("job finished",
		log.String("job_id", status.JobID),
		log.String("state", status.State),
		log.String("reason", status.Reason),
		log.Int("exit_code", status.ExitCode),
		log.Bool("degraded", status.Degraded),
	)
	return status
}

func (a *Agent) newResolver() ports.SpecResolver {
	local := resolver.NewLocal(resolver.Defaults{
		Timeout: a.config.JobTimeout,
		Archive: a.config.Archive,
		Cleanup: a.config.Cleanup,
		Env:     a.config.Env,
	})
	if a.config.ControllerURL == "" {
		return local
	}
	return httpAdapter.NewSpecResolver(a.opts.httpClient, local, a.config.ControllerURL, a.config.AuthKey, a.opts.logger)
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
