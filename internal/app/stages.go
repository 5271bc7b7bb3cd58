package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bft-labs/jobagent/internal/domain"
	"github.com/bft-labs/jobagent/internal/ports"
	"github.com/bft-labs/jobagent/pkg/log"
	"github.com/bft-labs/jobagent/pkg/statemachine"
	"github.com/bft-labs/jobagent/pkg/workflow"
)

// Service names used in cleanup actions and logs.
const (
	ServiceHeartbeat    = "heartbeat"
	ServiceFiles        = "files"
	ServiceJobDirectory = "job-directory"
)

// DefaultKillWait bounds how long MONITOR_JOB and CLEANUP wait for a killed
// process to be reaped.
const DefaultKillWait = 10 * time.Second

// Dependencies are the collaborators the stages drive.
type Dependencies struct {
	Liveness  ports.LivenessService
	Resolver  ports.SpecResolver
	Workspace ports.Workspace
	Files     ports.FileService
	Launcher  ports.Launcher
	Archiver  ports.Archiver
	Logger    log.Logger
}

// Settings are the agent-wide values the stages need.
type Settings struct {
	AgentID    string
	Hostname   string
	Version    string
	RunDir     string
	ArchiveDir string

	// BaseEnv is the environment the job process inherits before the job
	// env file is sourced.
	BaseEnv []string

	// NewJobID generates an id for requests that carry none.
	NewJobID func() string

	KillWait time.Duration
	Now      func() time.Time
}

// Stages builds one stage per non-terminal state of AgentTable.
func Stages(deps Dependencies, settings Settings) []statemachine.Stage[*ExecutionContext] {
	if deps.Logger == nil {
		deps.Logger = log.NewNoopLogger()
	}
	if settings.KillWait <= 0 {
		settings.KillWait = DefaultKillWait
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.Hostname == "" {
		settings.Hostname, _ = os.Hostname()
	}

	s := &stages{deps: deps, settings: settings, workflows: workflow.NewExecutor[*ExecutionContext](deps.Logger)}
	return []statemachine.Stage[*ExecutionContext]{
		statemachine.NewStage(statemachine.StateInitialize, s.initialize),
		statemachine.NewStage(statemachine.StateStartHeartbeatService, s.startHeartbeat),
		statemachine.NewStage(statemachine.StateResolveSpecification, s.resolve),
		statemachine.NewStage(statemachine.StateCreateJobDirectory, s.createJobDirectory),
		statemachine.NewStage(statemachine.StateStartFilesService, s.startFiles),
		statemachine.NewStage(statemachine.StateLaunchJob, s.launch),
		statemachine.NewStage(statemachine.StateMonitorJob, s.monitor),
		statemachine.NewStage(statemachine.StateCollectArchive, s.collectArchive),
		statemachine.NewStopServiceStage[*ExecutionContext](statemachine.StateStopFilesService, ServiceFiles, deps.Files),
		statemachine.NewStage(statemachine.StateCleanup, s.cleanup),
		statemachine.NewStopServiceStage[*ExecutionContext](statemachine.StateStopHeartbeatService, ServiceHeartbeat, deps.Liveness),
	}
}

type stages struct {
	deps      Dependencies
	settings  Settings
	workflows *workflow.Executor[*ExecutionContext]
}

func (s *stages) initialize(_ context.Context, c *ExecutionContext, _ statemachine.CleanupRegistry) statemachine.Outcome {
	c.Request.Normalize()
	if err := c.Request.Validate(); err != nil {
		return statemachine.Fatal(err)
	}

	c.JobID = c.Request.ID
	if c.JobID == "" {
		if s.settings.NewJobID == nil {
			return statemachine.Fatal(fmt.Errorf("%w: request has no id", domain.ErrInvalidRequest))
		}
		c.JobID = s.settings.NewJobID()
	}
	if err := domain.ValidateJobID(c.JobID); err != nil {
		return statemachine.Fatal(err)
	}

	c.Agent = domain.AgentInfo{
		ID:       s.settings.AgentID,
		Hostname: s.settings.Hostname,
		OSArch:   runtime.GOOS + "/" + runtime.GOARCH,
		Version:  s.settings.Version,
	}
	c.ExecDir = filepath.Join(s.settings.RunDir, c.JobID)
	c.JobDir = filepath.Join(c.ExecDir, "job")
	c.StartedAt = s.settings.Now()

	s.deps.Logger.Info("job accepted",
		log.String("job_id", c.JobID),
		log.String("name", c.Request.Metadata.Name),
		log.String("user", c.Request.Metadata.User),
	)
	return statemachine.Success()
}

func (s *stages) startHeartbeat(_ context.Context, c *ExecutionContext, cleanups statemachine.CleanupRegistry) statemachine.Outcome {
	if err := s.deps.Liveness.Start(c.JobID); err != nil {
		return statemachine.FromError(fmt.Errorf("start heartbeat: %w", err))
	}
	cleanups.Register(statemachine.CleanupAction{Service: ServiceHeartbeat, Teardown: statemachine.StateStopHeartbeatService})
	return statemachine.Success()
}

func (s *stages) resolve(ctx context.Context, c *ExecutionContext, _ statemachine.CleanupRegistry) statemachine.Outcome {
	spec, err := s.deps.Resolver.Resolve(ctx, c.JobID, c.Request)
	if err != nil {
		return statemachine.FromError(fmt.Errorf("resolve specification: %w", err))
	}
	if len(spec.Command) == 0 {
		return statemachine.Fatal(fmt.Errorf("%w: resolved specification has no command", domain.ErrInvalidRequest))
	}
	c.Spec = spec
	return statemachine.Success()
}

// createJobDirectory registers the directory for cleanup before creating
// it, so a partially populated directory is removed too.
func (s *stages) createJobDirectory(ctx context.Context, c *ExecutionContext, cleanups statemachine.CleanupRegistry) statemachine.Outcome {
	cleanups.Register(statemachine.CleanupAction{Service: ServiceJobDirectory, Teardown: statemachine.StateCleanup})

	tasks := []workflow.Task[*ExecutionContext]{
		workflow.NewTask("create job directory", func(ctx context.Context, c *ExecutionContext) error {
			return s.deps.Workspace.Create(ctx, c.JobDir)
		}),
		workflow.NewTask("write environment file", func(ctx context.Context, c *ExecutionContext) error {
			path, err := s.deps.Workspace.WriteEnvFile(ctx, c.JobDir, c.Spec.Env)
			c.EnvFile = path
			return err
		}),
		workflow.NewTask("write setup script", func(ctx context.Context, c *ExecutionContext) error {
			path, err := s.deps.Workspace.WriteSetupScript(ctx, c.JobDir, c.Spec)
			c.SetupScript = path
			return err
		}),
		workflow.NewTask("write attachments", func(ctx context.Context, c *ExecutionContext) error {
			paths, err := s.deps.Workspace.WriteAttachments(ctx, c.JobDir, c.Spec.Attachments)
			c.Attachments = paths
			return err
		}),
	}
	if err := s.workflows.Run(ctx, tasks, c); err != nil {
		return statemachine.Fatal(err)
	}
	return statemachine.Success()
}

func (s *stages) startFiles(ctx context.Context, c *ExecutionContext, cleanups statemachine.CleanupRegistry) statemachine.Outcome {
	if err := s.deps.Files.Start(ctx, c.JobDir); err != nil {
		return statemachine.FromError(fmt.Errorf("start file tracker: %w", err))
	}
	cleanups.Register(statemachine.CleanupAction{Service: ServiceFiles, Teardown: statemachine.StateStopFilesService})
	return statemachine.Success()
}

func (s *stages) launch(ctx context.Context, c *ExecutionContext, _ statemachine.CleanupRegistry) statemachine.Outcome {
	proc, err := s.deps.Launcher.Launch(ctx, ports.LaunchSpec{
		Command: []string{"/bin/sh", c.SetupScript},
		Env:     s.settings.BaseEnv,
		Dir:     filepath.Join(c.JobDir, domain.WorkDirName),
		Stdout:  filepath.Join(c.JobDir, domain.StdoutFileName),
		Stderr:  filepath.Join(c.JobDir, domain.StderrFileName),
	})
	if err != nil {
		return statemachine.Fatal(fmt.Errorf("launch job: %w", err))
	}
	c.Process = proc
	return statemachine.Success()
}

// monitor waits for the job process. A non-zero exit is recorded on the
// context and judged once the execution reaches DONE; cancellation and the
// job timeout kill the process group.
func (s *stages) monitor(ctx context.Context, c *ExecutionContext, _ statemachine.CleanupRegistry) statemachine.Outcome {
	proc := c.Process
	if proc == nil {
		return statemachine.Fatal(errors.New("no job process to monitor"))
	}

	var timeout <-chan time.Time
	if c.Spec.Timeout > 0 {
		timer := time.NewTimer(c.Spec.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-proc.Done():
		if err := proc.Err(); err != nil {
			return statemachine.Fatal(fmt.Errorf("wait for job: %w", err))
		}
		code := proc.ExitCode()
		c.ExitCode = &code
		s.deps.Logger.Info("job process exited",
			log.String("job_id", c.JobID),
			log.Int("pid", proc.PID()),
			log.Int("exit_code", code),
		)
		return statemachine.Success()

	case <-ctx.Done():
		s.kill(c, "cancelled")
		return statemachine.Fatal(fmt.Errorf("%w: %w", statemachine.ErrCancelled, context.Cause(ctx)))

	case <-timeout:
		s.kill(c, "timeout")
		return statemachine.Fatal(fmt.Errorf("%w: %w after %s", statemachine.ErrCancelled, domain.ErrJobTimeout, c.Spec.Timeout))
	}
}

func (s *stages) collectArchive(ctx context.Context, c *ExecutionContext, _ statemachine.CleanupRegistry) statemachine.Outcome {
	c.Files = s.deps.Files.Files()
	if !c.Spec.Archive {
		s.deps.Logger.Debug("archiving disabled", log.String("job_id", c.JobID))
		return statemachine.Success()
	}

	archive := &domain.Archive{Path: filepath.Join(s.settings.ArchiveDir, c.JobID+".tar.zst")}
	tasks := []workflow.Task[*ExecutionContext]{
		workflow.NewTask("build manifest", func(ctx context.Context, c *ExecutionContext) error {
			entries, err := s.deps.Archiver.Manifest(ctx, c.JobDir)
			archive.Manifest = entries
			return err
		}),
		workflow.NewTask("write archive", func(ctx context.Context, c *ExecutionContext) error {
			size, err := s.deps.Archiver.Write(ctx, c.JobDir, archive.Manifest, archive.Path)
			archive.Size = size
			return err
		}),
		workflow.NewTask("write checksum", func(ctx context.Context, c *ExecutionContext) error {
			sum, path, err := s.deps.Archiver.Checksum(ctx, archive.Path)
			archive.Checksum, archive.ChecksumPath = sum, path
			return err
		}),
	}
	if err := s.workflows.Run(ctx, tasks, c); err != nil {
		return statemachine.Fatal(err)
	}

	c.Archive = archive
	s.deps.Logger.Info("job archived",
		log.String("job_id", c.JobID),
		log.String("path", archive.Path),
		log.Int("files", len(archive.Manifest)),
		log.Int64("bytes", archive.Size),
	)
	return statemachine.Success()
}

// cleanup kills a job process that is still running, then removes the job
// directory when the cleanup policy asks for it. It is safe to repeat.
func (s *stages) cleanup(ctx context.Context, c *ExecutionContext, _ statemachine.CleanupRegistry) statemachine.Outcome {
	if c.Process != nil {
		select {
		case <-c.Process.Done():
		default:
			s.kill(c, "cleanup")
		}
	}

	if c.Spec.Cleanup != domain.CleanupAll || c.JobDir == "" {
		s.deps.Logger.Debug("keeping job directory", log.String("dir", c.JobDir))
		return statemachine.Success()
	}
	if err := s.deps.Workspace.Remove(ctx, c.JobDir); err != nil {
		return statemachine.Fatal(err)
	}
	s.deps.Logger.Info("job directory removed", log.String("dir", c.JobDir))
	return statemachine.Success()
}

// kill terminates the job process group and waits a bounded time for it to
// be reaped.
func (s *stages) kill(c *ExecutionContext, reason string) {
	proc := c.Process
	s.deps.Logger.Warn("killing job process",
		log.String("job_id", c.JobID),
		log.Int("pid", proc.PID()),
		log.String("reason", reason),
	)
	if err := proc.Kill(); err != nil {
		s.deps.Logger.Error("kill failed", log.Int("pid", proc.PID()), log.Err(err))
		return
	}

	timer := time.NewTimer(s.settings.KillWait)
	defer timer.Stop()
	select {
	case <-proc.Done():
	case <-timer.C:
		s.deps.Logger.Error("job process not reaped after kill",
			log.Int("pid", proc.PID()),
			log.Duration("waited", s.settings.KillWait),
		)
	}
}

// JobResult reports a job failure when the job process exited non-zero.
func JobResult(c *ExecutionContext) error {
	if c.ExitCode != nil && *c.ExitCode != 0 {
		return fmt.Errorf("%w: exit code %d", statemachine.ErrJobFailed, *c.ExitCode)
	}
	return nil
}
