package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/jobagent/internal/app"
	"github.com/bft-labs/jobagent/internal/cliconfig"
	"github.com/bft-labs/jobagent/internal/domain"
	"github.com/bft-labs/jobagent/pkg/jobagent"
	agentlog "github.com/bft-labs/jobagent/pkg/log"
)

const helpDescription = `
Run a single job on this host and report it to the job controller.

Highlights:
  - Every run walks a fixed state machine; teardown runs even on failure.
  - Heartbeats keep the controller informed; a controller kill stops the job.
  - Job output can be archived as tar+zstd with a BLAKE3 checksum.
  - Configure via file, env (JOBAGENT_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  jobagent exec --request job.yaml
  jobagent exec --request job.yaml --controller-url https://controller:8443 --auth-key <key>
  jobagent states
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	exitCode := 0

	log := cliconfig.Logger()

	// loadConfig resolves file, env and flags in that order of increasing
	// precedence.
	loadConfig := func(cmd *cobra.Command) error {
		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}

		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		if cfgFile != "" && cliconfig.FileExists(cfgFile) {
			fc, err := cliconfig.LoadFileConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
				return err
			}
		}

		if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
			return fmt.Errorf("apply env config: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		log = cliconfig.NewLogger(os.Stderr, cfg.LogLevel)
		return nil
	}

	root := &cobra.Command{
		Use:           "jobagent",
		Short:         "Run a job on this host under controller supervision",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var requestPath string
	execCmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute one job request and exit with its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				exitCode = 2
				return err
			}
			if requestPath == "" {
				exitCode = 2
				return fmt.Errorf("%w: --request is required", domain.ErrInvalidRequest)
			}

			req, err := jobagent.LoadRequest(requestPath)
			if err != nil {
				exitCode = 2
				return fmt.Errorf("load request: %w", err)
			}

			// Log configuration (masking API key)
			logCfg := cfg
			if len(logCfg.AuthKey) > 0 {
				logCfg.AuthKey = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			agent, err := jobagent.New(libConfig(cfg),
				jobagent.WithLogger(agentlog.NewZerologAdapterWithLogger(log)),
			)
			if err != nil {
				exitCode = 2
				return fmt.Errorf("create agent: %w", err)
			}

			ctx, cancel := context.WithCancelCause(context.Background())
			defer cancel(nil)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case sig := <-sigCh:
					log.Info().Str("signal", sig.String()).Msg("received signal, cancelling job...")
					cancel(fmt.Errorf("received %s", sig))
				case <-ctx.Done():
				}
			}()

			status := agent.Run(ctx, req)
			exitCode = status.ExitCode

			ev := log.Info()
			if status.ExitCode != 0 {
				ev = log.Error()
			}
			ev.Str("job_id", status.JobID).
				Str("state", status.State).
				Str("reason", status.Reason).
				Bool("degraded", status.Degraded).
				Int("exit_code", status.ExitCode).
				Str("error", status.Error).
				Msg("job complete")
			return nil
		},
	}
	execCmd.Flags().StringVarP(&requestPath, "request", "r", "", "path to the job request file (YAML or JSON)")

	statesCmd := &cobra.Command{
		Use:   "states",
		Short: "Print the agent transition table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				exitCode = 2
				return err
			}
			return printStates(cmd.OutOrStdout(), cfg.StageRetries)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.jobagent/config.toml)")
	pf.StringVar(&cfg.ControllerURL, "controller-url", cfg.ControllerURL, "controller base URL (empty runs standalone)")
	pf.StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "API key for controller authentication")
	pf.StringVar(&cfg.AgentID, "agent-id", cfg.AgentID, "agent identifier (defaults to hostname)")
	pf.StringVar(&cfg.RunDir, "run-dir", cfg.RunDir, "directory holding one execution directory per job")
	pf.StringVar(&cfg.ArchiveDir, "archive-dir", cfg.ArchiveDir, "directory receiving job archives (defaults to <run-dir>/archives)")
	pf.DurationVar(&cfg.HeartbeatInterval, "heartbeat-interval", cfg.HeartbeatInterval, "interval between heartbeats")
	pf.DurationVar(&cfg.HeartbeatTimeout, "heartbeat-timeout", cfg.HeartbeatTimeout, "timeout of a single heartbeat")
	pf.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "HTTP client timeout")
	pf.IntVar(&cfg.StageRetries, "retries", cfg.StageRetries, "retry budget of retryable states")
	pf.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "initial retry backoff")
	pf.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "maximum retry backoff")
	pf.DurationVar(&cfg.TeardownTimeout, "teardown-timeout", cfg.TeardownTimeout, "timeout of each teardown stage")
	pf.StringVar(&cfg.Cleanup, "cleanup", cfg.Cleanup, "default cleanup policy: none or all")
	pf.DurationVar(&cfg.JobTimeout, "job-timeout", cfg.JobTimeout, "default job timeout (0 disables)")
	pf.BoolVar(&cfg.Archive, "archive", cfg.Archive, "archive the job directory by default")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	if err := pf.MarkHidden("teardown-timeout"); err != nil {
		log.Info().Err(err).Msg("failed to hide teardown-timeout flag")
	}

	root.AddCommand(execCmd, statesCmd)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("jobagent")
		if exitCode == 0 {
			exitCode = 2
		}
	}
	os.Exit(exitCode)
}

// libConfig converts the CLI configuration into the library configuration.
func libConfig(cfg cliconfig.Config) jobagent.Config {
	retries := cfg.StageRetries
	if retries == 0 {
		retries = jobagent.NoRetries
	}
	return jobagent.Config{
		ControllerURL:     cfg.ControllerURL,
		AuthKey:           cfg.AuthKey,
		AgentID:           cfg.AgentID,
		RunDir:            cfg.RunDir,
		ArchiveDir:        cfg.ArchiveDir,
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
		HTTPTimeout:       cfg.HTTPTimeout,
		StageRetries:      retries,
		BackoffInitial:    cfg.BackoffInitial,
		BackoffMax:        cfg.BackoffMax,
		TeardownTimeout:   cfg.TeardownTimeout,
		Cleanup:           domain.CleanupPolicy(cfg.Cleanup),
		JobTimeout:        cfg.JobTimeout,
		Archive:           cfg.Archive,
	}
}

// printStates writes the transition table, one state per line in normal
// path order.
func printStates(w io.Writer, retries int) error {
	table, err := app.AgentTable(retries)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tNEXT\tON FAILURE\tRETRIES\tTEARDOWN")
	for _, s := range table.Path(app.InitialState) {
		tr, ok := table.Lookup(s)
		if !ok {
			continue
		}
		onFailure := "-"
		if !tr.Teardown {
			onFailure = tr.OnFailure.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%v\n", s, tr.Next, onFailure, tr.Retries, tr.Teardown)
	}
	return tw.Flush()
}
