package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/jobagent/pkg/log"
	"github.com/bft-labs/jobagent/pkg/statemachine"
)

// Service errors.
var (
	ErrAlreadyStarted = errors.New("heartbeat already started")
	ErrNoJobID        = errors.New("heartbeat requires a job id")
)

// Default service timings.
const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 5 * time.Second
)

// KillHandler is invoked once when the controller asks for the job to be
// terminated. It runs on the beat goroutine and must not call Stop.
type KillHandler func(reason string)

// Config holds the identity and timing of a Service.
type Config struct {
	AgentID  string
	Hostname string

	// Interval between beats. Defaults to DefaultInterval.
	Interval time.Duration

	// Timeout bounds each beat, including the final one. Defaults to
	// DefaultTimeout.
	Timeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKillHandler sets the handler for controller kill requests.
func WithKillHandler(h KillHandler) Option {
	return func(s *Service) {
		s.onKill = h
	}
}

// WithClock overrides the time source stamped on beats.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service periodically reports liveness for one job at a time.
type Service struct {
	sender Sender
	cfg    Config
	logger log.Logger
	onKill KillHandler
	now    func() time.Time

	mu           sync.Mutex
	started      bool
	jobID        string
	cancel       context.CancelFunc
	done         chan struct{}
	pendingFinal bool
	killOnce     *sync.Once

	seq atomic.Uint64
}

// NewService creates a stopped liveness service.
func NewService(sender Sender, cfg Config, opts ...Option) *Service {
	if sender == nil {
		sender = NoopSender{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Hostname == "" {
		cfg.Hostname, _ = os.Hostname()
	}
	s := &Service{
		sender: sender,
		cfg:    cfg,
		logger: log.NewNoopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins reporting liveness for jobID. The first beat is sent
// immediately on the background goroutine.
func (s *Service) Start(jobID string) error {
	if jobID == "" {
		return ErrNoJobID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("%w for job %s", ErrAlreadyStarted, s.jobID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.started = true
	s.pendingFinal = false
	s.jobID = jobID
	s.cancel = cancel
	s.done = make(chan struct{})
	s.killOnce = &sync.Once{}
	s.seq.Store(0)

	go s.loop(ctx, jobID, s.done, s.killOnce)

	s.logger.Info("heartbeat started",
		log.String("job_id", jobID),
		log.Duration("interval", s.cfg.Interval),
	)
	return nil
}

// Stop ends the beat loop and sends the final beat. It returns nil when the
// service was never started or is already fully stopped. A timed out final
// beat is reported as a transient error and retried by the next Stop.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.cancel()
		<-s.done
		s.started = false
		s.pendingFinal = true
		s.logger.Debug("heartbeat loop stopped", log.String("job_id", s.jobID))
	}
	if !s.pendingFinal {
		return nil
	}

	if _, err := s.send(context.Background(), s.jobID, true); err != nil {
		if !statemachine.IsTransient(err) {
			s.pendingFinal = false
		}
		return fmt.Errorf("final heartbeat for job %s: %w", s.jobID, err)
	}
	s.pendingFinal = false
	s.logger.Info("heartbeat stopped", log.String("job_id", s.jobID))
	return nil
}

// Running reports whether the beat loop is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Service) loop(ctx context.Context, jobID string, done chan struct{}, killOnce *sync.Once) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	failures := 0
	for {
		resp, err := s.send(ctx, jobID, false)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			failures++
			s.logger.Warn("heartbeat failed",
				log.String("job_id", jobID),
				log.Int("consecutive_failures", failures),
				log.Err(err),
			)
		default:
			failures = 0
			if resp.Kill {
				killOnce.Do(func() { s.kill(jobID, resp.Reason) })
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) send(ctx context.Context, jobID string, final bool) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	return s.sender.Send(ctx, Beat{
		JobID:    jobID,
		AgentID:  s.cfg.AgentID,
		Hostname: s.cfg.Hostname,
		OSArch:   runtime.GOOS + "/" + runtime.GOARCH,
		Sequence: s.seq.Add(1),
		SentAt:   s.now().UTC(),
		Final:    final,
	})
}

func (s *Service) kill(jobID, reason string) {
	s.logger.Warn("controller requested kill",
		log.String("job_id", jobID),
		log.String("reason", reason),
	)
	if s.onKill != nil {
		s.onKill(reason)
	}
}
