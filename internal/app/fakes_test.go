package app

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/jobagent/internal/domain"
	"github.com/bft-labs/jobagent/internal/ports"
)

// journal records calls across fakes so tests can assert ordering.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

func (j *journal) count(s string) int {
	n := 0
	for _, c := range j.list() {
		if c == s {
			n++
		}
	}
	return n
}

type fakeLiveness struct {
	j        *journal
	started  bool
	startErr error
}

func (f *fakeLiveness) Start(jobID string) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	f.j.add("heartbeat.start")
	return nil
}

func (f *fakeLiveness) Stop() error {
	if f.started {
		f.started = false
		f.j.add("heartbeat.stop")
	}
	return nil
}

type fakeResolver struct {
	errs []error
	n    int
}

func (f *fakeResolver) Resolve(_ context.Context, jobID string, req domain.JobRequest) (domain.JobSpecification, error) {
	f.n++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return domain.JobSpecification{}, err
	}
	return domain.JobSpecification{
		JobID:   jobID,
		Command: req.CommandArgs,
		Env:     req.AgentConfig.Env,
		Timeout: req.AgentConfig.Timeout,
		Archive: req.AgentConfig.Archive != nil && *req.AgentConfig.Archive,
		Cleanup: req.AgentConfig.Cleanup,

		Attachments: req.Attachments,
	}, nil
}

type fakeWorkspace struct {
	j         *journal
	envErr    error
	removeErr error
}

func (f *fakeWorkspace) Create(_ context.Context, dir string) error {
	f.j.add("workspace.create")
	return nil
}

func (f *fakeWorkspace) WriteEnvFile(_ context.Context, dir string, _ map[string]string) (string, error) {
	if f.envErr != nil {
		return "", f.envErr
	}
	f.j.add("workspace.env")
	return dir + "/" + domain.EnvFileName, nil
}

func (f *fakeWorkspace) WriteSetupScript(_ context.Context, dir string, _ domain.JobSpecification) (string, error) {
	f.j.add("workspace.script")
	return dir + "/" + domain.SetupScriptName, nil
}

func (f *fakeWorkspace) WriteAttachments(_ context.Context, dir string, attachments []domain.Attachment) ([]string, error) {
	f.j.add("workspace.attachments")
	paths := make([]string, len(attachments))
	for i, a := range attachments {
		paths[i] = dir + "/" + domain.WorkDirName + "/" + a.Name
	}
	return paths, nil
}

func (f *fakeWorkspace) Remove(_ context.Context, dir string) error {
	f.j.add("workspace.remove")
	return f.removeErr
}

type fakeFiles struct {
	j       *journal
	started bool
}

func (f *fakeFiles) Start(_ context.Context, dir string) error {
	f.started = true
	f.j.add("files.start")
	return nil
}

func (f *fakeFiles) Stop() error {
	if f.started {
		f.started = false
		f.j.add("files.stop")
	}
	return nil
}

func (f *fakeFiles) Files() []ports.TrackedFile {
	return []ports.TrackedFile{{Path: "stdout.log", Size: 3}}
}

// fakeProcess exits when exit is closed or when killed.
type fakeProcess struct {
	j    *journal
	once sync.Once
	done chan struct{}
	code int
}

func newFakeProcess(j *journal) *fakeProcess {
	return &fakeProcess{j: j, done: make(chan struct{})}
}

func (p *fakeProcess) exit(code int) {
	p.once.Do(func() {
		p.code = code
		close(p.done)
	})
}

func (p *fakeProcess) PID() int              { return 4242 }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) ExitCode() int         { return p.code }
func (p *fakeProcess) Err() error            { return nil }

func (p *fakeProcess) Kill() error {
	p.j.add("process.kill")
	p.exit(137)
	return nil
}

type fakeLauncher struct {
	j    *journal
	proc *fakeProcess
	err  error
	spec ports.LaunchSpec
}

func (f *fakeLauncher) Launch(_ context.Context, spec ports.LaunchSpec) (ports.Process, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.spec = spec
	f.j.add("launch")
	return f.proc, nil
}

type fakeArchiver struct {
	j        *journal
	writeErr error
}

func (f *fakeArchiver) Manifest(context.Context, string) ([]domain.ManifestEntry, error) {
	f.j.add("archive.manifest")
	return []domain.ManifestEntry{{Path: "stdout.log", Size: 3}}, nil
}

func (f *fakeArchiver) Write(_ context.Context, _ string, _ []domain.ManifestEntry, dest string) (int64, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.j.add("archive.write")
	return 99, nil
}

func (f *fakeArchiver) Checksum(_ context.Context, path string) (string, string, error) {
	f.j.add("archive.checksum")
	return "abc123", path + ".b3", nil
}

type memoryStatusRepo struct {
	mu    sync.Mutex
	saves []domain.JobStatus
}

func (m *memoryStatusRepo) Load(context.Context) (domain.JobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saves) == 0 {
		return domain.JobStatus{}, nil
	}
	return m.saves[len(m.saves)-1], nil
}

func (m *memoryStatusRepo) Save(_ context.Context, s domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, s)
	return nil
}

var errBoom = errors.New("boom")
