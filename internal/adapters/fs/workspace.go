package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bft-labs/jobagent/internal/domain"
)

// Workspace implements ports.Workspace on the local file system.
type Workspace struct{}

// NewWorkspace creates a new Workspace.
func NewWorkspace() *Workspace {
	return &Workspace{}
}

// Create creates dir and its work directory.
func (w *Workspace) Create(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, domain.WorkDirName), 0o755); err != nil {
		return fmt.Errorf("create job directory: %w", err)
	}
	return nil
}

// WriteEnvFile writes env as a sourceable shell file. Keys are sorted so
// the file is stable across runs. Names that are not shell identifiers are
// rejected before anything is written.
func (w *Workspace) WriteEnvFile(ctx context.Context, dir string, env map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := domain.ValidateEnv(env); err != nil {
		return "", err
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s=%s\n", k, shellQuote(env[k]))
	}

	path := filepath.Join(dir, domain.EnvFileName)
	if err := writeFileAtomic(path, []byte(b.String()), 0o600); err != nil {
		return "", fmt.Errorf("write env file: %w", err)
	}
	return path, nil
}

// WriteSetupScript writes a script that loads the env file, enters the work
// directory and execs the job command.
func (w *Workspace) WriteSetupScript(ctx context.Context, dir string, spec domain.JobSpecification) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(spec.Command) == 0 {
		return "", fmt.Errorf("%w: no command", domain.ErrInvalidRequest)
	}

	args := make([]string, len(spec.Command))
	for i, a := range spec.Command {
		args[i] = shellQuote(a)
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("set -e\n")
	fmt.Fprintf(&b, ". %s\n", shellQuote(filepath.Join(dir, domain.EnvFileName)))
	fmt.Fprintf(&b, "cd %s\n", shellQuote(filepath.Join(dir, domain.WorkDirName)))
	fmt.Fprintf(&b, "exec %s\n", strings.Join(args, " "))

	path := filepath.Join(dir, domain.SetupScriptName)
	if err := writeFileAtomic(path, []byte(b.String()), 0o755); err != nil {
		return "", fmt.Errorf("write setup script: %w", err)
	}
	return path, nil
}

// WriteAttachments writes each attachment into the work directory of dir.
// Names must be plain file names.
func (w *Workspace) WriteAttachments(ctx context.Context, dir string, attachments []domain.Attachment) ([]string, error) {
	if err := domain.ValidateAttachments(attachments); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(attachments))
	for _, a := range attachments {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		data, err := a.Decode()
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, domain.WorkDirName, a.Name)
		if err := writeFileAtomic(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write attachment %s: %w", a.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Remove deletes dir and everything below it.
func (w *Workspace) Remove(ctx context.Context, dir string) error {
	if dir == "" || dir == "/" {
		return fmt.Errorf("refusing to remove %q", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove job directory: %w", err)
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
