package ports

import (
	"context"

	"github.com/bft-labs/jobagent/internal/domain"
)

// Workspace manages job directories on local storage.
type Workspace interface {
	// Create creates the job directory and its work directory.
	Create(ctx context.Context, dir string) error

	// WriteEnvFile writes the job environment to dir.
	WriteEnvFile(ctx context.Context, dir string, env map[string]string) (string, error)

	// WriteSetupScript writes the script that runs the job command.
	WriteSetupScript(ctx context.Context, dir string, spec domain.JobSpecification) (string, error)

	// WriteAttachments decodes attachments into the work directory of dir
	// and returns the written paths.
	WriteAttachments(ctx context.Context, dir string, attachments []domain.Attachment) ([]string, error)

	// Remove deletes the job directory. Removing a missing directory is not
	// an error.
	Remove(ctx context.Context, dir string) error
}
