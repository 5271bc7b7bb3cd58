package ports

import (
	"context"

	"github.com/bft-labs/jobagent/internal/domain"
)

// Archiver collects job output.
type Archiver interface {
	// Manifest lists the regular files under root, sorted by path.
	Manifest(ctx context.Context, root string) ([]domain.ManifestEntry, error)

	// Write archives the manifest entries of root into dest and returns the
	// archive size.
	Write(ctx context.Context, root string, entries []domain.ManifestEntry, dest string) (int64, error)

	// Checksum computes the archive checksum and writes it next to the
	// archive. It returns the hex digest and the checksum file path.
	Checksum(ctx context.Context, archivePath string) (string, string, error)
}
