package domain

import (
	"os"
	"time"
)

// ManifestEntry describes one file included in a job archive.
type ManifestEntry struct {
	Path    string      `json:"path"`
	Size    int64       `json:"size"`
	Mode    os.FileMode `json:"mode"`
	ModTime time.Time   `json:"modTime"`
}

// Archive is the collected output of a job.
type Archive struct {
	Path         string          `json:"path"`
	ChecksumPath string          `json:"checksumPath"`
	Checksum     string          `json:"checksum"`
	Size         int64           `json:"size"`
	Manifest     []ManifestEntry `json:"-"`
}
