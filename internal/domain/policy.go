package domain

import "fmt"

// CleanupPolicy controls what the CLEANUP stage removes.
type CleanupPolicy string

const (
	// CleanupNone keeps the job directory.
	CleanupNone CleanupPolicy = "none"

	// CleanupAll removes the job directory.
	CleanupAll CleanupPolicy = "all"
)

// ParseCleanupPolicy parses a policy name.
func ParseCleanupPolicy(s string) (CleanupPolicy, error) {
	switch p := CleanupPolicy(s); p {
	case CleanupNone, CleanupAll:
		return p, nil
	default:
		return "", fmt.Errorf("unknown cleanup policy %q (want %q or %q)", s, CleanupNone, CleanupAll)
	}
}
