package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateEnvName reports whether name can be exported by a POSIX shell.
func ValidateEnvName(name string) error {
	if !envNamePattern.MatchString(name) {
		return fmt.Errorf("%w: invalid environment variable name %q", ErrInvalidRequest, name)
	}
	return nil
}

// ValidateEnv checks every name in env.
func ValidateEnv(env map[string]string) error {
	for k := range env {
		if err := ValidateEnvName(k); err != nil {
			return err
		}
	}
	return nil
}

// ValidateJobID checks that id can be used as a single directory name.
func ValidateJobID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("%w: job id %q is not a valid directory name", ErrInvalidRequest, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: job id %q contains a path separator", ErrInvalidRequest, id)
	case strings.IndexFunc(id, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: job id %q contains control characters", ErrInvalidRequest, id)
	}
	return nil
}

// validateFileName checks that name is a plain file name inside the work
// directory.
func validateFileName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: invalid attachment name %q", ErrInvalidRequest, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: attachment name %q contains a path separator", ErrInvalidRequest, name)
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: attachment name %q contains control characters", ErrInvalidRequest, name)
	}
	return nil
}
