package domain

import (
	"encoding/base64"
	"fmt"
)

// Attachment is a file shipped with a job request and written into the
// job's work directory before launch.
type Attachment struct {
	// Name is the file name inside the work directory.
	Name string `yaml:"name" json:"name"`

	// Data is the base64 encoded file content.
	Data string `yaml:"data" json:"data"`
}

// Decode returns the attachment content.
func (a Attachment) Decode() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: attachment %q is not valid base64: %v", ErrInvalidRequest, a.Name, err)
	}
	return b, nil
}

// ValidateAttachments checks names, uniqueness and encoding.
func ValidateAttachments(attachments []Attachment) error {
	seen := make(map[string]bool, len(attachments))
	for _, a := range attachments {
		if err := validateFileName(a.Name); err != nil {
			return err
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: duplicate attachment %q", ErrInvalidRequest, a.Name)
		}
		seen[a.Name] = true
		if _, err := a.Decode(); err != nil {
			return err
		}
	}
	return nil
}
