package fs

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bft-labs/jobagent/internal/domain"
)

// LoadRequest reads a job request from a YAML or JSON file. Unknown fields
// are rejected so typos do not silently drop settings. The returned request
// is normalized and validated.
func LoadRequest(path string) (domain.JobRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.JobRequest{}, fmt.Errorf("read request file: %w", err)
	}
	return ParseRequest(data)
}

// ParseRequest decodes a job request from YAML or JSON.
func ParseRequest(data []byte) (domain.JobRequest, error) {
	var req domain.JobRequest

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return domain.JobRequest{}, fmt.Errorf("%w: decode: %v", domain.ErrInvalidRequest, err)
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return domain.JobRequest{}, err
	}
	return req, nil
}
