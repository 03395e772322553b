package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"citegate/internal/model"
)

// Haystack is the input to one pipeline run: a subject plus raw source
// fragments with provenance.
type Haystack struct {
	Subject string            `json:"subject" yaml:"subject"`
	Sources []model.RawSource `json:"sources" yaml:"sources"`
}

// LoadHaystack reads a haystack document from a JSON or YAML file.
func LoadHaystack(path string) (*Haystack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read haystack: %w", err)
	}

	var h Haystack
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &h); err != nil {
			return nil, fmt.Errorf("parse haystack YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, fmt.Errorf("parse haystack JSON: %w", err)
		}
	}

	if h.Subject == "" {
		h.Subject = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &h, nil
}
