package config

import (
	"fmt"
	"os"
	"strings"
)

// SourceRef points at a configuration value that may live outside the
// config file. Exactly one of the fields is expected to be set; resolution
// order is value, env, file.
type SourceRef struct {
	Value string `yaml:"value"`
	Env   string `yaml:"env"`
	File  string `yaml:"file"`
}

// Resolve returns the referenced value. An entirely empty ref resolves to
// the empty string without error, so callers can apply their own fallback.
func (r SourceRef) Resolve() (string, error) {
	switch {
	case r.Value != "":
		return r.Value, nil
	case r.Env != "":
		return os.Getenv(r.Env), nil
	case r.File != "":
		data, err := os.ReadFile(r.File)
		if err != nil {
			return "", fmt.Errorf("reading value from file %s: %w", r.File, err)
		}

		return strings.TrimSpace(string(data)), nil
	default:
		return "", nil
	}
}

// ResolveOr resolves the ref and substitutes fallback for an empty result.
func (r SourceRef) ResolveOr(fallback string) (string, error) {
	value, err := r.Resolve()
	if err != nil {
		return "", err
	}
	if value == "" {
		return fallback, nil
	}

	return value, nil
}
