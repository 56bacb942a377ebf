package config

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is wrapped by ConfigurationError.
var ErrMissingCredential = errors.New("missing API credential")

// ConfigurationError reports a provider that cannot be used as configured.
type ConfigurationError struct {
	Provider string
	EnvVar   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: no API key for provider %q (set llm.key or %s)", ErrMissingCredential, e.Provider, e.EnvVar)
}

func (e *ConfigurationError) Unwrap() error { return ErrMissingCredential }
