package generator

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against a *GenerationError.
var (
	ErrMalformedOutput = errors.New("malformed model output")
	ErrSchemaViolation = errors.New("journey failed schema validation")
	ErrProvider        = errors.New("generation call failed")
	ErrCacheWrite      = errors.New("cache write failed")
)

// Kind classifies a GenerationError.
type Kind int

const (
	KindMalformedOutput Kind = iota + 1
	KindSchemaViolation
	KindProvider
	KindCacheWrite
)

func (k Kind) String() string {
	switch k {
	case KindMalformedOutput:
		return "malformed_output"
	case KindSchemaViolation:
		return "schema_violation"
	case KindProvider:
		return "provider_failure"
	case KindCacheWrite:
		return "cache_write_failure"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindMalformedOutput:
		return ErrMalformedOutput
	case KindSchemaViolation:
		return ErrSchemaViolation
	case KindProvider:
		return ErrProvider
	case KindCacheWrite:
		return ErrCacheWrite
	default:
		return nil
	}
}

// GenerationError reports why one image did not yield a journey. Every
// GenerationError is raised after the provider was called.
type GenerationError struct {
	Kind     Kind
	Filename string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Filename, e.Kind.sentinel(), e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *GenerationError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}
