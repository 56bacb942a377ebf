// Package probe runs named readiness checks and reports which ones failed.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single check when the caller sets none.
const DefaultTimeout = 10 * time.Second

// CheckFunc returns nil when the check passes.
type CheckFunc func(ctx context.Context) error

// Probe is one named check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // A failure makes Analyze return an error.
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Passed reports whether the check succeeded.
func (r Result) Passed() bool { return r.Error == nil }

// Status is PASS, WARN for a failed non-critical probe, or FAIL.
func (r Result) Status() string {
	switch {
	case r.Error == nil:
		return "PASS"
	case r.Probe.Critical:
		return "FAIL"
	default:
		return "WARN"
	}
}

// Run executes probes in order, each bounded by timeout (DefaultTimeout if
// zero). A canceled ctx marks the remaining probes as failed without running them.
func Run(ctx context.Context, timeout time.Duration, probes []Probe) []Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	results := make([]Result, len(probes))

	for i, p := range probes {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Probe: p, Error: err}
			continue
		}

		start := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := p.Check(checkCtx)
		cancel()

		results[i] = Result{
			Probe:    p,
			Error:    err,
			Duration: time.Since(start),
		}
	}

	return results
}

// Analyze logs every result and joins the errors of failed critical probes.
func Analyze(results []Result) error {
	var criticalErrors []error

	for _, r := range results {
		msg := fmt.Sprintf("[%s] %-12s (%v)", r.Status(), r.Probe.Name, r.Duration.Round(time.Millisecond))
		if r.Error == nil {
			slog.Debug(msg)
			continue
		}
		slog.Warn(msg, "error", r.Error)
		if r.Probe.Critical {
			criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		}
	}

	return errors.Join(criticalErrors...)
}
