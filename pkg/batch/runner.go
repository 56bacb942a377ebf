// Package batch runs the generator over a directory of artwork images, one at
// a time, pacing external calls and collecting one outcome per image.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"slowlooking/pkg/fileutil"
	"slowlooking/pkg/generator"
	"slowlooking/pkg/llm/imageutil"
)

// ReportFile is written to the output directory after every run.
const ReportFile = "_gallery_report.json"

// Outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// JourneyCreator is the part of the generator the runner drives.
type JourneyCreator interface {
	CreateJourney(ctx context.Context, image []byte, filename string, useCache bool) (*generator.Result, error)
}

// Outcome is the report line for one image.
type Outcome struct {
	Filename   string   `json:"filename"`
	Status     string   `json:"status"`
	JourneyID  string   `json:"journey_id,omitempty"`
	Steps      *int     `json:"steps,omitempty"`
	Duration   *int     `json:"duration,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Cached     bool     `json:"cached,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Report is the result of one run.
type Report struct {
	Outcomes []Outcome
	Summary  Summary
}

// ProgressFunc is called after each image with its 1-based position.
type ProgressFunc func(pos, total int, o Outcome)

// Runner processes a gallery directory.
type Runner struct {
	gen       JourneyCreator
	outputDir string
	delay     time.Duration
	useCache  bool
	sleep     func(ctx context.Context, d time.Duration) error
	progress  ProgressFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithSleep replaces the pacing wait.
func WithSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) { r.sleep = f }
}

// WithProgress reports each outcome as it is produced.
func WithProgress(f ProgressFunc) Option { return func(r *Runner) { r.progress = f } }

// WithCache controls whether cached journeys may be reused. Defaults to true.
func WithCache(use bool) Option { return func(r *Runner) { r.useCache = use } }

// NewRunner writes journeys and the report to outputDir and waits delay after
// every image that caused a model call.
func NewRunner(gen JourneyCreator, outputDir string, delay time.Duration, opts ...Option) *Runner {
	r := &Runner{
		gen:       gen,
		outputDir: outputDir,
		delay:     delay,
		useCache:  true,
		sleep:     sleepContext,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run processes every supported image in dir in filename order. Per-image
// failures are recorded in the report and never stop the run; only context
// cancellation does, in which case the partial report is still returned.
func (r *Runner) Run(ctx context.Context, dir string) (*Report, error) {
	images, err := FindImages(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	slog.Info("Processing gallery", "dir", dir, "images", len(images), "output", r.outputDir)

	rep := &Report{Outcomes: make([]Outcome, 0, len(images))}
	var runErr error
	for i, path := range images {
		o, called := r.processOne(ctx, path)
		rep.Outcomes = append(rep.Outcomes, o)
		if r.progress != nil {
			r.progress(i+1, len(images), o)
		}

		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
		if called && i < len(images)-1 && r.delay > 0 {
			if err := r.sleep(ctx, r.delay); err != nil {
				runErr = err
				break
			}
		}
	}

	rep.Summary = Summarize(rep.Outcomes)
	if err := fileutil.WriteJSONAtomic(filepath.Join(r.outputDir, ReportFile), rep.Outcomes); err != nil {
		return rep, fmt.Errorf("write report: %w", err)
	}
	return rep, runErr
}

// processOne returns the outcome and whether the provider was called.
func (r *Runner) processOne(ctx context.Context, path string) (Outcome, bool) {
	name := filepath.Base(path)
	o := Outcome{Filename: name}

	data, err := os.ReadFile(path)
	if err != nil {
		o.Status = StatusError
		o.Error = err.Error()
		return o, false
	}

	res, err := r.gen.CreateJourney(ctx, data, name, r.useCache)
	if err != nil {
		var ge *generator.GenerationError
		o.Status = StatusError
		o.Error = err.Error()
		return o, errors.As(err, &ge)
	}

	j := res.Journey
	out := filepath.Join(r.outputDir, strings.TrimSuffix(name, filepath.Ext(name))+".json")
	if err := fileutil.WriteJSONAtomic(out, j); err != nil {
		o.Status = StatusError
		o.Error = err.Error()
		return o, !res.Cached
	}

	steps, duration, confidence := j.TotalSteps, j.EstimatedDurationMinutes, j.ConfidenceScore
	o.Status = StatusSuccess
	o.JourneyID = j.ID
	o.Steps = &steps
	o.Duration = &duration
	o.Confidence = &confidence
	o.Cached = res.Cached
	return o, !res.Cached
}

// FindImages lists supported images directly inside dir, sorted by name.
func FindImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read gallery dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !imageutil.IsSupported(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
