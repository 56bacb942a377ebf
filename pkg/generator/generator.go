// Package generator turns an artwork image into a validated journey, consulting
// the content-addressed cache before calling the vision model.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"slowlooking/pkg/cache"
	"slowlooking/pkg/llm"
	"slowlooking/pkg/llm/imageutil"
	"slowlooking/pkg/model"
	"slowlooking/pkg/schema"
	"slowlooking/pkg/tracker"
)

// requestName labels journey calls in provider history logs.
const requestName = "journey"

// Recorder persists one ledger row per attempt.
type Recorder interface {
	RecordAttempt(ctx context.Context, a *model.GenerationAttempt) error
}

// Result is a journey plus how it was obtained.
type Result struct {
	Journey     *model.Journey
	Fingerprint string
	Cached      bool
}

// Generator produces journeys. Calls are expected to be sequential.
type Generator struct {
	provider     llm.Provider
	cache        cache.Cacher
	prompt       string
	providerName string
	recorder     Recorder
	tracker      *tracker.Tracker
	now          func() time.Time
	newID        func() string
	maxDim       int
}

// Option configures a Generator.
type Option func(*Generator)

// WithRecorder writes every attempt to r.
func WithRecorder(r Recorder) Option { return func(g *Generator) { g.recorder = r } }

// WithTracker counts cache hits and rejected responses.
func WithTracker(t *tracker.Tracker) Option { return func(g *Generator) { g.tracker = t } }

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option { return func(g *Generator) { g.now = now } }

// WithIDFunc overrides journey identifier generation.
func WithIDFunc(f func() string) Option { return func(g *Generator) { g.newID = f } }

// WithMaxImageDimension downscales the request copy of large images.
func WithMaxImageDimension(px int) Option { return func(g *Generator) { g.maxDim = px } }

// WithProviderName labels ledger rows and tracker counters.
func WithProviderName(name string) Option { return func(g *Generator) { g.providerName = name } }

// New creates a Generator that sends prompt with every image.
func New(p llm.Provider, c cache.Cacher, prompt string, opts ...Option) *Generator {
	g := &Generator{
		provider:     p,
		cache:        c,
		prompt:       prompt,
		providerName: "llm",
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// CreateJourney returns a journey for image. With useCache the cache is read
// first and a hit returns without calling the provider. The fingerprint is
// always computed over the raw bytes and every fresh journey is cached.
func (g *Generator) CreateJourney(ctx context.Context, image []byte, filename string, useCache bool) (*Result, error) {
	fp := cache.Fingerprint(image)
	start := g.now()

	if useCache {
		if j, ok := g.cache.Get(ctx, fp); ok {
			g.tracker.TrackCacheHit(g.providerName)
			slog.Info("Journey served from cache", "file", filename, "fingerprint", fp[:12])
			g.record(ctx, fp, filename, model.AttemptCacheHit, j.ID, nil, start)
			return &Result{Journey: j, Fingerprint: fp, Cached: true}, nil
		}
		g.tracker.TrackCacheMiss(g.providerName)
	}

	img, err := imageutil.Prepare(image, filename, g.maxDim)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", filename, err)
	}

	slog.Info("Generating journey", "file", filename, "provider", g.providerName, "media_type", img.MediaType)
	raw, err := g.provider.GenerateImageText(ctx, requestName, g.prompt, img)
	if err != nil {
		return nil, g.fail(ctx, fp, filename, KindProvider, err, start)
	}

	j, err := g.accept(raw, filename)
	if err != nil {
		var ge *GenerationError
		if errors.As(err, &ge) {
			g.tracker.TrackRejected(g.providerName)
			return nil, g.fail(ctx, fp, filename, ge.Kind, ge.Err, start)
		}
		return nil, err
	}

	if err := g.cache.Put(ctx, fp, j); err != nil {
		return nil, g.fail(ctx, fp, filename, KindCacheWrite, err, start)
	}

	slog.Info("Journey generated", "file", filename, "journey_id", j.ID, "steps", j.TotalSteps, "elapsed", g.now().Sub(start))
	g.record(ctx, fp, filename, model.AttemptGenerated, j.ID, nil, start)
	return &Result{Journey: j, Fingerprint: fp}, nil
}

// accept strips an optional code fence, parses the candidate, overwrites the
// system-owned fields and validates.
func (g *Generator) accept(raw, filename string) (*model.Journey, error) {
	c, err := schema.ParseCandidate([]byte(llm.CleanJSONBlock(raw)))
	if err != nil {
		return nil, &GenerationError{Kind: KindMalformedOutput, Filename: filename, Err: err}
	}

	c.Set("journey_id", g.newID())
	c.Set("image_filename", filename)
	c.Set("created_at", g.now().UTC().Format(time.RFC3339))

	j, err := schema.Accept(c)
	if err != nil {
		return nil, &GenerationError{Kind: KindSchemaViolation, Filename: filename, Err: err}
	}
	return j, nil
}

func (g *Generator) fail(ctx context.Context, fp, filename string, kind Kind, err error, start time.Time) error {
	ge := &GenerationError{Kind: kind, Filename: filename, Err: err}
	slog.Warn("Journey generation failed", "file", filename, "kind", kind.String(), "error", err)
	g.record(ctx, fp, filename, attemptStatus(kind), "", err, start)
	return ge
}

func (g *Generator) record(ctx context.Context, fp, filename string, status model.AttemptStatus, journeyID string, err error, start time.Time) {
	if g.recorder == nil {
		return
	}
	a := &model.GenerationAttempt{
		Fingerprint:   fp,
		ImageFilename: filename,
		Provider:      g.providerName,
		Status:        status,
		JourneyID:     journeyID,
		Latency:       g.now().Sub(start),
		CreatedAt:     g.now(),
	}
	if err != nil {
		a.Error = err.Error()
	}
	if recErr := g.recorder.RecordAttempt(context.WithoutCancel(ctx), a); recErr != nil {
		slog.Warn("Failed to record generation attempt", "file", filename, "error", recErr)
	}
}

func attemptStatus(k Kind) model.AttemptStatus {
	switch k {
	case KindMalformedOutput:
		return model.AttemptMalformed
	case KindSchemaViolation:
		return model.AttemptRejected
	case KindCacheWrite:
		return model.AttemptCacheWrite
	default:
		return model.AttemptProviderFailure
	}
}
