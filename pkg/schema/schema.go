// Package schema decides whether a candidate journey may be persisted or returned.
//
// Unknown fields are ignored. Missing or null required fields, type mismatches and
// every constraint in the rule tables are reported together in one ValidationError.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"slowlooking/pkg/model"
)

// ErrMalformed marks input that is not a single JSON object.
var ErrMalformed = errors.New("malformed journey payload")

// Violation names one failed field and the constraint it broke.
type Violation struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
}

// ValidationError lists every violation found in a candidate.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Constraint
	}
	return fmt.Sprintf("journey failed validation (%d violations): %s", len(e.Violations), strings.Join(parts, "; "))
}

// Fields returns the failing field paths in report order.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Field
	}
	return out
}

func (e *ValidationError) add(field, constraint string) {
	e.Violations = append(e.Violations, Violation{Field: field, Constraint: constraint})
}

func (e *ValidationError) empty() bool { return len(e.Violations) == 0 }

// Candidate is a parsed but unvalidated journey object.
type Candidate map[string]any

// Set overwrites a top-level field.
func (c Candidate) Set(key string, value any) { c[key] = value }

// ParseCandidate parses data as a JSON object.
func ParseCandidate(data []byte) (Candidate, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	var c Candidate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: top-level value is null", ErrMalformed)
	}
	return c, nil
}

// Accept turns a candidate into a validated journey.
func Accept(c Candidate) (*model.Journey, error) {
	errs := &ValidationError{}
	checkRequired(errs, c)
	if !errs.empty() {
		return nil, errs
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var j model.Journey
	if err := json.Unmarshal(raw, &j); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			errs.add(typeErr.Field, fmt.Sprintf("must be %s, got %s", typeErr.Type, typeErr.Value))
			return nil, errs
		}
		errs.add("", err.Error())
		return nil, errs
	}

	if err := Validate(&j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Parse decodes and validates a serialized journey, as read back from disk.
func Parse(data []byte) (*model.Journey, error) {
	c, err := ParseCandidate(data)
	if err != nil {
		return nil, err
	}
	return Accept(c)
}

// Validate checks every field and cross-field constraint of j.
func Validate(j *model.Journey) error {
	errs := &ValidationError{}
	apply(errs, "", j, journeyRules)
	apply(errs, "final_summary.", &j.FinalSummary, summaryRules)
	for i := range j.Steps {
		prefix := fmt.Sprintf("steps[%d].", i)
		apply(errs, prefix, &j.Steps[i], stepRules)
		apply(errs, prefix+"region.", &j.Steps[i].Region, regionRules)
	}
	if errs.empty() {
		return nil
	}
	return errs
}

var (
	journeyKeys = []string{
		"journey_id", "artwork", "image_filename", "total_steps", "estimated_duration_minutes",
		"steps", "welcome_text", "final_summary", "created_at", "confidence_score", "pedagogical_approach",
	}
	stepKeys    = []string{"step_number", "region", "look_away_duration", "why_this_sequence"}
	regionKeys  = []string{"x", "y", "width", "height", "importance", "title", "observation", "why_notable", "soft_prompt", "concept_tag"}
	summaryKeys = []string{"main_takeaway", "connections", "invitation_to_return", "reflection_question"}
)

func checkRequired(errs *ValidationError, c Candidate) {
	requireKeys(errs, "", c, journeyKeys)
	if fs, ok := c["final_summary"].(map[string]any); ok {
		requireKeys(errs, "final_summary.", fs, summaryKeys)
	}
	steps, _ := c["steps"].([]any)
	for i, raw := range steps {
		step, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		prefix := fmt.Sprintf("steps[%d].", i)
		requireKeys(errs, prefix, step, stepKeys)
		if region, ok := step["region"].(map[string]any); ok {
			requireKeys(errs, prefix+"region.", region, regionKeys)
		}
	}
}

func requireKeys(errs *ValidationError, prefix string, obj map[string]any, keys []string) {
	for _, k := range keys {
		if v, ok := obj[k]; !ok || v == nil {
			errs.add(prefix+k, "required")
		}
	}
}
