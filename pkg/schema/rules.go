package schema

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"slowlooking/pkg/model"
)

// constraint is one kind of check in the rule tables.
type constraint interface {
	check(v any) (violated string, ok bool)
}

// rule binds a field path to the value it reads and the constraint it must satisfy.
type rule[T any] struct {
	field string
	value func(*T) any
	want  constraint
}

func apply[T any](errs *ValidationError, prefix string, v *T, rules []rule[T]) {
	for _, r := range rules {
		if msg, ok := r.want.check(r.value(v)); !ok {
			errs.add(prefix+r.field, msg)
		}
	}
}

// numberRange is an inclusive numeric bound.
type numberRange struct{ min, max float64 }

func (c numberRange) check(v any) (string, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return fmt.Sprintf("must be a number, got %T", v), false
	}
	if math.IsNaN(f) || f < c.min || f > c.max {
		return fmt.Sprintf("must be in [%g, %g], got %g", c.min, c.max, f), false
	}
	return "", true
}

// textLength bounds a string by characters. A nil *string is accepted.
type textLength struct{ min, max int }

func (c textLength) check(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case *string:
		if t == nil {
			return "", true
		}
		s = *t
	default:
		return fmt.Sprintf("must be a string, got %T", v), false
	}
	n := utf8.RuneCountInString(s)
	if n < c.min {
		return fmt.Sprintf("must be at least %d characters, got %d", c.min, n), false
	}
	if c.max > 0 && n > c.max {
		return fmt.Sprintf("must be at most %d characters, got %d", c.max, n), false
	}
	return "", true
}

// oneOf restricts a value to a closed set.
type oneOf []string

func (c oneOf) check(v any) (string, bool) {
	s := fmt.Sprint(v)
	if slices.Contains(c, s) {
		return "", true
	}
	return fmt.Sprintf("must be one of %s, got %q", strings.Join(c, "|"), s), false
}

// totalMatchesSteps requires total_steps == len(steps).
type totalMatchesSteps struct{}

func (totalMatchesSteps) check(v any) (string, bool) {
	j := v.(*model.Journey)
	if j.TotalSteps != len(j.Steps) {
		return fmt.Sprintf("must equal the number of steps (%d), got %d", len(j.Steps), j.TotalSteps), false
	}
	return "", true
}

// contiguousSteps requires step numbers 1..N in order.
type contiguousSteps struct{}

func (contiguousSteps) check(v any) (string, bool) {
	steps := v.([]model.Step)
	numbers := make([]int, len(steps))
	ok := true
	for i, s := range steps {
		numbers[i] = s.StepNumber
		if s.StepNumber != i+1 {
			ok = false
		}
	}
	if !ok {
		return fmt.Sprintf("step numbers must run 1..%d without gaps, got %v", len(steps), numbers), false
	}
	return "", true
}

// Journey bounds shared with prompt rendering.
const (
	MinSteps    = 3
	MaxSteps    = 6
	MinLookAway = 30
	MaxLookAway = 60
)

var unitRange = numberRange{0, 1}

func conceptTagNames() oneOf {
	out := make(oneOf, len(model.ConceptTags))
	for i, t := range model.ConceptTags {
		out[i] = string(t)
	}
	return out
}

var journeyRules = []rule[model.Journey]{
	{"total_steps", func(j *model.Journey) any { return j.TotalSteps }, numberRange{MinSteps, MaxSteps}},
	{"total_steps", func(j *model.Journey) any { return j }, totalMatchesSteps{}},
	{"estimated_duration_minutes", func(j *model.Journey) any { return j.EstimatedDurationMinutes }, numberRange{3, 8}},
	{"steps", func(j *model.Journey) any { return len(j.Steps) }, numberRange{MinSteps, MaxSteps}},
	{"steps", func(j *model.Journey) any { return j.Steps }, contiguousSteps{}},
	{"welcome_text", func(j *model.Journey) any { return j.WelcomeText }, textLength{0, 200}},
	{"confidence_score", func(j *model.Journey) any { return j.ConfidenceScore }, unitRange},
	{"pedagogical_approach", func(j *model.Journey) any { return j.PedagogicalApproach }, textLength{0, 200}},
}

var stepRules = []rule[model.Step]{
	{"step_number", func(s *model.Step) any { return s.StepNumber }, numberRange{1, math.MaxInt32}},
	{"look_away_duration", func(s *model.Step) any { return s.LookAwayDuration }, numberRange{MinLookAway, MaxLookAway}},
	{"why_this_sequence", func(s *model.Step) any { return s.WhyThisSequence }, textLength{0, 150}},
	{"builds_on", func(s *model.Step) any { return s.BuildsOn }, textLength{0, 200}},
}

var regionRules = []rule[model.Region]{
	{"x", func(r *model.Region) any { return r.X }, unitRange},
	{"y", func(r *model.Region) any { return r.Y }, unitRange},
	{"width", func(r *model.Region) any { return r.Width }, unitRange},
	{"height", func(r *model.Region) any { return r.Height }, unitRange},
	{"importance", func(r *model.Region) any { return r.Importance }, numberRange{1, 10}},
	{"title", func(r *model.Region) any { return r.Title }, textLength{0, 40}},
	{"observation", func(r *model.Region) any { return r.Observation }, textLength{80, 250}},
	{"why_notable", func(r *model.Region) any { return r.WhyNotable }, textLength{50, 200}},
	{"soft_prompt", func(r *model.Region) any { return r.SoftPrompt }, textLength{0, 100}},
	{"concept_tag", func(r *model.Region) any { return string(r.ConceptTag) }, conceptTagNames()},
}

var summaryRules = []rule[model.FinalSummary]{
	{"main_takeaway", func(f *model.FinalSummary) any { return f.MainTakeaway }, textLength{100, 300}},
	{"connections", func(f *model.FinalSummary) any { return f.Connections }, textLength{150, 400}},
	{"invitation_to_return", func(f *model.FinalSummary) any { return f.InvitationToReturn }, textLength{0, 150}},
	{"reflection_question", func(f *model.FinalSummary) any { return f.ReflectionQuestion }, textLength{0, 100}},
}
