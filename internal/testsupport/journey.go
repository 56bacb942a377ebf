// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"slowlooking/pkg/llm"
	"slowlooking/pkg/model"
)

// Fill repeats seed until the result is exactly n characters long.
func Fill(seed string, n int) string {
	if n <= 0 {
		return ""
	}
	var sb strings.Builder
	for sb.Len() < n {
		sb.WriteString(seed)
	}
	return sb.String()[:n]
}

// Ptr returns a pointer to s.
func Ptr(s string) *string { return &s }

// ValidJourney returns a journey with n steps that passes validation.
// n is clamped to the accepted 3..6 range.
func ValidJourney(n int) *model.Journey {
	if n < 3 {
		n = 3
	}
	if n > 6 {
		n = 6
	}
	steps := make([]model.Step, n)
	for i := range steps {
		var buildsOn *string
		if i > 0 {
			buildsOn = Ptr(fmt.Sprintf("Builds on the colour noticed in step %d.", i))
		}
		steps[i] = model.Step{
			StepNumber: i + 1,
			Region: model.Region{
				X:           0.1 * float64(i),
				Y:           0.2,
				Width:       0.3,
				Height:      0.25,
				Importance:  float64(5 + i%5),
				Title:       fmt.Sprintf("Stop %d", i+1),
				Observation: Fill("Notice how the light settles on the folds of the cloth. ", 120),
				WhyNotable:  Fill("It pulls the eye toward the quiet centre. ", 80),
				SoftPrompt:  "What do you notice first?",
				ConceptTag:  model.ConceptTags[i%len(model.ConceptTags)],
			},
			LookAwayDuration: 30 + 5*i,
			WhyThisSequence:  "Starts with what is immediately visible.",
			BuildsOn:         buildsOn,
		}
	}
	return &model.Journey{
		ID:                       "11111111-2222-3333-4444-555555555555",
		Artwork:                  model.Artwork{Title: Ptr("Glory Days"), Artist: Ptr("A. Painter"), Year: Ptr("1921")},
		ImageFilename:            "glory.jpg",
		TotalSteps:               n,
		EstimatedDurationMinutes: 5,
		Steps:                    steps,
		WelcomeText:              "Take a breath and settle in front of the painting.",
		FinalSummary: model.FinalSummary{
			MainTakeaway:       Fill("Slow looking turns a glance into a conversation with the painting. ", 150),
			Connections:        Fill("Each stop prepared the next, from light to gesture to meaning. ", 200),
			InvitationToReturn: "Come back tomorrow and see what has changed.",
			ReflectionQuestion: "What would you paint from this moment?",
		},
		CreatedAt:           "2025-01-01T10:00:00Z",
		ConfidenceScore:     0.85,
		PedagogicalApproach: "Immediate to symbolic.",
	}
}

// ModelPayload serializes j the way a model would answer: a raw JSON object.
func ModelPayload(t testing.TB, j *model.Journey) string {
	t.Helper()
	b, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		t.Fatalf("marshal journey: %v", err)
	}
	return string(b)
}

// Mutate marshals j into a generic map, applies fn and returns the JSON.
func Mutate(t testing.TB, j *model.Journey, fn func(m map[string]any)) string {
	t.Helper()
	b, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal journey: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal journey: %v", err)
	}
	fn(m)
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal mutated journey: %v", err)
	}
	return string(out)
}

// FakeProvider is a scripted llm.Provider. Responses are returned in order,
// the last one repeating once the script is exhausted.
type FakeProvider struct {
	mu        sync.Mutex
	Responses []string
	Errs      []error
	Calls     int
	Images    []llm.Image
	Prompts   []string
}

// GenerateImageText implements llm.Provider.
func (f *FakeProvider) GenerateImageText(ctx context.Context, name, prompt string, img llm.Image) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.Calls
	f.Calls++
	f.Images = append(f.Images, img)
	f.Prompts = append(f.Prompts, prompt)
	if i < len(f.Errs) && f.Errs[i] != nil {
		return "", f.Errs[i]
	}
	if len(f.Responses) == 0 {
		return "", fmt.Errorf("fake provider: no responses scripted")
	}
	if i >= len(f.Responses) {
		i = len(f.Responses) - 1
	}
	return f.Responses[i], nil
}

// HealthCheck implements llm.Provider.
func (f *FakeProvider) HealthCheck(ctx context.Context) error { return nil }

// CallCount returns how many generation calls were made.
func (f *FakeProvider) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}
