package model

import "time"

// ConceptTag classifies what a highlighted region teaches.
type ConceptTag string

const (
	ConceptComposition ConceptTag = "composition"
	ConceptTechnique   ConceptTag = "technique"
	ConceptSymbolism   ConceptTag = "symbolism"
	ConceptColor       ConceptTag = "color"
	ConceptLight       ConceptTag = "light"
	ConceptSubject     ConceptTag = "subject"
	ConceptEmotion     ConceptTag = "emotion"
	ConceptContext     ConceptTag = "context"
	ConceptStyle       ConceptTag = "style"
)

// ConceptTags is the closed set of accepted concept tags, in prompt order.
var ConceptTags = []ConceptTag{
	ConceptComposition,
	ConceptTechnique,
	ConceptSymbolism,
	ConceptColor,
	ConceptLight,
	ConceptSubject,
	ConceptEmotion,
	ConceptContext,
	ConceptStyle,
}

// Region is one highlighted area of interest. Coordinates are normalized to the
// image's unit square with the origin at the top-left corner.
type Region struct {
	X      float64 `json:"x" jsonschema:"minimum=0,maximum=1"`
	Y      float64 `json:"y" jsonschema:"minimum=0,maximum=1"`
	Width  float64 `json:"width" jsonschema:"minimum=0,maximum=1"`
	Height float64 `json:"height" jsonschema:"minimum=0,maximum=1"`

	Importance  float64    `json:"importance" jsonschema:"minimum=1,maximum=10"`
	Title       string     `json:"title" jsonschema:"maxLength=40"`
	Observation string     `json:"observation" jsonschema:"minLength=80,maxLength=250"`
	WhyNotable  string     `json:"why_notable" jsonschema:"minLength=50,maxLength=200"`
	SoftPrompt  string     `json:"soft_prompt" jsonschema:"maxLength=100"`
	ConceptTag  ConceptTag `json:"concept_tag" jsonschema:"enum=composition,enum=technique,enum=symbolism,enum=color,enum=light,enum=subject,enum=emotion,enum=context,enum=style"`
}

// Step is one stop in the walkthrough.
type Step struct {
	StepNumber       int     `json:"step_number" jsonschema:"minimum=1"`
	Region           Region  `json:"region"`
	LookAwayDuration int     `json:"look_away_duration" jsonschema:"minimum=30,maximum=60"`
	WhyThisSequence  string  `json:"why_this_sequence" jsonschema:"maxLength=150"`
	BuildsOn         *string `json:"builds_on" jsonschema:"maxLength=200"`
}

// Artwork holds whatever the model could identify about the work. Every field is optional.
type Artwork struct {
	Title  *string `json:"title"`
	Artist *string `json:"artist"`
	Year   *string `json:"year"`
	Period *string `json:"period"`
	Style  *string `json:"style"`
	Medium *string `json:"medium"`
}

// DisplayTitle returns the title or "Untitled".
func (a Artwork) DisplayTitle() string {
	if a.Title == nil || *a.Title == "" {
		return "Untitled"
	}
	return *a.Title
}

// DisplayArtist returns the artist or "Unknown Artist".
func (a Artwork) DisplayArtist() string {
	if a.Artist == nil || *a.Artist == "" {
		return "Unknown Artist"
	}
	return *a.Artist
}

// FinalSummary closes the walkthrough.
type FinalSummary struct {
	MainTakeaway       string `json:"main_takeaway" jsonschema:"minLength=100,maxLength=300"`
	Connections        string `json:"connections" jsonschema:"minLength=150,maxLength=400"`
	InvitationToReturn string `json:"invitation_to_return" jsonschema:"maxLength=150"`
	ReflectionQuestion string `json:"reflection_question" jsonschema:"maxLength=100"`
}

// Journey is the complete guided observation for one artwork image.
// ID, ImageFilename and CreatedAt are owned by the system, never by the model.
type Journey struct {
	ID            string  `json:"journey_id" jsonschema:"-"`
	Artwork       Artwork `json:"artwork"`
	ImageFilename string  `json:"image_filename" jsonschema:"-"`

	TotalSteps               int    `json:"total_steps" jsonschema:"minimum=3,maximum=6"`
	EstimatedDurationMinutes int    `json:"estimated_duration_minutes" jsonschema:"minimum=3,maximum=8"`
	Steps                    []Step `json:"steps" jsonschema:"minItems=3,maxItems=6"`

	WelcomeText  string       `json:"welcome_text" jsonschema:"maxLength=200"`
	FinalSummary FinalSummary `json:"final_summary"`

	CreatedAt           string  `json:"created_at" jsonschema:"-"`
	ConfidenceScore     float64 `json:"confidence_score" jsonschema:"minimum=0,maximum=1"`
	PedagogicalApproach string  `json:"pedagogical_approach" jsonschema:"maxLength=200"`
}

// IndexEntry is the denormalized library listing for one saved journey.
type IndexEntry struct {
	JourneyID       string `json:"journey_id"`
	ImageFilename   string `json:"image_filename"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	CompletedAt     string `json:"completed_at"`
	StepsCount      int    `json:"steps_count"`
	DurationMinutes int    `json:"duration_minutes"`
}

// NewIndexEntry summarizes j as completed at completedAt.
func NewIndexEntry(j *Journey, completedAt string) IndexEntry {
	return IndexEntry{
		JourneyID:       j.ID,
		ImageFilename:   j.ImageFilename,
		Title:           j.Artwork.DisplayTitle(),
		Artist:          j.Artwork.DisplayArtist(),
		CompletedAt:     completedAt,
		StepsCount:      j.TotalSteps,
		DurationMinutes: j.EstimatedDurationMinutes,
	}
}

// AttemptStatus is the outcome of one generation attempt.
type AttemptStatus string

const (
	AttemptCacheHit        AttemptStatus = "cache_hit"
	AttemptGenerated       AttemptStatus = "generated"
	AttemptMalformed       AttemptStatus = "malformed_output"
	AttemptRejected        AttemptStatus = "schema_violation"
	AttemptProviderFailure AttemptStatus = "provider_failure"
	AttemptCacheWrite      AttemptStatus = "cache_write_failure"
)

// GenerationAttempt is one ledger row written by the generator.
type GenerationAttempt struct {
	ID            int64         `json:"id"`
	Fingerprint   string        `json:"fingerprint"`
	ImageFilename string        `json:"image_filename"`
	Provider      string        `json:"provider"`
	Status        AttemptStatus `json:"status"`
	JourneyID     string        `json:"journey_id,omitempty"`
	Error         string        `json:"error,omitempty"`
	Latency       time.Duration `json:"latency"`
	CreatedAt     time.Time     `json:"created_at"`
}
