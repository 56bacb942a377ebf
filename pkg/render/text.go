// Package render presents journeys to people: as wrapped plain text and as
// an image overlay marking each step's region.
package render

import (
	"fmt"
	"io"
	"strings"

	"slowlooking/pkg/llm"
	"slowlooking/pkg/model"
)

const (
	lineWidth = 70
	indent    = "   "
)

// WriteText writes a readable walkthrough of j.
func WriteText(w io.Writer, j *model.Journey) error {
	tw := &textWriter{w: w}

	tw.rule("=")
	tw.line("JOURNEY PREVIEW")
	tw.rule("=")
	tw.blank()
	tw.line(j.Artwork.DisplayTitle())
	if j.Artwork.Artist != nil && *j.Artwork.Artist != "" {
		tw.line(indent + "by " + *j.Artwork.Artist)
	}
	if meta := artworkMeta(j.Artwork); meta != "" {
		tw.line(indent + meta)
	}
	tw.blank()
	tw.line(fmt.Sprintf("%d steps, ~%d min, %.0f%% confidence", j.TotalSteps, j.EstimatedDurationMinutes, j.ConfidenceScore*100))
	tw.blank()
	tw.line("WELCOME")
	tw.para(j.WelcomeText)

	tw.blank()
	tw.rule("-")
	tw.line("JOURNEY STEPS")
	tw.rule("-")
	for _, s := range j.Steps {
		r := s.Region
		tw.blank()
		tw.line(fmt.Sprintf("STEP %d: %s [%s]", s.StepNumber, r.Title, r.ConceptTag))
		tw.line(fmt.Sprintf("%sLook away: %ds", indent, s.LookAwayDuration))
		tw.line(fmt.Sprintf("%s%q", indent, r.SoftPrompt))
		tw.blank()
		tw.para(r.Observation)
		tw.blank()
		tw.para("Why: " + r.WhyNotable)
		if s.BuildsOn != nil && *s.BuildsOn != "" {
			tw.para("Builds on: " + *s.BuildsOn)
		}
	}

	fs := j.FinalSummary
	tw.blank()
	tw.rule("-")
	tw.line("FINAL SUMMARY")
	tw.rule("-")
	tw.blank()
	tw.para(fs.MainTakeaway)
	tw.blank()
	tw.para(fs.Connections)
	tw.blank()
	tw.para(fs.ReflectionQuestion)
	if fs.InvitationToReturn != "" {
		tw.blank()
		tw.para(fs.InvitationToReturn)
	}
	return tw.err
}

func artworkMeta(a model.Artwork) string {
	var parts []string
	for _, p := range []*string{a.Year, a.Period, a.Style, a.Medium} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, ", ")
}

// textWriter remembers the first write error so callers check once.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) line(s string) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintln(t.w, s)
}

func (t *textWriter) blank() { t.line("") }

func (t *textWriter) rule(ch string) { t.line(strings.Repeat(ch, lineWidth)) }

func (t *textWriter) para(s string) {
	for _, l := range strings.Split(llm.WordWrap(s, lineWidth-len(indent)), "\n") {
		t.line(indent + l)
	}
}
