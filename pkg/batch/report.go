package batch

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"slowlooking/pkg/llm"
)

// detailWidth caps the error text shown per row; the full message is in the report file.
const detailWidth = 60

// Summary aggregates a run. Averages cover successful images only.
type Summary struct {
	Total         int     `json:"total"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	Cached        int     `json:"cached"`
	AvgSteps      float64 `json:"avg_steps"`
	AvgDuration   float64 `json:"avg_duration_minutes"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Summarize computes the aggregate for outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	var steps, duration int
	var confidence float64
	for _, o := range outcomes {
		if o.Status != StatusSuccess {
			s.Failed++
			continue
		}
		s.Succeeded++
		if o.Cached {
			s.Cached++
		}
		if o.Steps != nil {
			steps += *o.Steps
		}
		if o.Duration != nil {
			duration += *o.Duration
		}
		if o.Confidence != nil {
			confidence += *o.Confidence
		}
	}
	if s.Succeeded > 0 {
		n := float64(s.Succeeded)
		s.AvgSteps = float64(steps) / n
		s.AvgDuration = float64(duration) / n
		s.AvgConfidence = confidence / n
	}
	return s
}

// RenderTable writes the per-image table and the summary. Plain output uses
// ASCII borders for logs and pipes.
func RenderTable(w io.Writer, rep *Report, plain bool) error {
	tw := table.NewWriter()
	if plain {
		tw.SetStyle(table.StyleDefault)
	} else {
		tw.SetStyle(table.StyleRounded)
	}
	tw.AppendHeader(table.Row{"#", "Image", "Status", "Steps", "Minutes", "Confidence", "Detail"})

	for i, o := range rep.Outcomes {
		var steps, minutes, conf, detail string
		if o.Steps != nil {
			steps = fmt.Sprintf("%d", *o.Steps)
		}
		if o.Duration != nil {
			minutes = fmt.Sprintf("%d", *o.Duration)
		}
		if o.Confidence != nil {
			conf = fmt.Sprintf("%.0f%%", *o.Confidence*100)
		}
		switch {
		case o.Error != "":
			detail = llm.Truncate(o.Error, detailWidth)
		case o.Cached:
			detail = "cached"
		}
		tw.AppendRow(table.Row{i + 1, o.Filename, o.Status, steps, minutes, conf, detail})
	}

	s := rep.Summary
	tw.AppendFooter(table.Row{"", fmt.Sprintf("Total %d", s.Total), fmt.Sprintf("%d ok / %d failed", s.Succeeded, s.Failed),
		avg(s.AvgSteps, s.Succeeded, "%.1f"), avg(s.AvgDuration, s.Succeeded, "%.1f"), avg(s.AvgConfidence*100, s.Succeeded, "%.0f%%"), ""})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	_, err := fmt.Fprintln(w, tw.Render())
	return err
}

func avg(v float64, n int, format string) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf(format, v)
}
