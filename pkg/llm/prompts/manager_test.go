package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_Journey(t *testing.T) {
	m, err := NewManager("")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	got, err := m.Journey()
	if err != nil {
		t.Fatalf("Journey failed: %v", err)
	}

	wantContains := []string{
		"between 3 and 6 stops",
		"30 to 60 seconds",
		"composition, technique, symbolism, color, light, subject, emotion, context, style",
		`"final_summary"`,
		`"look_away_duration"`,
	}
	for _, w := range wantContains {
		if !strings.Contains(got, w) {
			t.Errorf("prompt missing %q", w)
		}
	}
	if strings.Contains(got, "{{") {
		t.Error("prompt contains unrendered template actions")
	}
}

func TestManager_Override(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, JourneyTemplate), []byte("Tags: {{join .ConceptTags \"/\"}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	got, err := m.Journey()
	if err != nil {
		t.Fatalf("Journey failed: %v", err)
	}
	if !strings.HasPrefix(got, "Tags: composition/technique/") {
		t.Errorf("override not applied, got %q", got)
	}
}

func TestManager_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name:  "Missing dir",
			setup: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") },
		},
		{
			name: "Bad template",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				if err := os.WriteFile(filepath.Join(dir, "broken.tmpl"), []byte("{{.Unclosed"), 0o644); err != nil {
					t.Fatal(err)
				}
				return dir
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.setup(t)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestManager_RenderUnknown(t *testing.T) {
	m, err := NewManager("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Render("missing.tmpl", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}
