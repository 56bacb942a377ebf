package model

import "testing"

func strPtr(s string) *string { return &s }

func TestArtworkDisplayFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		artwork    Artwork
		wantTitle  string
		wantArtist string
	}{
		{
			name:       "Unknown work",
			artwork:    Artwork{},
			wantTitle:  "Untitled",
			wantArtist: "Unknown Artist",
		},
		{
			name:       "Empty strings treated as unknown",
			artwork:    Artwork{Title: strPtr(""), Artist: strPtr("")},
			wantTitle:  "Untitled",
			wantArtist: "Unknown Artist",
		},
		{
			name:       "Identified work",
			artwork:    Artwork{Title: strPtr("The Starry Night"), Artist: strPtr("Vincent van Gogh")},
			wantTitle:  "The Starry Night",
			wantArtist: "Vincent van Gogh",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.artwork.DisplayTitle(); got != tt.wantTitle {
				t.Errorf("DisplayTitle() = %q, want %q", got, tt.wantTitle)
			}
			if got := tt.artwork.DisplayArtist(); got != tt.wantArtist {
				t.Errorf("DisplayArtist() = %q, want %q", got, tt.wantArtist)
			}
		})
	}
}

func TestNewIndexEntry(t *testing.T) {
	j := &Journey{
		ID:                       "abc",
		ImageFilename:            "glory.jpg",
		Artwork:                  Artwork{Title: strPtr("Glory Days")},
		TotalSteps:               4,
		EstimatedDurationMinutes: 5,
	}
	e := NewIndexEntry(j, "2025-01-02T10:00:00Z")
	want := IndexEntry{
		JourneyID:       "abc",
		ImageFilename:   "glory.jpg",
		Title:           "Glory Days",
		Artist:          "Unknown Artist",
		CompletedAt:     "2025-01-02T10:00:00Z",
		StepsCount:      4,
		DurationMinutes: 5,
	}
	if e != want {
		t.Errorf("NewIndexEntry() = %+v, want %+v", e, want)
	}
}
