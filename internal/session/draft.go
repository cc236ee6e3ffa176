package session

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// Valid reports whether i is one of the known levels. The empty value means unset.
func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return true
	}
	return false
}

// ParseIntensity normalizes user input; unknown values map to unset.
func ParseIntensity(s string) Intensity {
	i := Intensity(strings.ToLower(strings.TrimSpace(s)))
	if i.Valid() {
		return i
	}
	return ""
}

// Draft is the mutable record of a session that has not been stopped yet.
type Draft struct {
	ID        string
	Title     string
	StartedAt time.Time
	Project   string
	Tags      []string
	Skill     string
	Intensity Intensity
	Notes     string
}

// Fields holds the optional values accepted when a session starts.
type Fields struct {
	Project   string
	Tags      []string
	Skill     string
	Intensity Intensity
	Notes     string
}

// Patch is a partial draft update. Nil fields are left untouched.
// There is no StartedAt: only AdjustDuration moves it.
type Patch struct {
	Title     *string
	Project   *string
	Tags      *[]string
	Skill     *string
	Intensity *Intensity
	Notes     *string
}

// Session is a completed, immutable record built from a draft.
type Session struct {
	ID              string
	Title           string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int64
	Project         string
	Tags            []string
	Skill           string
	Intensity       Intensity
	Notes           string
}

// NewID mints an opaque session identifier.
func NewID() string {
	return uuid.NewString()
}

// FromDraft freezes a draft at the stop instant. Duration never drops below one second.
func FromDraft(d Draft, stop time.Time) Session {
	secs := floorSeconds(stop.Sub(d.StartedAt))
	if secs < 1 {
		secs = 1
	}
	s := Session{
		ID:              d.ID,
		Title:           d.Title,
		StartedAt:       d.StartedAt,
		EndedAt:         stop,
		DurationSeconds: secs,
	}
	if d.Project != "" {
		s.Project = d.Project
	}
	if len(d.Tags) > 0 {
		s.Tags = slices.Clone(d.Tags)
	}
	if d.Skill != "" {
		s.Skill = d.Skill
	}
	if d.Intensity.Valid() {
		s.Intensity = d.Intensity
	}
	if d.Notes != "" {
		s.Notes = d.Notes
	}
	return s
}

func (d Draft) clone() Draft {
	d.Tags = slices.Clone(d.Tags)
	return d
}

func (d Draft) apply(p Patch) Draft {
	out := d.clone()
	if p.Title != nil {
		if t := strings.TrimSpace(*p.Title); t != "" {
			out.Title = t
		}
	}
	if p.Project != nil {
		out.Project = strings.TrimSpace(*p.Project)
	}
	if p.Tags != nil {
		out.Tags = NormalizeTags(*p.Tags)
	}
	if p.Skill != nil {
		out.Skill = strings.TrimSpace(*p.Skill)
	}
	if p.Intensity != nil {
		out.Intensity = ParseIntensity(string(*p.Intensity))
	}
	if p.Notes != nil {
		out.Notes = strings.TrimSpace(*p.Notes)
	}
	return out
}

// NormalizeTags trims tags, drops blanks and duplicates, and keeps first-seen order.
func NormalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// SplitTags parses a comma separated tag list.
func SplitTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}

// floorSeconds converts d to whole seconds, rounding toward negative infinity.
func floorSeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if d < 0 && d%time.Second != 0 {
		secs--
	}
	return secs
}
