package session

import (
	"encoding/json"
	"slices"
)

const idleSignature = "idle"

// Signature serializes the synchronizable part of s. Elapsed time is excluded
// and tags are sorted, so ticks and tag reordering never look like edits.
func Signature(s State) string {
	r := AsRunning(s)
	if r == nil {
		return idleSignature
	}
	return DraftSignature(r.Draft)
}

// DraftSignature is Signature for a bare draft.
func DraftSignature(d Draft) string {
	tags := slices.Clone(d.Tags)
	slices.Sort(tags)
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal([]any{
		d.ID,
		d.Title,
		d.StartedAt.UnixMilli(),
		d.Project,
		tags,
		d.Skill,
		string(d.Intensity),
		d.Notes,
	})
	return string(b)
}
