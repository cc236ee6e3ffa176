package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/sadopc/sheetclock/internal/session"
)

// draftValues backs the start/edit form. huh writes through pointers, so the
// App holds it by pointer to survive model copies.
type draftValues struct {
	editing   bool
	Title     string
	Project   string
	Tags      string
	Skill     string
	Intensity string
	Notes     string
}

func valuesFromDraft(d session.Draft) *draftValues {
	return &draftValues{
		editing:   true,
		Title:     d.Title,
		Project:   d.Project,
		Tags:      strings.Join(d.Tags, ", "),
		Skill:     d.Skill,
		Intensity: string(d.Intensity),
		Notes:     d.Notes,
	}
}

func (v *draftValues) fields() session.Fields {
	return session.Fields{
		Project:   v.Project,
		Tags:      session.SplitTags(v.Tags),
		Skill:     v.Skill,
		Intensity: session.ParseIntensity(v.Intensity),
		Notes:     v.Notes,
	}
}

func (v *draftValues) patch() session.Patch {
	f := v.fields()
	title := v.Title
	return session.Patch{
		Title:     &title,
		Project:   &f.Project,
		Tags:      &f.Tags,
		Skill:     &f.Skill,
		Intensity: &f.Intensity,
		Notes:     &f.Notes,
	}
}

func requireTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("title is required")
	}
	return nil
}

func newDraftForm(v *draftValues) *huh.Form {
	heading := "Start session"
	if v.editing {
		heading = "Edit session"
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&v.Title).Validate(requireTitle),
			huh.NewInput().Title("Project").Value(&v.Project),
			huh.NewInput().Title("Tags").Description("comma separated").Value(&v.Tags),
			huh.NewInput().Title("Skill").Value(&v.Skill),
			huh.NewSelect[string]().Title("Intensity").
				Options(
					huh.NewOption("None", ""),
					huh.NewOption("Low", string(session.IntensityLow)),
					huh.NewOption("Medium", string(session.IntensityMedium)),
					huh.NewOption("High", string(session.IntensityHigh)),
				).Value(&v.Intensity),
			huh.NewText().Title("Notes").Value(&v.Notes),
		).Title(heading),
	).WithShowHelp(true).WithShowErrors(true)
}
