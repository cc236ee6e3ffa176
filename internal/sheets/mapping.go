package sheets

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Field is a logical column name.
type Field string

const (
	FieldID        Field = "id"
	FieldStatus    Field = "status"
	FieldTitle     Field = "title"
	FieldStartedAt Field = "startedAt"
	FieldEndedAt   Field = "endedAt"
	FieldDuration  Field = "durationSeconds"
	FieldProject   Field = "project"
	FieldTags      Field = "tags"
	FieldSkill     Field = "skill"
	FieldIntensity Field = "intensity"
	FieldNotes     Field = "notes"
)

// Fields lists every logical field in row order.
var Fields = []Field{
	FieldID, FieldStatus, FieldTitle, FieldStartedAt, FieldEndedAt, FieldDuration,
	FieldProject, FieldTags, FieldSkill, FieldIntensity, FieldNotes,
}

// DefaultRequired are the fields a connection must map before sync is allowed.
var DefaultRequired = []Field{FieldID, FieldStatus, FieldTitle, FieldStartedAt}

const (
	StatusRunning   = "Running"
	StatusCompleted = "Completed"
)

// Mapping maps a logical field to a column letter or header text.
type Mapping map[Field]string

// ParseMapping builds a Mapping from loosely typed config, dropping blanks and
// unknown field names.
func ParseMapping(raw map[string]string) Mapping {
	m := make(Mapping, len(raw))
	for k, v := range raw {
		f, ok := lookupField(k)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		m[f] = strings.TrimSpace(v)
	}
	return m
}

// ParseFields converts names to known fields, ignoring unknown ones.
func ParseFields(names []string) []Field {
	var out []Field
	for _, n := range names {
		if f, ok := lookupField(n); ok && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func lookupField(name string) (Field, bool) {
	name = strings.TrimSpace(name)
	for _, f := range Fields {
		if strings.EqualFold(string(f), name) {
			return f, true
		}
	}
	return "", false
}

// DurationFormat selects how durations are written to cells.
type DurationFormat string

const (
	DurationSeconds DurationFormat = "seconds"
	DurationClock   DurationFormat = "clock"
)

// Config describes one spreadsheet connection.
type Config struct {
	SpreadsheetID  string
	SheetName      string
	Mapping        Mapping
	Required       []Field
	TimeFormat     string
	Location       *time.Location
	ValueInput     string
	DurationFormat DurationFormat
}

// Validate rejects configurations that cannot possibly sync. It never touches
// the network.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SpreadsheetID) == "" {
		return &ConfigError{Reason: "no spreadsheet selected"}
	}
	required := c.Required
	if len(required) == 0 {
		required = DefaultRequired
	}
	var missing []Field
	for _, f := range required {
		if strings.TrimSpace(c.Mapping[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Reason: "incomplete column mapping", Fields: missing}
	}
	return nil
}

func (c Config) sheetName() string {
	if c.SheetName == "" {
		return "Sheet1"
	}
	return c.SheetName
}

func (c Config) timeFormat() string {
	if c.TimeFormat == "" {
		return "2006-01-02 15:04:05"
	}
	return c.TimeFormat
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// A1 quotes the sheet name and appends a range suffix, e.g. 'Log'!A1:A.
func A1(sheet, rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), rng)
}
