package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sheetclock/internal/sheets"
	"github.com/sadopc/sheetclock/internal/store"
)

const (
	settingAdjustStep = "adjust_step"
	settingDailyGoal  = "daily_goal"
	settingWeekStart  = "week_start"

	defaultAdjustStep = 300
	defaultDailyGoal  = 28800
)

type settingsForm int

const (
	formGeneral settingsForm = iota
	formConnection
)

// settingsValues backs both settings forms.
type settingsValues struct {
	adjustStep string
	dailyGoal  string
	weekStart  string

	spreadsheetID  string
	sheetName      string
	columns        string
	required       string
	timeFormat     string
	timezone       string
	valueInput     string
	durationFormat string
}

type settingsModel struct {
	store          *store.Store
	userID         string
	editConnection bool
	width          int
	height         int

	settings []store.Setting
	conn     *store.Connection

	formActive bool
	formKind   settingsForm
	form       *huh.Form
	vals       *settingsValues
}

func newSettingsModel(s *store.Store, userID string, editConnection bool) settingsModel {
	return settingsModel{
		store:          s,
		userID:         userID,
		editConnection: editConnection,
		vals:           &settingsValues{},
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
	conn     *store.Connection
}

func (s settingsModel) refresh() tea.Cmd {
	if s.store == nil {
		return nil
	}
	st, userID, withConn := s.store, s.userID, s.editConnection
	return func() tea.Msg {
		settings, _ := st.GetAllSettings()
		msg := settingsDataMsg{settings: settings}
		if withConn {
			msg.conn, _ = st.GetConnection(context.Background(), userID)
		}
		return msg
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		s.conn = msg.conn
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter):
			return s.showGeneralForm()
		case key.Matches(msg, keys.Edit):
			if s.editConnection {
				return s.showConnectionForm()
			}
		}
	}
	return s, nil
}

func (s settingsModel) showGeneralForm() (settingsModel, tea.Cmd) {
	v := s.vals
	v.adjustStep = secsToMin(s.getVal(settingAdjustStep, strconv.Itoa(defaultAdjustStep)))
	v.dailyGoal = secsToHours(s.getVal(settingDailyGoal, strconv.Itoa(defaultDailyGoal)))
	v.weekStart = s.getVal(settingWeekStart, "monday")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Adjust step (min)").Value(&v.adjustStep).Validate(positiveInt),
			huh.NewInput().Title("Daily goal (hours)").Value(&v.dailyGoal),
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Monday", "monday"),
					huh.NewOption("Sunday", "sunday"),
				).Value(&v.weekStart),
		).Title("General"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	s.formKind = formGeneral
	return s, s.form.Init()
}

func (s settingsModel) showConnectionForm() (settingsModel, tea.Cmd) {
	v := s.vals
	c := s.conn
	if c == nil {
		c = &store.Connection{}
	}
	v.spreadsheetID = c.SpreadsheetID
	v.sheetName = c.SheetName
	v.columns = formatColumns(c.Columns)
	v.required = strings.Join(c.Required, ", ")
	v.timeFormat = c.TimeFormat
	v.timezone = c.Timezone
	v.valueInput = c.ValueInput
	v.durationFormat = c.DurationFormat

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Spreadsheet ID").Value(&v.spreadsheetID),
			huh.NewInput().Title("Sheet name").Placeholder("Sheet1").Value(&v.sheetName),
			huh.NewText().Title("Columns").
				Description("one field = column per line; letters or header text").
				Value(&v.columns).Validate(validColumns),
			huh.NewInput().Title("Required fields").Description("comma separated; empty uses id, status, title, startedAt").Value(&v.required),
		).Title("Spreadsheet"),
		huh.NewGroup(
			huh.NewInput().Title("Time format").Placeholder("2006-01-02 15:04:05").Value(&v.timeFormat),
			huh.NewInput().Title("Timezone").Placeholder("UTC").Value(&v.timezone),
			huh.NewSelect[string]().Title("Value input").
				Options(
					huh.NewOption("Raw", "RAW"),
					huh.NewOption("User entered", "USER_ENTERED"),
				).Value(&v.valueInput),
			huh.NewSelect[string]().Title("Duration format").
				Options(
					huh.NewOption("Seconds", string(sheets.DurationSeconds)),
					huh.NewOption("hh:mm:ss", string(sheets.DurationClock)),
				).Value(&v.durationFormat),
		).Title("Formatting"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	s.formKind = formConnection
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		var status tea.Cmd
		if s.formKind == formConnection {
			status = s.saveConnection()
		} else {
			status = s.saveSettings()
		}
		return s, tea.Batch(status, s.refresh())
	}

	return s, cmd
}

func (s settingsModel) saveSettings() tea.Cmd {
	err := errors.Join(
		s.store.SetSetting(settingAdjustStep, minToSecs(s.vals.adjustStep)),
		s.store.SetSetting(settingDailyGoal, hoursToSecs(s.vals.dailyGoal)),
		s.store.SetSetting(settingWeekStart, s.vals.weekStart),
	)
	if err != nil {
		return statusCmd(fmt.Sprintf("Could not save settings: %v", err), true)
	}
	return statusCmd("Settings saved", false)
}

func (s settingsModel) saveConnection() tea.Cmd {
	v := s.vals
	conn := &store.Connection{
		UserID:         s.userID,
		SpreadsheetID:  strings.TrimSpace(v.spreadsheetID),
		SheetName:      strings.TrimSpace(v.sheetName),
		Columns:        parseColumns(v.columns),
		Required:       splitList(v.required),
		TimeFormat:     strings.TrimSpace(v.timeFormat),
		Timezone:       strings.TrimSpace(v.timezone),
		ValueInput:     v.valueInput,
		DurationFormat: v.durationFormat,
	}
	if err := s.store.SaveConnection(context.Background(), conn); err != nil {
		return statusCmd(fmt.Sprintf("Could not save connection: %v", err), true)
	}
	cfg, err := conn.SheetConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return statusCmd(fmt.Sprintf("Connection saved, but sync is off: %v", err), true)
	}
	return statusCmd("Connection saved", false)
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.GetSetting(k)
	if err != nil {
		return fallback
	}
	return v
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	rows := []string{title, ""}
	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(setting.Key)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "", titleStyle.Render("Spreadsheet"))
	switch {
	case !s.editConnection:
		rows = append(rows, mutedStyle.Render("  Managed by the remote server"))
	case s.conn == nil:
		rows = append(rows, mutedStyle.Render("  Not connected"))
	default:
		rows = append(rows, s.renderConnection()...)
	}

	hint := "Press enter to edit settings"
	if s.editConnection {
		hint += ", e to edit the spreadsheet connection"
	}
	rows = append(rows, "", mutedStyle.Render(hint))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (s settingsModel) renderConnection() []string {
	c := s.conn
	line := func(k, v string) string {
		if v == "" {
			v = "(default)"
		}
		return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(24).Render(k), highlightStyle.Render(v))
	}
	rows := []string{
		line("spreadsheet", c.SpreadsheetID),
		line("sheet", c.SheetName),
		line("timezone", c.Timezone),
		line("duration format", c.DurationFormat),
	}
	for _, l := range strings.Split(formatColumns(c.Columns), "\n") {
		if l != "" {
			rows = append(rows, mutedStyle.Render("    "+l))
		}
	}
	cfg, err := c.SheetConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		rows = append(rows, warningStyle.Render("  "+err.Error()))
	}
	return rows
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isError: isError}
	}
}

func formatSettingValue(k, v string) string {
	switch k {
	case settingAdjustStep:
		if secs, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%d min", secs/60)
		}
	case settingDailyGoal:
		if secs, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%.1f hours", float64(secs)/3600)
		}
	}
	return v
}

// formatColumns renders a mapping as sorted "field = column" lines.
func formatColumns(cols map[string]string) string {
	names := make([]string, 0, len(cols))
	for k := range cols {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, k := range names {
		fmt.Fprintf(&b, "%s = %s\n", k, cols[k])
	}
	return b.String()
}

func parseColumns(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		field, col, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		field, col = strings.TrimSpace(field), strings.TrimSpace(col)
		if field != "" && col != "" {
			out[field] = col
		}
	}
	return out
}

func validColumns(text string) error {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.Contains(line, "=") {
			return fmt.Errorf("expected field = column, got %q", strings.TrimSpace(line))
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positiveInt(s string) error {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n <= 0 {
		return errors.New("enter a whole number above zero")
	}
	return nil
}

func secsToMin(s string) string {
	if secs, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(secs / 60)
	}
	return s
}

func minToSecs(s string) string {
	if mins, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return strconv.Itoa(mins * 60)
	}
	return s
}

func secsToHours(s string) string {
	if secs, err := strconv.Atoi(s); err == nil {
		return fmt.Sprintf("%.1f", float64(secs)/3600)
	}
	return s
}

func hoursToSecs(s string) string {
	if hours, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return strconv.Itoa(int(hours * 3600))
	}
	return s
}
