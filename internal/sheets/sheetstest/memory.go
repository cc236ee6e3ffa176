// Package sheetstest provides an in-memory spreadsheet for tests.
package sheetstest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sadopc/sheetclock/internal/sheets"
)

// Memory is a single-sheet, in-memory sheets.Client. Rows are 1-based like a
// real sheet. Errors can be injected per operation.
type Memory struct {
	mu   sync.Mutex
	rows [][]string

	GetErr    error
	AppendErr error
	UpdateErr error
	DeleteErr error

	// HeaderErr fails only reads of row 1 ("1:1").
	HeaderErr error

	Calls []string
}

// NewMemory returns a sheet whose first row is header.
func NewMemory(header ...string) *Memory {
	m := &Memory{}
	if len(header) > 0 {
		m.rows = append(m.rows, append([]string(nil), header...))
	}
	return m
}

// Rows returns a copy of the sheet contents.
func (m *Memory) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Cell returns the text at a 1-based row and a column letter.
func (m *Memory) Cell(row int, col string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := sheets.ColumnKeyToIndex(col)
	if row < 1 || row > len(m.rows) || idx >= len(m.rows[row-1]) {
		return ""
	}
	return m.rows[row-1][idx]
}

// SetRows replaces the sheet contents.
func (m *Memory) SetRows(rows ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
}

// Count returns how many calls of the given kind were made.
func (m *Memory) Count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == kind {
			n++
		}
	}
	return n
}

func (m *Memory) record(kind string) {
	m.Calls = append(m.Calls, kind)
}

func (m *Memory) GetValues(_ context.Context, _ string, rng string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("get")
	_, cells := splitRange(rng)
	if cells == "1:1" {
		if m.HeaderErr != nil {
			return nil, m.HeaderErr
		}
		if len(m.rows) == 0 {
			return nil, nil
		}
		return [][]string{append([]string(nil), m.rows[0]...)}, nil
	}
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	// Column range such as C1:C.
	col := strings.TrimRight(strings.SplitN(cells, ":", 2)[0], "0123456789")
	idx := sheets.ColumnKeyToIndex(col)
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		if idx < len(r) && r[idx] != "" {
			out[i] = []string{r[idx]}
		} else {
			out[i] = []string{}
		}
	}
	// Like the real API, trailing empty rows are dropped.
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *Memory) AppendRow(_ context.Context, _ string, rng string, row []string, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("append")
	if m.AppendErr != nil {
		return "", m.AppendErr
	}
	m.rows = append(m.rows, append([]string(nil), row...))
	sheet, _ := splitRange(rng)
	n := len(m.rows)
	return fmt.Sprintf("%s!A%d:%s%d", sheet, n, sheets.IndexToColumnKey(max(len(row)-1, 0)), n), nil
}

func (m *Memory) BatchUpdate(_ context.Context, _ string, cells []sheets.CellUpdate, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("batch")
	if m.UpdateErr != nil {
		return 0, m.UpdateErr
	}
	for _, c := range cells {
		_, ref := splitRange(c.Range)
		col := strings.TrimRight(ref, "0123456789")
		row, err := strconv.Atoi(ref[len(col):])
		if err != nil || row < 1 {
			return 0, fmt.Errorf("bad cell range %q", c.Range)
		}
		for len(m.rows) < row {
			m.rows = append(m.rows, nil)
		}
		idx := sheets.ColumnKeyToIndex(col)
		r := m.rows[row-1]
		for len(r) <= idx {
			r = append(r, "")
		}
		r[idx] = c.Value
		m.rows[row-1] = r
	}
	return len(cells), nil
}

func (m *Memory) DeleteRow(_ context.Context, _ string, _ string, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("delete")
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if row < 1 || row > len(m.rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	m.rows = append(m.rows[:row-1], m.rows[row:]...)
	return nil
}

func splitRange(rng string) (sheet, cells string) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		return rng[:i], rng[i+1:]
	}
	return "", rng
}
