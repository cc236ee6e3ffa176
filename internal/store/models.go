package store

import "time"

type Setting struct {
	Key   string
	Value string
}

// SessionFilter narrows completed-session queries.
type SessionFilter struct {
	UserID  string
	Project string
	From    *time.Time
	To      *time.Time
	Limit   int
}

// DailySummary is the completed time per project per day.
type DailySummary struct {
	Date         string
	Project      string
	TotalSeconds int64
	SessionCount int
}

// SyncStatus is the lifecycle of one spreadsheet write attempt.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"

	// SyncNotConfigured failed before any network call because the user has
	// no usable connection. The retry scheduler skips it; a manual retry
	// re-attempts it once the connection is fixed.
	SyncNotConfigured SyncStatus = "not_configured"
)

// SyncLog records the outcome of pushing a completed session to the sheet.
type SyncLog struct {
	ID         string
	UserID     string
	SessionID  string
	Operation  string
	Status     SyncStatus
	Reason     string
	RetryCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SyncLogFilter narrows sync-log queries. Zero values match everything.
type SyncLogFilter struct {
	UserID string
	Status SyncStatus
	Limit  int
}

// Connection is a user's spreadsheet configuration.
type Connection struct {
	UserID         string
	SpreadsheetID  string
	SheetName      string
	Columns        map[string]string
	Required       []string
	TimeFormat     string
	Timezone       string
	ValueInput     string
	DurationFormat string
	UpdatedAt      time.Time
}
