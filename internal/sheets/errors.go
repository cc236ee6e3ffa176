package sheets

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRowNotFound means no row carries the session id. Update treats it as
	// divergence; Cancel and Delete treat it as already consistent.
	ErrRowNotFound = errors.New("spreadsheet row not found")

	// ErrNotConfigured is matched by every *ConfigError.
	ErrNotConfigured = errors.New("spreadsheet sync not configured")
)

// ConfigError is a mapping or connection problem detected before any network call.
type ConfigError struct {
	Reason string
	Fields []Field
}

func (e *ConfigError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(names, ", "))
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured
}
