package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sadopc/sheetclock/internal/identity"
	"github.com/sadopc/sheetclock/internal/sheets"
	"github.com/sadopc/sheetclock/internal/store"
)

const (
	codeBadRequest        = "bad_request"
	codeMissingCredential = "missing_credential"
	codeInvalidCredential = "invalid_credential"
	codeExpiredCredential = "expired_credential"
	codeNotConfigured     = "not_configured"
	codeRowNotFound       = "row_not_found"
	codeNotFound          = "not_found"
	codeRemote            = "remote_error"
)

// classify maps an error to its HTTP status and wire code. Anything
// unrecognized is a spreadsheet or storage failure and reported as 502.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, identity.ErrMissingCredential):
		return http.StatusUnauthorized, codeMissingCredential
	case errors.Is(err, identity.ErrExpiredCredential):
		return http.StatusUnauthorized, codeExpiredCredential
	case errors.Is(err, identity.ErrInvalidCredential):
		return http.StatusUnauthorized, codeInvalidCredential
	case errors.Is(err, sheets.ErrNotConfigured):
		return http.StatusConflict, codeNotConfigured
	case errors.Is(err, sheets.ErrRowNotFound):
		return http.StatusConflict, codeRowNotFound
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	}
	return http.StatusBadGateway, codeRemote
}

func abortError(c *gin.Context, err error) {
	status, code := classify(err)
	c.AbortWithStatusJSON(status, ErrorJSON{Code: code, Error: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorJSON{Code: codeBadRequest, Error: msg})
}

// RemoteError is a failure reported by the server that has no local sentinel.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match the sentinel the server classified the error as.
func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case codeMissingCredential:
		return identity.ErrMissingCredential
	case codeInvalidCredential:
		return identity.ErrInvalidCredential
	case codeExpiredCredential:
		return identity.ErrExpiredCredential
	case codeNotConfigured:
		return sheets.ErrNotConfigured
	case codeRowNotFound:
		return sheets.ErrRowNotFound
	case codeNotFound:
		return store.ErrNotFound
	}
	return nil
}
