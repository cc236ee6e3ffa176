// Package identity turns a bearer credential into a stable user id.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
)

// Verifier resolves a credential to a user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Grant is one accepted token.
type Grant struct {
	UserID  string
	Expires time.Time // zero means never
}

// StaticVerifier accepts a fixed set of tokens.
type StaticVerifier struct {
	grants map[string]Grant
	now    func() time.Time
}

func NewStaticVerifier(grants map[string]Grant) *StaticVerifier {
	g := make(map[string]Grant, len(grants))
	for tok, grant := range grants {
		tok = strings.TrimSpace(tok)
		if tok == "" || strings.TrimSpace(grant.UserID) == "" {
			continue
		}
		g[tok] = grant
	}
	return &StaticVerifier{grants: g, now: time.Now}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredential
	}
	grant, ok := v.grants[token]
	if !ok {
		return "", ErrInvalidCredential
	}
	if !grant.Expires.IsZero() && !v.now().Before(grant.Expires) {
		return "", ErrExpiredCredential
	}
	return grant.UserID, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
