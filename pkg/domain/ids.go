// Package domain holds the identifier primitives shared across contexts.
// Each identifier is parsed once at a trust boundary and is immutable after.
package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "ballotgate/pkg/domain-errors"
)

// maxIdentityLength bounds tokens read from a credential.
const maxIdentityLength = 128

// IdentityToken identifies a voter. Equality is exact byte equality; callers
// that decode credentials are responsible for canonical form.
type IdentityToken string

// ParseIdentityToken validates an already canonical token.
func ParseIdentityToken(s string) (IdentityToken, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity token is required")
	}
	if len(s) > maxIdentityLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity token is too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity token must be valid UTF-8")
	}
	if strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity token must not contain whitespace")
	}
	return IdentityToken(s), nil
}

func (t IdentityToken) String() string { return string(t) }

func (t IdentityToken) IsZero() bool { return t == "" }

// SessionID identifies one verification session.
type SessionID uuid.UUID

func NewSessionID() SessionID { return SessionID(uuid.New()) }

func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid session id")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id must not be nil")
	}
	return SessionID(parsed), nil
}

func (id SessionID) String() string { return uuid.UUID(id).String() }

func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id SessionID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *SessionID) UnmarshalText(data []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(data); err != nil {
		return err
	}
	*id = SessionID(u)
	return nil
}
