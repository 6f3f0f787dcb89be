package directory

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialKind tags a category of credential.
type CredentialKind string

// CredentialKindPassword is the only credential kind the store holds.
const CredentialKindPassword CredentialKind = "password"

// Password encodings understood by NewPasswordMatcher.
const (
	PasswordEncodingPlain  = "plain"
	PasswordEncodingBcrypt = "bcrypt"
)

// ErrUnknownPasswordEncoding indicates a password encoding with no matcher.
var ErrUnknownPasswordEncoding = errors.New("directory: unknown password encoding")

// CredentialInput is a credential presented for validation.
type CredentialInput struct {
	Kind   CredentialKind
	Secret string
}

// PasswordMatcher compares a presented secret with the stored value.
type PasswordMatcher interface {
	Matches(stored, presented string) bool
}

// NewPasswordMatcher returns the matcher for a configured encoding. Empty means plain.
func NewPasswordMatcher(encoding string) (PasswordMatcher, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", PasswordEncodingPlain:
		return PlainTextMatcher{}, nil
	case PasswordEncodingBcrypt:
		return BcryptMatcher{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPasswordEncoding, encoding)
	}
}

// PlainTextMatcher requires the presented secret to equal the stored one exactly.
type PlainTextMatcher struct{}

func (PlainTextMatcher) Matches(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// BcryptMatcher treats the stored value as a bcrypt hash.
type BcryptMatcher struct{}

func (BcryptMatcher) Matches(stored, presented string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
}
