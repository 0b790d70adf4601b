package domain

import (
	"strings"
)

// Identity shape limits.
const (
	IdentityMinLength  = 5
	IdentityMaxLength  = 120
	IdentityMinLetters = 3
)

// Identity is the canonical, case-insensitive handle of a wallet owner.
// Two handles name the same principal iff their canonical forms are equal.
type Identity string

// Normalize canonicalizes a raw handle: surrounding whitespace and one
// leading "@" are stripped, then the rest is lower-cased.
func Normalize(raw string) Identity {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "@")
	return Identity(strings.ToLower(s))
}

// Valid reports whether id satisfies the username shape rule: 5 to 120
// characters drawn from [a-z0-9_], at least 3 of them letters.
func (id Identity) Valid() bool {
	if len(id) < IdentityMinLength || len(id) > IdentityMaxLength {
		return false
	}
	letters := 0
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
			letters++
		case c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return letters >= IdentityMinLetters
}

func (id Identity) String() string {
	return string(id)
}

// ParseIdentity normalizes raw and validates the result.
func ParseIdentity(raw string) (Identity, error) {
	id := Normalize(raw)
	if !id.Valid() {
		return "", &InvalidIdentityError{Raw: raw}
	}
	return id, nil
}

// OrderPair returns a and b in global lock order (ascending canonical string).
func OrderPair(a, b Identity) (Identity, Identity) {
	if b < a {
		return b, a
	}
	return a, b
}

// InvalidIdentityError reports a handle that fails the username shape rule.
type InvalidIdentityError struct {
	Raw string
}

func (e *InvalidIdentityError) Error() string {
	return "invalid handle: " + e.Raw
}
