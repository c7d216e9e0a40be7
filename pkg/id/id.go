package id

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Length is the size of object, tag and picture identifiers.
const Length = 15

var safe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// New returns a URL-safe nanoid of Length characters.
func New() (string, error) {
	v, err := gonanoid.New(Length)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return v, nil
}

// Valid reports whether raw is usable as a storage key. Only the nanoid alphabet
// is accepted, which also rules out path traversal.
func Valid(raw string) bool {
	return safe.MatchString(raw)
}
