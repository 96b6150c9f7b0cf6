// Package idgen generates short, URL-safe identifiers for API requests and
// export runs, backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// RequestPrefix marks ids sent in the X-Request-Id header.
	RequestPrefix = "req-"
	// ExportPrefix marks export run ids written into export headers.
	ExportPrefix = "exp-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// RequestID returns a new request id. Generation failures fall back to an
// unprefixed sentinel so a request is never blocked on id generation.
func RequestID() string {
	id, err := WithPrefix(RequestPrefix)
	if err != nil {
		return RequestPrefix + "unknown"
	}
	return id
}

// ExportID returns a new export run id.
func ExportID() (string, error) {
	return WithPrefix(ExportPrefix)
}

// WithPrefix returns a new unique ID with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
