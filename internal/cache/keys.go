package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key derives a deterministic cache key for a request. The include list and
// where clause arrive already normalized (sorted) from the scrubber and
// compiler, so equivalent requests share a key.
func Key(method, path, include, where string) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(strings.Trim(path, "/"))
	if include != "" {
		b.WriteString("\x00include=")
		b.WriteString(include)
	}
	if where != "" {
		b.WriteString("\x00where=")
		b.WriteString(where)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
