package idgen

import (
	"regexp"
	"testing"
)

func TestRequestID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(RequestPrefix) + `[a-zA-Z0-9]+$`)
	for i := 0; i < 100; i++ {
		id := RequestID()
		if len(id) != len(RequestPrefix)+Length {
			t.Fatalf("RequestID() length = %d, want %d (id=%q)", len(id), len(RequestPrefix)+Length, id)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("RequestID() = %q, does not match expected charset pattern", id)
		}
	}
}

func TestExportID_Prefix(t *testing.T) {
	id, err := ExportID()
	if err != nil {
		t.Fatalf("ExportID() error: %v", err)
	}
	if id[:len(ExportPrefix)] != ExportPrefix {
		t.Errorf("ExportID() = %q, want prefix %q", id, ExportPrefix)
	}
}

func TestWithPrefix_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := WithPrefix("t-")
		if err != nil {
			t.Fatalf("WithPrefix() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}
