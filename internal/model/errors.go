package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine error.
type ErrorKind string

const (
	// KindSchemaViolation: unknown field or include, or a disallowed
	// operator/value combination. Raised before any network call.
	KindSchemaViolation ErrorKind = "schema_violation"
	// KindPreconditionFailure: a collection fetch was attempted without its
	// required anchor filter.
	KindPreconditionFailure ErrorKind = "precondition_failure"
	// KindDirtyStateConflict: fetch or create against an entity with unsaved
	// local changes while overwrite protection is enabled.
	KindDirtyStateConflict ErrorKind = "dirty_state_conflict"
	// KindIdentityMissing: fetch, update or delete without a positive id.
	KindIdentityMissing ErrorKind = "identity_missing"
	// KindIdentityConflict: create on an entity that already has an id.
	KindIdentityConflict ErrorKind = "identity_conflict"
	// KindUnsupported: the resource type does not allow the operation.
	KindUnsupported ErrorKind = "unsupported"
	// KindTransportFailure: opaque failure from the transport collaborator.
	KindTransportFailure ErrorKind = "transport_failure"
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	return string(k)
}

// Error is the error type returned by the engine packages.
type Error struct {
	Kind    ErrorKind
	Entity  string // entity-type key, if known
	Field   string // field, include or filter path, if relevant
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Entity != "" {
		msg += " [" + e.Entity
		if e.Field != "" {
			msg += "." + e.Field
		}
		msg += "]"
	} else if e.Field != "" {
		msg += " [" + e.Field + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, entity, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Entity: entity, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around err.
func Wrap(kind ErrorKind, entity string, err error) *Error {
	return &Error{Kind: kind, Entity: entity, Err: err}
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
