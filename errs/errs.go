// Package errs defines the error kinds the state codec returns. Every
// layer — primitive, framed-record, and top-level blob — reports failure
// through one of these kinds so callers can branch on *what went wrong*,
// not just display a message.
package errs

import "github.com/pkg/errors"

// Kind is one of the error kinds from the wire-format contract.
type Kind int

const (
	// Insufficient indicates a cursor underflow on read or overflow on
	// write.
	Insufficient Kind = iota
	// BadTag indicates a magic mismatch, or a trailing-sentinel mismatch.
	BadTag
	// BadVersion indicates a stored version exceeds the reader's version
	// for that record.
	BadVersion
	// Size indicates an array cardinality or byte-length differs from the
	// reader's fixed expectation.
	Size
	// BadParameter covers unknown algorithm tags, clock-size discriminator
	// mismatches, compile-constant mismatches, missing mandatory skip
	// blocks, and handles of unknown type where a more specific Kind
	// doesn't apply.
	BadParameter
	// Handle indicates a user-NVRAM entry carries a handle of a type the
	// codec cannot dispatch.
	Handle
)

func (k Kind) String() string {
	switch k {
	case Insufficient:
		return "INSUFFICIENT"
	case BadTag:
		return "BAD_TAG"
	case BadVersion:
		return "BAD_VERSION"
	case Size:
		return "SIZE"
	case BadParameter:
		return "BAD_PARAMETER"
	case Handle:
		return "HANDLE"
	default:
		return "UNKNOWN"
	}
}

// codecError pairs a Kind with the wrapped diagnostic produced by
// github.com/pkg/errors, so the call chain (record name, field name,
// offending values) survives while still being classifiable by Kind.
type codecError struct {
	kind Kind
	err  error
}

func (e *codecError) Error() string { return e.err.Error() }
func (e *codecError) Cause() error  { return e.err }
func (e *codecError) Unwrap() error { return e.err }

// New builds an error of the given kind, with a record/field-qualified
// message, matching the "logging the offending name" requirement on every
// leaf read/write failure.
func New(kind Kind, format string, args ...interface{}) error {
	return &codecError{kind: kind, err: errors.Errorf(format, args...)}
}

// Wrap adds context to an error already produced deeper in the call
// chain (e.g. a nested record's Unmarshal failure), preserving the
// original Kind if err already carries one; an error without a Kind is
// wrapped without one.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if k, ok := KindOf(err); ok {
		return &codecError{kind: k, err: errors.Wrap(err, context)}
	}
	return errors.Wrap(err, context)
}

// KindOf extracts the Kind from an error produced by New, unwrapping
// through any github.com/pkg/errors wrapping in between.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if ce, ok := err.(*codecError); ok {
			return ce.kind, true
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return 0, false
}

// Is reports whether err was created (possibly wrapped) with the given
// Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
