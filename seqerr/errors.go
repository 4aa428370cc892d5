// Package seqerr defines the typed error kinds raised by the seqio readers
// and writers. It is a thin domain layer over github.com/grailbio/base/errors,
// which grailbio-bio itself uses for error construction and context
// attachment (see encoding/fasta/index.go, encoding/pam/pamutil/index.go).
package seqerr

import (
	stderrors "errors"
	"fmt"
	"strconv"

	baseerrors "github.com/grailbio/base/errors"
)

// Kind identifies one of the error surfaces a format handler or reader/writer
// can raise, per the error-handling design.
type Kind int

const (
	// Other is a catch-all for errors that do not fit one of the named kinds.
	Other Kind = iota
	// FileOpen: the source/sink could not be opened, or the chosen
	// compression codec disagreed with the detected magic bytes.
	FileOpen
	// FormatError: the current byte window does not conform to the format
	// grammar. Carries a line number (text) or byte offset (binary).
	FormatError
	// ParseError: grammar is fine but a sub-token could not be converted.
	ParseError
	// MissingHeader: a write-side call required a header that was not
	// supplied.
	MissingHeader
	// UnknownContig: a CHROM reference was not declared in the header.
	UnknownContig
	// UnknownFilter: a FILTER id was not declared in the header.
	UnknownFilter
	// UnknownInfo: an INFO/FORMAT key was not declared in the header.
	UnknownInfo
	// UnexpectedEOF: a binary structure was truncated.
	UnexpectedEOF
)

func (k Kind) String() string {
	switch k {
	case FileOpen:
		return "file-open"
	case FormatError:
		return "format-error"
	case ParseError:
		return "parse-error"
	case MissingHeader:
		return "missing-header-error"
	case UnknownContig:
		return "unknown-contig"
	case UnknownFilter:
		return "unknown-filter"
	case UnknownInfo:
		return "unknown-info"
	case UnexpectedEOF:
		return "unexpected-end-of-input"
	default:
		return "error"
	}
}

// Error is the concrete error type raised across seqio. Context is a free
// form string: a 1-based line number for text formats, a byte offset for
// binary formats, a path, or a contig/filter/info id, depending on Kind.
type Error struct {
	Kind    Kind
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("seqio: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("seqio: %s (%s): %v", e.Kind, e.Context, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E constructs an *Error of the given kind. cause may be nil. The
// construction is routed through github.com/grailbio/base/errors.E, which is
// how grailbio-bio itself attaches path/operation context to an error
// (see encoding/fasta/index.go's errors.E(err, path) and
// encoding/pam/pamutil/index.go's errors.E(err, path)).
func E(kind Kind, context string, cause error) error {
	var wrapped error
	switch {
	case cause == nil:
		wrapped = baseerrors.E(baseKind(kind), context)
	default:
		wrapped = baseerrors.E(baseKind(kind), context, cause)
	}
	return &Error{Kind: kind, Context: context, Err: wrapped}
}

// Linef builds an *Error with a "line N" context string, for text-format
// grammar violations.
func Linef(kind Kind, line int, format string, args ...interface{}) error {
	return E(kind, "line "+strconv.Itoa(line), fmt.Errorf(format, args...))
}

// Offsetf builds an *Error with a "byte offset N" context string, for
// binary-format grammar violations.
func Offsetf(kind Kind, offset int64, format string, args ...interface{}) error {
	return E(kind, "byte offset "+strconv.FormatInt(offset, 10), fmt.Errorf(format, args...))
}

// baseKind maps a domain Kind onto the closest grailbio/base/errors.Kind, so
// that the underlying cause still carries the teacher library's own
// classification (useful to callers that only know about that package).
func baseKind(k Kind) baseerrors.Kind {
	switch k {
	case FileOpen:
		return baseerrors.NotExist
	case FormatError, ParseError:
		return baseerrors.Invalid
	case MissingHeader:
		return baseerrors.Precondition
	case UnknownContig, UnknownFilter, UnknownInfo:
		return baseerrors.NotExist
	case UnexpectedEOF:
		return baseerrors.Integrity
	default:
		return baseerrors.Other
	}
}

// Is reports whether err is a *Error of the given kind, unwrapping as
// needed.
func Is(kind Kind, err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is a *Error, or Other otherwise.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Other
}
