// Package errors provides structured error handling for storage operations.
//
// Every failure a storage action can hit is classified by a Kind, wrapped in
// an *Error carrying the operation and target, reported to the global
// Handler, and finally surfaced to the user as a transient notice. None of
// the kinds is fatal.
package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"time"
)

// Kind identifies the category of an error.
type Kind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindFileNotFound indicates the source or destination file does not exist.
	KindFileNotFound
	// KindIO indicates a read or write failed part way.
	KindIO
	// KindMediaUnavailable indicates external storage is not mounted in the
	// mode the operation needs.
	KindMediaUnavailable
	// KindPermissionDenied indicates the user refused a runtime permission.
	KindPermissionDenied
	// KindNoHandler indicates no installed app can serve a document picker request.
	KindNoHandler
	// KindReadOnly indicates a write to a read-only location (app resources).
	KindReadOnly
	// KindPlatform indicates a platform channel or native bridge error.
	KindPlatform
	// KindParsing indicates an event parsing failure.
	KindParsing
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindFileNotFound:
		return "file_not_found"
	case KindIO:
		return "io"
	case KindMediaUnavailable:
		return "media_unavailable"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNoHandler:
		return "no_handler"
	case KindReadOnly:
		return "read_only"
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per user-facing kind. An *Error of a given kind
// matches its sentinel with errors.Is.
var (
	ErrFileNotFound     = stderrors.New("file not found")
	ErrIO               = stderrors.New("i/o failure")
	ErrMediaUnavailable = stderrors.New("external storage not mounted")
	ErrPermissionDenied = stderrors.New("permission denied")
	ErrNoHandler        = stderrors.New("no app available to handle the request")
	ErrReadOnly         = stderrors.New("location is read-only")
)

// Sentinel returns the sentinel error for kind, or nil for kinds without one.
func Sentinel(kind Kind) error {
	switch kind {
	case KindFileNotFound:
		return ErrFileNotFound
	case KindIO:
		return ErrIO
	case KindMediaUnavailable:
		return ErrMediaUnavailable
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindNoHandler:
		return ErrNoHandler
	case KindReadOnly:
		return ErrReadOnly
	default:
		return nil
	}
}

// Error represents a structured storage error.
type Error struct {
	// Op is the operation that failed (e.g., "filelab.Save").
	Op string
	// Kind categorizes the error.
	Kind Kind
	// Target is the storage target involved, if any.
	Target string
	// Channel is the platform channel name, if applicable.
	Channel string
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

// New returns an *Error for op and kind. A nil err is replaced by the
// sentinel of kind.
func New(op string, kind Kind, target string, err error) *Error {
	if err == nil {
		err = Sentinel(kind)
	}
	return &Error{Op: op, Kind: kind, Target: target, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Target != "":
		return fmt.Sprintf("%s [%s] target=%s: %v", e.Op, e.Kind, e.Target, e.Err)
	case e.Channel != "":
		return fmt.Sprintf("%s [%s] channel=%s: %v", e.Op, e.Kind, e.Channel, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s := Sentinel(e.Kind)
	return s != nil && s == target
}

// KindOf classifies err. Wrapped *Error values report their own kind;
// otherwise the sentinels and fs.ErrNotExist are recognized.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	switch {
	case stderrors.Is(err, ErrFileNotFound), stderrors.Is(err, fs.ErrNotExist):
		return KindFileNotFound
	case stderrors.Is(err, ErrMediaUnavailable):
		return KindMediaUnavailable
	case stderrors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case stderrors.Is(err, ErrNoHandler):
		return KindNoHandler
	case stderrors.Is(err, ErrReadOnly):
		return KindReadOnly
	case stderrors.Is(err, ErrIO):
		return KindIO
	}
	return KindUnknown
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "filelab.Save").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a failure to parse event data.
type ParseError struct {
	// Channel is the platform channel that received the event.
	Channel string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}

// Handler receives errors reported by storage operations.
type Handler interface {
	// HandleError is called when an error occurs.
	HandleError(err *Error)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
