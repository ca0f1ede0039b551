package backend

import "fmt"

// LoadError reports that a backend could not be brought up at all: the
// native library is missing or unloadable, or the sandbox module is absent
// or incompatible. It is deliberately distinct from document-open failures.
type LoadError struct {
	Backend string // "native" or "sandbox"
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load %s backend: %v", e.Backend, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// OpenReason classifies why a document failed to open.
type OpenReason int

const (
	// OpenCorrupt means the input is not a parseable document.
	OpenCorrupt OpenReason = iota + 1
	// OpenBadPassword means the document is encrypted and the supplied
	// password (possibly empty) was rejected.
	OpenBadPassword
	// OpenUnsupportedSecurity means the document uses a security scheme
	// the engine does not support.
	OpenUnsupportedSecurity
)

func (r OpenReason) String() string {
	switch r {
	case OpenCorrupt:
		return "corrupt or unreadable document"
	case OpenBadPassword:
		return "password required or incorrect"
	case OpenUnsupportedSecurity:
		return "unsupported security scheme"
	default:
		return "unknown open failure"
	}
}

// OpenError reports a document that could not be opened. Code carries the
// foreign status for diagnostics; callers branch on Reason.
type OpenError struct {
	Reason OpenReason
	Code   uint32
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open document: %s (engine status %d)", e.Reason, e.Code)
}

// RangeError reports an out-of-range input caught before it reached the
// foreign engine.
type RangeError struct {
	What  string // e.g. "page index", "render width"
	Value int
	Min   int
	Max   int // inclusive
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.What, e.Value, e.Min, e.Max)
}

// TextError reports that extracted text would exceed the configured cap.
// The extraction fails outright; text is never silently truncated.
type TextError struct {
	Length int
	Limit  int
}

func (e *TextError) Error() string {
	return fmt.Sprintf("extracted text length %d exceeds maximum %d", e.Length, e.Limit)
}

// EngineError wraps a foreign-engine failure that maps to no more specific
// kind. The raw status (and, for the sandboxed backend, the runtime's own
// error) is preserved for diagnostics but callers should treat both as
// opaque.
type EngineError struct {
	Op   string // the operation that failed
	Code uint32 // foreign status code, 0 if the engine reported none
	Err  error  // underlying runtime error, if any
}

func (e *EngineError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("engine failure in %s: %v", e.Op, e.Err)
	case e.Code != 0:
		return fmt.Sprintf("engine failure in %s (status %d)", e.Op, e.Code)
	default:
		return fmt.Sprintf("engine failure in %s", e.Op)
	}
}

func (e *EngineError) Unwrap() error { return e.Err }
