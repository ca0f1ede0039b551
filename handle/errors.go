package handle

import "fmt"

// UseAfterDisposeError reports that a disposed handle was dereferenced.
// This always indicates a bug in the caller's lifecycle management, not a
// transient condition, so it should be surfaced rather than retried.
type UseAfterDisposeError struct {
	Kind Kind   // kind of the offending handle
	Hint string // human-readable context, e.g. the operation attempted
}

func (e *UseAfterDisposeError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s handle used after dispose", e.Kind)
	}
	return fmt.Sprintf("%s handle used after dispose: %s", e.Kind, e.Hint)
}
