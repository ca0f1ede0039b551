// Package backend defines the capability contract implemented by both PDF
// engine backends, along with the closed error taxonomy shared across them.
//
// The [Backend] interface is intentionally narrow and fixed: exactly two
// implementations exist, a directly linked native binding (package native)
// and a sandboxed linear-memory runtime (package sandbox), and callers are
// agnostic to which one is active. There are no hooks for a third.
//
// # Validation
//
// Inputs are validated on the host side before crossing into foreign code:
// page indices against the page count, render dimensions against configured
// caps. Violations fail fast with [*RangeError] rather than propagating an
// undefined foreign-engine failure.
//
// # Errors
//
// Failures from the foreign engine are translated at this boundary into a
// small closed set of error kinds ([*LoadError], [*OpenError],
// [*RangeError], [*TextError], [*EngineError]); raw status codes are
// never leaked to callers. See [MapOpenStatus].
//
// # Serialization
//
// A single engine session is not safely reentrant. [Serialized] wraps any
// Backend so that all calls against it are serialized by one mutex at the
// foreign-call boundary; callers needing parallelism use separate sessions.
package backend
