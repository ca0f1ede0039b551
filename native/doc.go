// Package native implements the backend contract against an in-process
// PDF engine shared library.
//
// The library is loaded at runtime (no cgo): symbols are resolved with
// dlopen/dlsym via purego and calls pass host pointers directly, so output
// buffers are allocated by the host and written into by the engine without
// copying. Variable-length results use the engine's two-call pattern: one
// call to probe the required size, a second to fill a buffer of exactly
// that size.
//
// Platforms without dlopen support get a stub loader that fails with a
// backend load error; the sandboxed backend remains available there.
package native
