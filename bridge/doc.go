// Package bridge moves bytes into and out of a sandboxed linear memory
// space on behalf of backend calls.
//
// The sandboxed runtime cannot address host memory, so every buffer that
// crosses the boundary is first materialized inside the sandbox as a
// [Region], an (offset, length) pair inside the linear memory. The
// [Bridge] pairs the sandbox's own allocator with the linear memory and
// enforces two invariants:
//
//   - every Alloc has exactly one matching Free on every exit path; the
//     bridge counts both so tests can assert the books balance, because a
//     region leaked inside the sandbox can never be reclaimed externally
//   - when the sandbox allocator reports exhaustion, the bridge grows the
//     linear memory page by page up to a configured ceiling; beyond the
//     ceiling allocation fails with [*OutOfMemoryError]
//
// The bridge performs no locking of its own. Calls into one sandbox
// instance are serialized by the session that owns it, and the bridge
// relies on that same discipline.
package bridge
