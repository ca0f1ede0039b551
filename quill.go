// Package quill provides a Go interface to a foreign PDF engine through
// two interchangeable backends: a natively linked shared library and a
// sandboxed WebAssembly build of the same engine.
//
// Basic usage:
//
//	eng, err := quill.Init(ctx, quill.Config{})
//	if err != nil {
//	    // handle error
//	}
//	defer eng.Close()
//
//	doc, err := eng.OpenDocument(ctx, pdfBytes, "")
//	if err != nil {
//	    // handle error
//	}
//	defer doc.Close()
//
//	page, err := doc.Page(ctx, 0)
//	if err != nil {
//	    // handle error
//	}
//	text, err := page.Text(ctx)
//
// Every object returned by the API wraps exactly one foreign handle and
// owns the handles created through it: closing a document closes its
// pages, text pages, and fonts, newest first. Closing twice is a no-op,
// and using anything after it (or its owner) was closed fails with
// [handle.UseAfterDisposeError] rather than touching a stale foreign
// pointer.
//
// One Engine is one session. All calls within a session are serialized at
// the foreign call boundary; for parallelism, open one session per
// goroutine. Sessions are independent: separate sandbox instances, or
// separate bookkeeping over the shared native library.
//
// # Backends
//
// [BackendNative] loads the engine's shared library into the process and
// calls it directly. [BackendSandbox] runs a WebAssembly build of the
// engine in an isolated linear memory; document bytes, strings, and
// rasters are copied across the boundary, so a malformed document can at
// worst corrupt the sandbox, never the host. [BackendAuto] prefers native
// and falls back to the sandbox when a wasm module is configured.
package quill
