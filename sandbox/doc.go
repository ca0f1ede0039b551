// Package sandbox implements the backend contract against a PDF engine
// compiled to WebAssembly and run inside an isolated linear-memory runtime.
//
// The sandboxed engine cannot address host memory, so every buffer that
// crosses the boundary follows a five-step protocol: allocate region(s)
// inside the linear memory, copy host data in, invoke the engine with
// region offsets instead of host pointers, read result region(s) back out,
// and free every region used by the call, on success and on failure
// alike. A region leaked on an error path is lost for the life of the
// sandbox instance, so deallocation is written as unconditional deferred
// cleanup, never as a success-path afterthought.
//
// Handle values issued by this backend are offsets into the sandbox's own
// object space and are meaningless to any other backend or instance.
package sandbox
