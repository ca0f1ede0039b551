package quill

import (
	"go.uber.org/zap"

	"github.com/quillbind/quill/backend"
)

// BackendChoice selects how the foreign engine is hosted.
type BackendChoice int

const (
	// BackendAuto tries the native library first and falls back to the
	// sandbox when a wasm module is configured.
	BackendAuto BackendChoice = iota
	// BackendNative links the engine's shared library into the process.
	BackendNative
	// BackendSandbox runs a WebAssembly build of the engine in an
	// isolated linear memory.
	BackendSandbox
)

func (c BackendChoice) String() string {
	switch c {
	case BackendNative:
		return "native"
	case BackendSandbox:
		return "sandbox"
	default:
		return "auto"
	}
}

// Config configures one engine session.
type Config struct {
	// Backend selects the hosting strategy. Default BackendAuto.
	Backend BackendChoice

	// LibraryPath points the native backend at an engine shared library.
	// Empty tries the platform's default names on the loader search path.
	LibraryPath string

	// WasmModule is the engine compiled to WebAssembly, for the sandboxed
	// backend. Required when Backend is BackendSandbox; enables the auto
	// fallback otherwise.
	WasmModule []byte

	// MemoryCeilingPages caps the sandbox linear memory, in 64 KiB pages.
	// Zero means the default ceiling. Ignored by the native backend.
	MemoryCeilingPages uint32

	// Limits caps how much data may cross from the engine into host
	// buffers. Zero-valued fields take the defaults from
	// [backend.DefaultLimits].
	Limits backend.Limits

	// Logger receives session diagnostics. Nil means no logging.
	Logger *zap.Logger

	// testBackend bypasses backend loading entirely under test.
	testBackend backend.Backend
}

func (c Config) effectiveLimits() backend.Limits {
	limits := c.Limits
	defaults := backend.DefaultLimits()
	if limits.MaxTextChars == 0 {
		limits.MaxTextChars = defaults.MaxTextChars
	}
	if limits.MaxRenderDimension == 0 {
		limits.MaxRenderDimension = defaults.MaxRenderDimension
	}
	if limits.MaxRenderPixels == 0 {
		limits.MaxRenderPixels = defaults.MaxRenderPixels
	}
	return limits
}
