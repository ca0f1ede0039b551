package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/quillbind/quill/backend"
	"github.com/quillbind/quill/bridge"
)

// Config configures the sandboxed backend.
type Config struct {
	// WasmModule is the engine compiled to WebAssembly. Required.
	WasmModule []byte
	// MemoryCeilingPages caps the linear memory, in 64 KiB pages. Zero
	// means the bridge default.
	MemoryCeilingPages uint32
	// Logger receives load and teardown diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// wazeroExports adapts a wazero module to the export lookup the backend
// uses. ExportedFunction returns a typed nil for missing names, which must
// not leak into the fn interface as a non-nil value.
type wazeroExports struct {
	mod api.Module
}

func (w wazeroExports) fn(name string) fn {
	f := w.mod.ExportedFunction(name)
	if f == nil {
		return nil
	}
	return f
}

// Load compiles and instantiates the engine module inside a fresh runtime
// and initializes the engine. Every failure is a *backend.LoadError: an
// unusable module is a load problem, never a document problem.
func Load(ctx context.Context, cfg Config) (*Backend, error) {
	if len(cfg.WasmModule) == 0 {
		return nil, &backend.LoadError{Backend: "sandbox", Err: errors.New("no engine module configured")}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	runtime := wazero.NewRuntime(ctx)
	ok := false
	defer func() {
		if !ok {
			_ = runtime.Close(ctx)
		}
	}()

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, &backend.LoadError{Backend: "sandbox", Err: fmt.Errorf("instantiate WASI: %w", err)}
	}

	compiled, err := runtime.CompileModule(ctx, cfg.WasmModule)
	if err != nil {
		return nil, &backend.LoadError{Backend: "sandbox", Err: fmt.Errorf("compile module: %w", err)}
	}

	mod, err := runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName("pdf-engine").WithStartFunctions())
	if err != nil {
		return nil, &backend.LoadError{Backend: "sandbox", Err: fmt.Errorf("instantiate module: %w", err)}
	}

	// Reactor-style modules initialize explicitly rather than via _start.
	if initFn := mod.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			return nil, &backend.LoadError{Backend: "sandbox", Err: fmt.Errorf("initialize module: %w", err)}
		}
	}

	mem := mod.Memory()
	if mem == nil {
		return nil, &backend.LoadError{Backend: "sandbox", Err: errors.New("module exports no linear memory")}
	}

	ex, err := resolveExports(wazeroExports{mod: mod})
	if err != nil {
		return nil, &backend.LoadError{Backend: "sandbox", Err: err}
	}

	br := bridge.New(mem, &wasmAllocator{malloc: ex.malloc, free: ex.free},
		bridge.WithCeiling(cfg.MemoryCeilingPages), bridge.WithLogger(log))

	if _, err := ex.initLibrary.Call(ctx); err != nil {
		return nil, &backend.LoadError{Backend: "sandbox", Err: fmt.Errorf("initialize engine: %w", err)}
	}

	log.Debug("sandbox engine loaded",
		zap.Int("module_bytes", len(cfg.WasmModule)),
		zap.Uint32("memory_ceiling_pages", cfg.MemoryCeilingPages))

	ok = true
	return &Backend{
		ex:           ex,
		br:           br,
		log:          log,
		docRegions:   make(map[uint64]bridge.Region),
		prog:         make(map[uint64]backend.RenderResult),
		closeRuntime: runtime.Close,
	}, nil
}
