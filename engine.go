package quill

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quillbind/quill/backend"
	"github.com/quillbind/quill/handle"
	"github.com/quillbind/quill/native"
	"github.com/quillbind/quill/sandbox"
)

// Engine is one session against the foreign PDF engine. All calls through
// an Engine are serialized at the foreign call boundary; open one Engine
// per goroutine for parallel work.
type Engine struct {
	id     string
	be     backend.Backend
	reg    *handle.Registry
	limits backend.Limits
	log    *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Init loads a backend per cfg and starts a session. Backend load failures
// are *backend.LoadError, distinct from the errors documents produce.
func Init(ctx context.Context, cfg Config) (*Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	be := cfg.testBackend
	if be == nil {
		loaded, err := loadBackend(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		be = loaded
	}
	be = backend.Serialized(be)

	eng := &Engine{
		id:     uuid.NewString(),
		be:     be,
		limits: cfg.effectiveLimits(),
		log:    log,
	}
	eng.reg = handle.NewRegistry(func(kind handle.Kind, raw uint64) error {
		return be.CloseHandle(context.Background(), kind, raw)
	})

	log.Info("engine session started",
		zap.String("session", eng.id),
		zap.String("backend", be.Name()))
	return eng, nil
}

func loadBackend(ctx context.Context, cfg Config, log *zap.Logger) (backend.Backend, error) {
	switch cfg.Backend {
	case BackendNative:
		return native.Load(native.Config{LibraryPath: cfg.LibraryPath, Logger: log})
	case BackendSandbox:
		return sandbox.Load(ctx, sandbox.Config{
			WasmModule:         cfg.WasmModule,
			MemoryCeilingPages: cfg.MemoryCeilingPages,
			Logger:             log,
		})
	default:
		nat, natErr := native.Load(native.Config{LibraryPath: cfg.LibraryPath, Logger: log})
		if natErr == nil {
			return nat, nil
		}
		if len(cfg.WasmModule) == 0 {
			return nil, natErr
		}
		log.Debug("native backend unavailable, trying sandbox", zap.Error(natErr))
		sb, sbErr := sandbox.Load(ctx, sandbox.Config{
			WasmModule:         cfg.WasmModule,
			MemoryCeilingPages: cfg.MemoryCeilingPages,
			Logger:             log,
		})
		if sbErr != nil {
			return nil, &backend.LoadError{Backend: "auto", Err: errors.Join(natErr, sbErr)}
		}
		return sb, nil
	}
}

// Backend reports which backend the session runs on.
func (e *Engine) Backend() string { return e.be.Name() }

// LiveHandles reports how many foreign handles the session currently owns.
func (e *Engine) LiveHandles() int { return e.reg.Live() }

// OpenDocument parses an in-memory document. password may be empty.
// The Document owns every page, text page, and font created through it.
func (e *Engine) OpenDocument(ctx context.Context, data []byte, password string) (*Document, error) {
	raw, err := e.be.OpenDocument(ctx, data, password)
	if err != nil {
		return nil, err
	}
	h, err := e.reg.New(handle.KindDocument, raw, nil)
	if err != nil {
		_ = e.be.CloseHandle(ctx, handle.KindDocument, raw)
		return nil, err
	}
	count, err := e.be.PageCount(ctx, raw)
	if err != nil {
		_ = h.Dispose()
		return nil, err
	}
	return &Document{eng: e, h: h, pageCount: count}, nil
}

// Close releases every handle the session still owns, newest first, then
// shuts the backend down. Safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		relErr := e.reg.ReleaseAll()
		shutErr := e.be.Shutdown(context.Background())
		e.closeErr = errors.Join(relErr, shutErr)
		e.log.Info("engine session closed",
			zap.String("session", e.id), zap.Error(e.closeErr))
	})
	return e.closeErr
}
