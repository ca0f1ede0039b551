package native

import (
	"context"
	"runtime"
	"unsafe"

	"go.uber.org/zap"

	"github.com/quillbind/quill/backend"
	"github.com/quillbind/quill/handle"
)

// Config configures the native backend.
type Config struct {
	// LibraryPath points at the engine shared library. Empty means the
	// platform's default names are tried on the loader search path.
	LibraryPath string
	// Logger receives load and teardown diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// Backend drives the in-process engine. It is not safe for concurrent use;
// sessions wrap it in the serialization layer, which also serializes the
// internal bookkeeping maps.
type Backend struct {
	lib *library
	log *zap.Logger

	// The engine reads document and font bytes in place rather than
	// copying them, so the host copies must stay pinned until the owning
	// handle is closed.
	docData  map[uint64][]byte
	fontData map[uint64][]byte

	prog    map[uint64]*progressive
	progSeq uint64
}

// progressive is one in-flight progressive render.
type progressive struct {
	page   uintptr
	bmp    uintptr
	pixels []byte
	pause  *ifsdkPause
	width  int
	height int
}

// Load opens the engine shared library, resolves its entry points and
// initializes the engine. Failures are *backend.LoadError.
func Load(cfg Config) (*Backend, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	lib, err := openLibrary(cfg.LibraryPath)
	if err != nil {
		return nil, &backend.LoadError{Backend: "native", Err: err}
	}
	lib.initLibraryWithConfig(&libraryConfig{version: 2})
	log.Debug("native engine loaded", zap.String("library_path", cfg.LibraryPath))
	return &Backend{
		lib:      lib,
		log:      log,
		docData:  make(map[uint64][]byte),
		fontData: make(map[uint64][]byte),
		prog:     make(map[uint64]*progressive),
	}, nil
}

func (b *Backend) Name() string { return "native" }

func (b *Backend) OpenDocument(_ context.Context, data []byte, password string) (uint64, error) {
	if len(data) == 0 {
		return 0, &backend.OpenError{Reason: backend.OpenCorrupt}
	}
	// The engine keeps reading from this buffer for the life of the
	// document, so a private copy is pinned in docData until close.
	pinned := make([]byte, len(data))
	copy(pinned, data)

	var pw *byte
	if password != "" {
		pwBytes := append([]byte(password), 0)
		pw = &pwBytes[0]
	}

	doc := b.lib.loadMemDocument(unsafe.Pointer(&pinned[0]), int32(len(pinned)), pw)
	runtime.KeepAlive(password)
	if doc == 0 {
		return 0, backend.MapOpenStatus(uint32(b.lib.getLastError()))
	}
	b.docData[uint64(doc)] = pinned
	return uint64(doc), nil
}

func (b *Backend) PageCount(_ context.Context, doc uint64) (int, error) {
	n := b.lib.getPageCount(uintptr(doc))
	if n < 0 {
		return 0, &backend.EngineError{Op: "page count"}
	}
	return int(n), nil
}

func (b *Backend) LoadPage(_ context.Context, doc uint64, index int) (uint64, error) {
	page := b.lib.loadPage(uintptr(doc), int32(index))
	if page == 0 {
		return 0, &backend.EngineError{Op: "load page", Code: uint32(b.lib.getLastError())}
	}
	return uint64(page), nil
}

func (b *Backend) PageSize(_ context.Context, page uint64) (float64, float64, error) {
	w := b.lib.getPageWidthF(uintptr(page))
	h := b.lib.getPageHeightF(uintptr(page))
	if w <= 0 || h <= 0 {
		return 0, 0, &backend.EngineError{Op: "page size"}
	}
	return float64(w), float64(h), nil
}

func (b *Backend) LoadTextPage(_ context.Context, page uint64) (uint64, error) {
	tp := b.lib.textLoadPage(uintptr(page))
	if tp == 0 {
		return 0, &backend.EngineError{Op: "load text page"}
	}
	return uint64(tp), nil
}

func (b *Backend) TextLength(_ context.Context, textPage uint64) (int, error) {
	n := b.lib.textCountChars(uintptr(textPage))
	if n < 0 {
		return 0, &backend.EngineError{Op: "count text"}
	}
	return int(n), nil
}

func (b *Backend) Text(ctx context.Context, textPage uint64, limits backend.Limits) (string, error) {
	count, err := b.TextLength(ctx, textPage)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", nil
	}
	if limits.MaxTextChars > 0 && count > limits.MaxTextChars {
		return "", &backend.TextError{Length: count, Limit: limits.MaxTextChars}
	}

	// UTF-16LE, plus one slot for the engine's NUL terminator.
	buf := make([]uint16, count+1)
	written := b.lib.textGetText(uintptr(textPage), 0, int32(count), &buf[0])
	if written <= 0 {
		return "", &backend.EngineError{Op: "extract text"}
	}

	raw := make([]byte, 2*count)
	for i := 0; i < count; i++ {
		raw[2*i] = byte(buf[i])
		raw[2*i+1] = byte(buf[i] >> 8)
	}
	return backend.DecodeUTF16(raw)
}

func (b *Backend) RenderPage(_ context.Context, page uint64, req backend.RenderRequest) (backend.RenderResult, error) {
	stride := req.Width * 4
	pixels := make([]byte, stride*req.Height)

	// The engine writes straight into the host buffer; size and stride
	// must match exactly what it expects for the BGRA format.
	bmp := b.lib.bitmapCreateEx(int32(req.Width), int32(req.Height), bitmapFormatBGRA,
		unsafe.Pointer(&pixels[0]), int32(stride))
	if bmp == 0 {
		return backend.RenderResult{}, &backend.EngineError{Op: "create bitmap"}
	}
	b.lib.bitmapFillRect(bmp, 0, 0, int32(req.Width), int32(req.Height), uintptr(req.Background))
	b.lib.renderPageBitmap(bmp, uintptr(page), 0, 0, int32(req.Width), int32(req.Height),
		int32(req.Rotation), int32(req.Flags))
	b.lib.bitmapDestroy(bmp)
	runtime.KeepAlive(pixels)

	return backend.RenderResult{
		Width:  req.Width,
		Height: req.Height,
		Stride: stride,
		Pixels: backend.SwapBGRA(pixels),
	}, nil
}

func (b *Backend) ProgressiveStart(_ context.Context, page uint64, req backend.RenderRequest) (uint64, backend.RenderStatus, error) {
	stride := req.Width * 4
	pixels := make([]byte, stride*req.Height)

	bmp := b.lib.bitmapCreateEx(int32(req.Width), int32(req.Height), bitmapFormatBGRA,
		unsafe.Pointer(&pixels[0]), int32(stride))
	if bmp == 0 {
		return 0, backend.RenderFailed, &backend.EngineError{Op: "create bitmap"}
	}
	b.lib.bitmapFillRect(bmp, 0, 0, int32(req.Width), int32(req.Height), uintptr(req.Background))

	pause := &ifsdkPause{version: 1, needToPauseNow: b.lib.pauseEverySlice}
	status := b.lib.renderPageBitmapStart(bmp, uintptr(page), 0, 0,
		int32(req.Width), int32(req.Height), int32(req.Rotation), int32(req.Flags), pause)
	if backend.RenderStatus(status) == backend.RenderFailed {
		b.lib.renderPageClose(uintptr(page))
		b.lib.bitmapDestroy(bmp)
		return 0, backend.RenderFailed, &backend.EngineError{Op: "progressive render"}
	}

	b.progSeq++
	id := b.progSeq
	b.prog[id] = &progressive{
		page:   uintptr(page),
		bmp:    bmp,
		pixels: pixels,
		pause:  pause,
		width:  req.Width,
		height: req.Height,
	}
	return id, backend.RenderStatus(status), nil
}

func (b *Backend) ProgressiveContinue(_ context.Context, pr uint64) (backend.RenderStatus, error) {
	p, ok := b.prog[pr]
	if !ok {
		return backend.RenderFailed, &backend.EngineError{Op: "progressive continue"}
	}
	status := b.lib.renderPageContinue(p.page, p.pause)
	if backend.RenderStatus(status) == backend.RenderFailed {
		return backend.RenderFailed, &backend.EngineError{Op: "progressive continue"}
	}
	return backend.RenderStatus(status), nil
}

func (b *Backend) ProgressiveFinish(_ context.Context, pr uint64) (backend.RenderResult, error) {
	p, ok := b.prog[pr]
	if !ok {
		return backend.RenderResult{}, &backend.EngineError{Op: "progressive finish"}
	}
	b.closeProgressive(pr, p)
	return backend.RenderResult{
		Width:  p.width,
		Height: p.height,
		Stride: p.width * 4,
		Pixels: backend.SwapBGRA(p.pixels),
	}, nil
}

func (b *Backend) closeProgressive(id uint64, p *progressive) {
	b.lib.renderPageClose(p.page)
	b.lib.bitmapDestroy(p.bmp)
	runtime.KeepAlive(p.pixels)
	delete(b.prog, id)
}

func (b *Backend) LoadFont(_ context.Context, doc uint64, data []byte, kind backend.FontKind) (uint64, error) {
	if len(data) == 0 {
		return 0, &backend.EngineError{Op: "load font"}
	}
	pinned := make([]byte, len(data))
	copy(pinned, data)

	fontType := int32(2) // TrueType
	if kind == backend.FontType1 {
		fontType = 1
	}
	font := b.lib.textLoadFont(uintptr(doc), unsafe.Pointer(&pinned[0]), uint32(len(pinned)), fontType, 0)
	if font == 0 {
		return 0, &backend.EngineError{Op: "load font"}
	}
	b.fontData[uint64(font)] = pinned
	return uint64(font), nil
}

func (b *Backend) MetaText(_ context.Context, doc uint64, tag string) (string, error) {
	return b.twoCallUTF16(func(buf unsafe.Pointer, buflen uintptr) uintptr {
		return b.lib.getMetaText(uintptr(doc), tag, buf, buflen)
	})
}

func (b *Backend) PageLabel(_ context.Context, doc uint64, index int) (string, error) {
	return b.twoCallUTF16(func(buf unsafe.Pointer, buflen uintptr) uintptr {
		return b.lib.getPageLabel(uintptr(doc), int32(index), buf, buflen)
	})
}

func (b *Backend) BookmarkFirstChild(_ context.Context, doc, bm uint64) (uint64, error) {
	return uint64(b.lib.bookmarkGetFirstChild(uintptr(doc), uintptr(bm))), nil
}

func (b *Backend) BookmarkNextSibling(_ context.Context, doc, bm uint64) (uint64, error) {
	return uint64(b.lib.bookmarkGetNextSibling(uintptr(doc), uintptr(bm))), nil
}

func (b *Backend) BookmarkTitle(_ context.Context, bm uint64) (string, error) {
	return b.twoCallUTF16(func(buf unsafe.Pointer, buflen uintptr) uintptr {
		return b.lib.bookmarkGetTitle(uintptr(bm), buf, buflen)
	})
}

func (b *Backend) BookmarkDestPage(_ context.Context, doc, bm uint64) (int, error) {
	dest := b.lib.bookmarkGetDest(uintptr(doc), uintptr(bm))
	if dest == 0 {
		return -1, nil
	}
	return int(b.lib.destGetDestPageIndex(uintptr(doc), dest)), nil
}

// twoCallUTF16 runs the engine's size-probe-then-fill pattern for calls
// that produce UTF-16LE strings. A reported size of two bytes is just the
// NUL terminator, i.e. no value.
func (b *Backend) twoCallUTF16(call func(buf unsafe.Pointer, buflen uintptr) uintptr) (string, error) {
	n := call(nil, 0)
	if n <= 2 {
		return "", nil
	}
	buf := make([]byte, n)
	call(unsafe.Pointer(&buf[0]), n)
	runtime.KeepAlive(buf)
	return backend.DecodeUTF16(buf)
}

func (b *Backend) CloseHandle(_ context.Context, kind handle.Kind, raw uint64) error {
	switch kind {
	case handle.KindDocument:
		b.lib.closeDocument(uintptr(raw))
		delete(b.docData, raw)
	case handle.KindPage:
		b.lib.closePage(uintptr(raw))
	case handle.KindTextPage:
		b.lib.textClosePage(uintptr(raw))
	case handle.KindBitmap:
		b.lib.bitmapDestroy(uintptr(raw))
	case handle.KindFont:
		b.lib.fontClose(uintptr(raw))
		delete(b.fontData, raw)
	case handle.KindProgressive:
		if p, ok := b.prog[raw]; ok {
			b.closeProgressive(raw, p)
		}
	}
	return nil
}

func (b *Backend) Shutdown(_ context.Context) error {
	for id, p := range b.prog {
		b.closeProgressive(id, p)
	}
	b.lib.destroyLibrary()
	b.log.Debug("native engine shut down")
	return nil
}
