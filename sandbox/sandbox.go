package sandbox

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/quillbind/quill/backend"
	"github.com/quillbind/quill/bridge"
	"github.com/quillbind/quill/handle"
)

// Backend drives the sandboxed engine. Not safe for concurrent use;
// sessions wrap it in the serialization layer, which also protects the
// bridge and the bookkeeping maps.
type Backend struct {
	ex  *exports
	br  *bridge.Bridge
	log *zap.Logger

	// The engine reads the document bytes in place inside the sandbox, so
	// the backing region lives until the document handle is closed.
	docRegions map[uint64]bridge.Region

	// Completed progressive rasters. The sandboxed engine cannot call
	// back into the host mid-render, so a progressive render completes
	// within Start and Continue only reports done.
	prog    map[uint64]backend.RenderResult
	progSeq uint64

	// closeRuntime tears down the runtime instance; nil in tests.
	closeRuntime func(ctx context.Context) error
}

func (b *Backend) Name() string { return "sandbox" }

// Bridge exposes the memory bridge for allocation-accounting assertions.
func (b *Backend) Bridge() *bridge.Bridge { return b.br }

// call invokes one engine export, translating runtime faults into the
// engine error kind.
func (b *Backend) call(ctx context.Context, op string, f fn, params ...uint64) ([]uint64, error) {
	res, err := f.Call(ctx, params...)
	if err != nil {
		return nil, &backend.EngineError{Op: op, Err: err}
	}
	return res, nil
}

func (b *Backend) lastError(ctx context.Context) uint32 {
	res, err := b.ex.getLastError.Call(ctx)
	if err != nil || len(res) == 0 {
		return backend.StatusUnknown
	}
	return uint32(res[0])
}

func (b *Backend) OpenDocument(ctx context.Context, data []byte, password string) (uint64, error) {
	if len(data) == 0 {
		return 0, &backend.OpenError{Reason: backend.OpenCorrupt}
	}
	docRegion, err := b.br.Alloc(ctx, uint32(len(data)))
	if err != nil {
		return 0, err
	}
	// The document region is freed here only on failure; on success it
	// stays allocated until the document closes.
	keep := false
	defer func() {
		if !keep {
			if ferr := b.br.Free(ctx, docRegion); ferr != nil {
				b.log.Warn("document region rollback failed", zap.Error(ferr))
			}
		}
	}()
	if err := b.br.Write(docRegion, data); err != nil {
		return 0, err
	}

	pwOffset := uint64(0)
	if password != "" {
		pwRegion, err := b.br.Alloc(ctx, uint32(len(password)+1))
		if err != nil {
			return 0, err
		}
		defer func() {
			// The engine reads the password during open only.
			if ferr := b.br.Free(ctx, pwRegion); ferr != nil {
				b.log.Warn("password region rollback failed", zap.Error(ferr))
			}
		}()
		if err := b.br.Write(pwRegion, append([]byte(password), 0)); err != nil {
			return 0, err
		}
		pwOffset = uint64(pwRegion.Offset)
	}

	res, err := b.call(ctx, "open document", b.ex.loadMemDocument,
		uint64(docRegion.Offset), uint64(len(data)), pwOffset)
	if err != nil {
		return 0, err
	}
	doc := res[0]
	if doc == 0 {
		return 0, backend.MapOpenStatus(b.lastError(ctx))
	}

	keep = true
	b.docRegions[doc] = docRegion
	return doc, nil
}

func (b *Backend) PageCount(ctx context.Context, doc uint64) (int, error) {
	res, err := b.call(ctx, "page count", b.ex.getPageCount, doc)
	if err != nil {
		return 0, err
	}
	n := int(int32(res[0]))
	if n < 0 {
		return 0, &backend.EngineError{Op: "page count"}
	}
	return n, nil
}

func (b *Backend) LoadPage(ctx context.Context, doc uint64, index int) (uint64, error) {
	res, err := b.call(ctx, "load page", b.ex.loadPage, doc, uint64(index))
	if err != nil {
		return 0, err
	}
	if res[0] == 0 {
		return 0, &backend.EngineError{Op: "load page", Code: b.lastError(ctx)}
	}
	return res[0], nil
}

func (b *Backend) PageSize(ctx context.Context, page uint64) (float64, float64, error) {
	wres, err := b.call(ctx, "page width", b.ex.getPageWidthF, page)
	if err != nil {
		return 0, 0, err
	}
	hres, err := b.call(ctx, "page height", b.ex.getPageHeightF, page)
	if err != nil {
		return 0, 0, err
	}
	w := float64(math.Float32frombits(uint32(wres[0])))
	h := float64(math.Float32frombits(uint32(hres[0])))
	if w <= 0 || h <= 0 {
		return 0, 0, &backend.EngineError{Op: "page size"}
	}
	return w, h, nil
}

func (b *Backend) LoadTextPage(ctx context.Context, page uint64) (uint64, error) {
	res, err := b.call(ctx, "load text page", b.ex.textLoadPage, page)
	if err != nil {
		return 0, err
	}
	if res[0] == 0 {
		return 0, &backend.EngineError{Op: "load text page"}
	}
	return res[0], nil
}

func (b *Backend) TextLength(ctx context.Context, textPage uint64) (int, error) {
	res, err := b.call(ctx, "count text", b.ex.textCountChars, textPage)
	if err != nil {
		return 0, err
	}
	n := int(int32(res[0]))
	if n < 0 {
		return 0, &backend.EngineError{Op: "count text"}
	}
	return n, nil
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

	// UTF-16LE plus NUL terminator.
	region, err := b.br.Alloc(ctx, uint32(2*(count+1)))
	if err != nil {
		return "", err
	}
	defer func() {
		if ferr := b.br.Free(ctx, region); ferr != nil {
			b.log.Warn("text region rollback failed", zap.Error(ferr))
		}
	}()

	res, err := b.call(ctx, "extract text", b.ex.textGetText,
		textPage, 0, uint64(count), uint64(region.Offset))
	if err != nil {
		return "", err
	}
	if int32(res[0]) <= 0 {
		return "", &backend.EngineError{Op: "extract text"}
	}

	raw, err := b.br.ReadAt(region, 0, uint32(2*count))
	if err != nil {
		return "", err
	}
	return backend.DecodeUTF16(raw)
}

// renderToBitmap rasters a page into an engine-owned bitmap and copies the
// pixels out as RGBA. The bitmap lives entirely inside the sandbox, so the
// only crossing is the final read-back.
func (b *Backend) renderToBitmap(ctx context.Context, page uint64, req backend.RenderRequest) (backend.RenderResult, error) {
	res, err := b.call(ctx, "create bitmap", b.ex.bitmapCreate,
		uint64(req.Width), uint64(req.Height), 1)
	if err != nil {
		return backend.RenderResult{}, err
	}
	bmp := res[0]
	if bmp == 0 {
		return backend.RenderResult{}, &backend.EngineError{Op: "create bitmap"}
	}
	defer func() {
		if _, derr := b.ex.bitmapDestroy.Call(ctx, bmp); derr != nil {
			b.log.Warn("bitmap destroy failed", zap.Error(derr))
		}
	}()

	if _, err := b.call(ctx, "fill bitmap", b.ex.bitmapFillRect,
		bmp, 0, 0, uint64(req.Width), uint64(req.Height), uint64(req.Background)); err != nil {
		return backend.RenderResult{}, err
	}
	if _, err := b.call(ctx, "render page", b.ex.renderPageBitmap,
		bmp, page, 0, 0, uint64(req.Width), uint64(req.Height),
		uint64(req.Rotation), uint64(req.Flags)); err != nil {
		return backend.RenderResult{}, err
	}

	bufRes, err := b.call(ctx, "bitmap buffer", b.ex.bitmapGetBuffer, bmp)
	if err != nil {
		return backend.RenderResult{}, err
	}
	strideRes, err := b.call(ctx, "bitmap stride", b.ex.bitmapGetStride, bmp)
	if err != nil {
		return backend.RenderResult{}, err
	}
	stride := int(int32(strideRes[0]))
	pixels, err := b.br.ReadMemory(uint32(bufRes[0]), uint32(stride*req.Height))
	if err != nil {
		return backend.RenderResult{}, err
	}

	return backend.RenderResult{
		Width:  req.Width,
		Height: req.Height,
		Stride: stride,
		Pixels: backend.SwapBGRA(pixels),
	}, nil
}

func (b *Backend) RenderPage(ctx context.Context, page uint64, req backend.RenderRequest) (backend.RenderResult, error) {
	return b.renderToBitmap(ctx, page, req)
}

func (b *Backend) ProgressiveStart(ctx context.Context, page uint64, req backend.RenderRequest) (uint64, backend.RenderStatus, error) {
	result, err := b.renderToBitmap(ctx, page, req)
	if err != nil {
		return 0, backend.RenderFailed, err
	}
	b.progSeq++
	id := b.progSeq
	b.prog[id] = result
	return id, backend.RenderDone, nil
}

func (b *Backend) ProgressiveContinue(_ context.Context, pr uint64) (backend.RenderStatus, error) {
	if _, ok := b.prog[pr]; !ok {
		return backend.RenderFailed, &backend.EngineError{Op: "progressive continue"}
	}
	return backend.RenderDone, nil
}

func (b *Backend) ProgressiveFinish(_ context.Context, pr uint64) (backend.RenderResult, error) {
	result, ok := b.prog[pr]
	if !ok {
		return backend.RenderResult{}, &backend.EngineError{Op: "progressive finish"}
	}
	delete(b.prog, pr)
	return result, nil
}

func (b *Backend) LoadFont(ctx context.Context, doc uint64, data []byte, kind backend.FontKind) (uint64, error) {
	if len(data) == 0 {
		return 0, &backend.EngineError{Op: "load font"}
	}
	region, err := b.br.Alloc(ctx, uint32(len(data)))
	if err != nil {
		return 0, err
	}
	defer func() {
		// The engine copies font data during load.
		if ferr := b.br.Free(ctx, region); ferr != nil {
			b.log.Warn("font region rollback failed", zap.Error(ferr))
		}
	}()
	if err := b.br.Write(region, data); err != nil {
		return 0, err
	}

	fontType := uint64(2) // TrueType
	if kind == backend.FontType1 {
		fontType = 1
	}
	res, err := b.call(ctx, "load font", b.ex.textLoadFont,
		doc, uint64(region.Offset), uint64(len(data)), fontType, 0)
	if err != nil {
		return 0, err
	}
	if res[0] == 0 {
		return 0, &backend.EngineError{Op: "load font"}
	}
	return res[0], nil
}

func (b *Backend) MetaText(ctx context.Context, doc uint64, tag string) (string, error) {
	// The tag itself is ASCII and also has to live inside the sandbox.
	tagRegion, err := b.br.Alloc(ctx, uint32(len(tag)+1))
	if err != nil {
		return "", err
	}
	defer func() {
		if ferr := b.br.Free(ctx, tagRegion); ferr != nil {
			b.log.Warn("tag region rollback failed", zap.Error(ferr))
		}
	}()
	if err := b.br.Write(tagRegion, append([]byte(tag), 0)); err != nil {
		return "", err
	}
	return b.twoCallUTF16(ctx, "metadata", func(buf, buflen uint64) (uint64, error) {
		res, err := b.call(ctx, "metadata", b.ex.getMetaText, doc, uint64(tagRegion.Offset), buf, buflen)
		if err != nil {
			return 0, err
		}
		return res[0], nil
	})
}

func (b *Backend) PageLabel(ctx context.Context, doc uint64, index int) (string, error) {
	return b.twoCallUTF16(ctx, "page label", func(buf, buflen uint64) (uint64, error) {
		res, err := b.call(ctx, "page label", b.ex.getPageLabel, doc, uint64(index), buf, buflen)
		if err != nil {
			return 0, err
		}
		return res[0], nil
	})
}

func (b *Backend) BookmarkFirstChild(ctx context.Context, doc, bm uint64) (uint64, error) {
	res, err := b.call(ctx, "bookmark child", b.ex.bookmarkGetFirstChild, doc, bm)
	if err != nil {
		return 0, err
	}
	return res[0], nil
}

func (b *Backend) BookmarkNextSibling(ctx context.Context, doc, bm uint64) (uint64, error) {
	res, err := b.call(ctx, "bookmark sibling", b.ex.bookmarkGetNextSibling, doc, bm)
	if err != nil {
		return 0, err
	}
	return res[0], nil
}

func (b *Backend) BookmarkTitle(ctx context.Context, bm uint64) (string, error) {
	return b.twoCallUTF16(ctx, "bookmark title", func(buf, buflen uint64) (uint64, error) {
		res, err := b.call(ctx, "bookmark title", b.ex.bookmarkGetTitle, bm, buf, buflen)
		if err != nil {
			return 0, err
		}
		return res[0], nil
	})
}

func (b *Backend) BookmarkDestPage(ctx context.Context, doc, bm uint64) (int, error) {
	res, err := b.call(ctx, "bookmark dest", b.ex.bookmarkGetDest, doc, bm)
	if err != nil {
		return 0, err
	}
	if res[0] == 0 {
		return -1, nil
	}
	idx, err := b.call(ctx, "dest page", b.ex.destGetDestPageIndex, doc, res[0])
	if err != nil {
		return 0, err
	}
	return int(int32(idx[0])), nil
}

// twoCallUTF16 runs the size-probe-then-fill pattern through the bridge:
// probe with a null buffer, allocate a region of exactly the reported
// size, fill, read back, free. A reported size of two bytes is just the
// NUL terminator.
func (b *Backend) twoCallUTF16(ctx context.Context, op string, call func(buf, buflen uint64) (uint64, error)) (string, error) {
	n, err := call(0, 0)
	if err != nil {
		return "", err
	}
	if n <= 2 {
		return "", nil
	}

	region, err := b.br.Alloc(ctx, uint32(n))
	if err != nil {
		return "", err
	}
	defer func() {
		if ferr := b.br.Free(ctx, region); ferr != nil {
			b.log.Warn("string region rollback failed", zap.String("op", op), zap.Error(ferr))
		}
	}()

	if _, err := call(uint64(region.Offset), n); err != nil {
		return "", err
	}
	raw, err := b.br.Read(region)
	if err != nil {
		return "", err
	}
	return backend.DecodeUTF16(raw)
}

func (b *Backend) CloseHandle(ctx context.Context, kind handle.Kind, raw uint64) error {
	switch kind {
	case handle.KindDocument:
		if _, err := b.call(ctx, "close document", b.ex.closeDocument, raw); err != nil {
			return err
		}
		if region, ok := b.docRegions[raw]; ok {
			delete(b.docRegions, raw)
			return b.br.Free(ctx, region)
		}
	case handle.KindPage:
		_, err := b.call(ctx, "close page", b.ex.closePage, raw)
		return err
	case handle.KindTextPage:
		_, err := b.call(ctx, "close text page", b.ex.textClosePage, raw)
		return err
	case handle.KindBitmap:
		_, err := b.call(ctx, "destroy bitmap", b.ex.bitmapDestroy, raw)
		return err
	case handle.KindFont:
		_, err := b.call(ctx, "close font", b.ex.fontClose, raw)
		return err
	case handle.KindProgressive:
		delete(b.prog, raw)
	}
	return nil
}

func (b *Backend) Shutdown(ctx context.Context) error {
	if _, err := b.ex.destroyLibrary.Call(ctx); err != nil {
		b.log.Warn("engine teardown failed", zap.Error(err))
	}
	if b.closeRuntime != nil {
		return b.closeRuntime(ctx)
	}
	return nil
}
