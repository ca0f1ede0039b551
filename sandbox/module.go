package sandbox

import (
	"context"
	"fmt"
)

// fn is the slice of a wazero exported function the backend calls through.
// Declared locally so tests can script the engine without a runtime.
type fn interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// moduleExports looks functions up by name, abstracting the wazero module
// for tests.
type moduleExports interface {
	fn(name string) fn
}

// exports is the resolved engine entry-point table.
type exports struct {
	malloc fn
	free   fn

	initLibrary    fn
	destroyLibrary fn
	getLastError   fn

	loadMemDocument fn
	closeDocument   fn
	getPageCount    fn

	loadPage       fn
	closePage      fn
	getPageWidthF  fn
	getPageHeightF fn

	textLoadPage   fn
	textClosePage  fn
	textCountChars fn
	textGetText    fn

	bitmapCreate     fn
	bitmapFillRect   fn
	bitmapDestroy    fn
	bitmapGetBuffer  fn
	bitmapGetStride  fn
	renderPageBitmap fn

	getMetaText  fn
	getPageLabel fn

	bookmarkGetFirstChild  fn
	bookmarkGetNextSibling fn
	bookmarkGetTitle       fn
	bookmarkGetDest        fn
	destGetDestPageIndex   fn

	textLoadFont fn
	fontClose    fn
}

// resolveExports binds every required engine function, failing on the
// first missing name so an incompatible module is rejected at load time,
// not mid-call.
func resolveExports(mod moduleExports) (*exports, error) {
	e := &exports{}
	var err error
	get := func(name string) fn {
		if err != nil {
			return nil
		}
		f := mod.fn(name)
		if f == nil {
			err = fmt.Errorf("sandbox module does not export %s", name)
		}
		return f
	}

	e.malloc = get("malloc")
	e.free = get("free")

	e.initLibrary = get("FPDF_InitLibrary")
	e.destroyLibrary = get("FPDF_DestroyLibrary")
	e.getLastError = get("FPDF_GetLastError")

	e.loadMemDocument = get("FPDF_LoadMemDocument")
	e.closeDocument = get("FPDF_CloseDocument")
	e.getPageCount = get("FPDF_GetPageCount")

	e.loadPage = get("FPDF_LoadPage")
	e.closePage = get("FPDF_ClosePage")
	e.getPageWidthF = get("FPDF_GetPageWidthF")
	e.getPageHeightF = get("FPDF_GetPageHeightF")

	e.textLoadPage = get("FPDFText_LoadPage")
	e.textClosePage = get("FPDFText_ClosePage")
	e.textCountChars = get("FPDFText_CountChars")
	e.textGetText = get("FPDFText_GetText")

	e.bitmapCreate = get("FPDFBitmap_Create")
	e.bitmapFillRect = get("FPDFBitmap_FillRect")
	e.bitmapDestroy = get("FPDFBitmap_Destroy")
	e.bitmapGetBuffer = get("FPDFBitmap_GetBuffer")
	e.bitmapGetStride = get("FPDFBitmap_GetStride")
	e.renderPageBitmap = get("FPDF_RenderPageBitmap")

	e.getMetaText = get("FPDF_GetMetaText")
	e.getPageLabel = get("FPDF_GetPageLabel")

	e.bookmarkGetFirstChild = get("FPDFBookmark_GetFirstChild")
	e.bookmarkGetNextSibling = get("FPDFBookmark_GetNextSibling")
	e.bookmarkGetTitle = get("FPDFBookmark_GetTitle")
	e.bookmarkGetDest = get("FPDFBookmark_GetDest")
	e.destGetDestPageIndex = get("FPDFDest_GetDestPageIndex")

	e.textLoadFont = get("FPDFText_LoadFont")
	e.fontClose = get("FPDFFont_Close")

	if err != nil {
		return nil, err
	}
	return e, nil
}

// wasmAllocator adapts the module's own heap to the bridge's Allocator
// contract. malloc returning offset 0 is the sandbox's NULL: exhaustion.
type wasmAllocator struct {
	malloc fn
	free   fn
}

func (a *wasmAllocator) Alloc(ctx context.Context, size uint32) (uint32, error) {
	res, err := a.malloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, err
	}
	return uint32(res[0]), nil
}

func (a *wasmAllocator) Free(ctx context.Context, offset uint32) error {
	_, err := a.free.Call(ctx, uint64(offset))
	return err
}
