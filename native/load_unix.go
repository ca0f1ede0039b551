//go:build darwin || freebsd || linux

package native

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

var (
	pauseCallbackOnce sync.Once
	pauseCallback     uintptr
)

// openLibrary loads the engine shared library and resolves every entry
// point. A missing library or symbol fails the whole load; partial symbol
// tables are worse than no backend.
func openLibrary(path string) (*library, error) {
	candidates := []string{path}
	if path == "" {
		candidates = defaultLibraryNames()
	}

	var (
		h       uintptr
		lastErr error
	)
	for _, name := range candidates {
		var err error
		h, err = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			break
		}
		lastErr = err
		h = 0
	}
	if h == 0 {
		return nil, fmt.Errorf("dlopen: %w", lastErr)
	}

	l := &library{handle: h}
	reg := registrar{lib: h}

	reg.fn(&l.initLibraryWithConfig, "FPDF_InitLibraryWithConfig")
	reg.fn(&l.destroyLibrary, "FPDF_DestroyLibrary")
	reg.fn(&l.getLastError, "FPDF_GetLastError")

	reg.fn(&l.loadMemDocument, "FPDF_LoadMemDocument")
	reg.fn(&l.closeDocument, "FPDF_CloseDocument")
	reg.fn(&l.getPageCount, "FPDF_GetPageCount")

	reg.fn(&l.loadPage, "FPDF_LoadPage")
	reg.fn(&l.closePage, "FPDF_ClosePage")
	reg.fn(&l.getPageWidthF, "FPDF_GetPageWidthF")
	reg.fn(&l.getPageHeightF, "FPDF_GetPageHeightF")

	reg.fn(&l.textLoadPage, "FPDFText_LoadPage")
	reg.fn(&l.textClosePage, "FPDFText_ClosePage")
	reg.fn(&l.textCountChars, "FPDFText_CountChars")
	reg.fn(&l.textGetText, "FPDFText_GetText")

	reg.fn(&l.bitmapCreateEx, "FPDFBitmap_CreateEx")
	reg.fn(&l.bitmapFillRect, "FPDFBitmap_FillRect")
	reg.fn(&l.bitmapDestroy, "FPDFBitmap_Destroy")
	reg.fn(&l.renderPageBitmap, "FPDF_RenderPageBitmap")

	reg.fn(&l.renderPageBitmapStart, "FPDF_RenderPageBitmap_Start")
	reg.fn(&l.renderPageContinue, "FPDF_RenderPage_Continue")
	reg.fn(&l.renderPageClose, "FPDF_RenderPage_Close")

	reg.fn(&l.getMetaText, "FPDF_GetMetaText")
	reg.fn(&l.getPageLabel, "FPDF_GetPageLabel")

	reg.fn(&l.bookmarkGetFirstChild, "FPDFBookmark_GetFirstChild")
	reg.fn(&l.bookmarkGetNextSibling, "FPDFBookmark_GetNextSibling")
	reg.fn(&l.bookmarkGetTitle, "FPDFBookmark_GetTitle")
	reg.fn(&l.bookmarkGetDest, "FPDFBookmark_GetDest")
	reg.fn(&l.destGetDestPageIndex, "FPDFDest_GetDestPageIndex")

	reg.fn(&l.textLoadFont, "FPDFText_LoadFont")
	reg.fn(&l.fontClose, "FPDFFont_Close")

	if reg.err != nil {
		return nil, reg.err
	}

	pauseCallbackOnce.Do(func() {
		// Callback slots are a finite process-wide resource, so a single
		// shared callback serves every progressive render.
		pauseCallback = purego.NewCallback(func(_ uintptr) int32 { return 1 })
	})
	l.pauseEverySlice = pauseCallback

	return l, nil
}

// registrar resolves symbols one by one, remembering the first failure so
// the caller gets the missing symbol by name.
type registrar struct {
	lib uintptr
	err error
}

func (r *registrar) fn(fptr any, name string) {
	if r.err != nil {
		return
	}
	addr, err := purego.Dlsym(r.lib, name)
	if err != nil || addr == 0 {
		r.err = fmt.Errorf("symbol %s: %w", name, err)
		return
	}
	purego.RegisterFunc(fptr, addr)
}

func defaultLibraryNames() []string {
	return []string{"libpdfium.so", "libpdfium.dylib", "pdfium.so", "pdfium.dylib"}
}
