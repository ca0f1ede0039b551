package native

import "unsafe"

// Pixel format constant for FPDFBitmap_CreateEx: 4 bytes per pixel, BGRA.
const bitmapFormatBGRA = 4

// libraryConfig mirrors FPDF_LIBRARY_CONFIG version 2.
type libraryConfig struct {
	version        int32
	_              int32
	userFontPaths  uintptr
	isolate        uintptr
	v8EmbedderSlot uint32
	_              uint32
	platform       uintptr
}

// ifsdkPause mirrors IFSDK_PAUSE. needToPauseNow is a C function pointer;
// the engine calls it between render slices to ask whether to yield.
type ifsdkPause struct {
	version        int32
	_              int32
	needToPauseNow uintptr
	user           uintptr
}

// library holds the resolved engine entry points. The function values are
// plain Go funcs on every platform; only the loader that populates them is
// platform-specific.
type library struct {
	handle uintptr

	initLibraryWithConfig func(cfg *libraryConfig)
	destroyLibrary        func()
	getLastError          func() uintptr

	loadMemDocument func(data unsafe.Pointer, size int32, password *byte) uintptr
	closeDocument   func(doc uintptr)
	getPageCount    func(doc uintptr) int32

	loadPage       func(doc uintptr, index int32) uintptr
	closePage      func(page uintptr)
	getPageWidthF  func(page uintptr) float32
	getPageHeightF func(page uintptr) float32

	textLoadPage   func(page uintptr) uintptr
	textClosePage  func(tp uintptr)
	textCountChars func(tp uintptr) int32
	textGetText    func(tp uintptr, start, count int32, buf *uint16) int32

	bitmapCreateEx   func(width, height, format int32, firstScan unsafe.Pointer, stride int32) uintptr
	bitmapFillRect   func(bmp uintptr, left, top, width, height int32, colour uintptr)
	bitmapDestroy    func(bmp uintptr)
	renderPageBitmap func(bmp, page uintptr, startX, startY, sizeX, sizeY, rotate, flags int32)

	renderPageBitmapStart func(bmp, page uintptr, startX, startY, sizeX, sizeY, rotate, flags int32, pause *ifsdkPause) int32
	renderPageContinue    func(page uintptr, pause *ifsdkPause) int32
	renderPageClose       func(page uintptr)

	getMetaText  func(doc uintptr, tag string, buf unsafe.Pointer, buflen uintptr) uintptr
	getPageLabel func(doc uintptr, index int32, buf unsafe.Pointer, buflen uintptr) uintptr

	bookmarkGetFirstChild  func(doc, bm uintptr) uintptr
	bookmarkGetNextSibling func(doc, bm uintptr) uintptr
	bookmarkGetTitle       func(bm uintptr, buf unsafe.Pointer, buflen uintptr) uintptr
	bookmarkGetDest        func(doc, bm uintptr) uintptr
	destGetDestPageIndex   func(doc, dest uintptr) int32

	textLoadFont func(doc uintptr, data unsafe.Pointer, size uint32, fontType int32, cid int32) uintptr
	fontClose    func(font uintptr)

	// pauseEverySlice is a shared C-callable callback that always asks the
	// engine to pause, so progressive rendering yields after every slice.
	pauseEverySlice uintptr
}
