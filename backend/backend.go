package backend

import (
	"context"

	"github.com/quillbind/quill/handle"
)

// Rotation selects page rotation for rendering, in quarter turns clockwise.
type Rotation int

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// RenderFlags map to the foreign engine's render flags.
type RenderFlags int

const (
	// RenderAnnotations includes annotation appearances in the output.
	RenderAnnotations RenderFlags = 0x01
	// RenderLCDText optimizes text rendering for LCD display.
	RenderLCDText RenderFlags = 0x02
	// RenderGrayscale renders in grayscale.
	RenderGrayscale RenderFlags = 0x08
)

// RenderStatus reports the state of a progressive render.
type RenderStatus int

const (
	RenderReady RenderStatus = iota
	RenderToBeContinued
	RenderDone
	RenderFailed
)

// FontKind selects the format of font data loaded for composition.
type FontKind int

const (
	FontTrueType FontKind = iota + 1
	FontType1
)

// RenderRequest describes one page raster.
type RenderRequest struct {
	Width      int
	Height     int
	Rotation   Rotation
	Flags      RenderFlags
	Background uint32 // ARGB fill applied before rendering
}

// RenderResult is a completed raster, copied into host-owned memory as
// RGBA, 4 bytes per pixel, rows Stride bytes apart.
type RenderResult struct {
	Width  int
	Height int
	Stride int
	Pixels []byte
}

// Backend is the capability contract over the foreign PDF engine. Raw
// handle values are backend-defined (a native pointer or a sandbox memory
// offset) and only meaningful to the backend that issued them.
//
// Every method takes a context because a call may suspend the calling task
// while the foreign engine works; no call is cancellable mid-flight.
type Backend interface {
	// Name identifies the backend ("native" or "sandbox").
	Name() string

	// OpenDocument parses an in-memory document. password may be empty.
	// Failures are *OpenError (corrupt input, wrong password) or
	// *EngineError.
	OpenDocument(ctx context.Context, data []byte, password string) (uint64, error)

	// PageCount returns the number of pages in an open document.
	PageCount(ctx context.Context, doc uint64) (int, error)

	// LoadPage loads the page at index (0-based, caller-validated).
	LoadPage(ctx context.Context, doc uint64, index int) (uint64, error)

	// PageSize returns the page dimensions in points.
	PageSize(ctx context.Context, page uint64) (width, height float64, err error)

	// LoadTextPage prepares a page for text operations.
	LoadTextPage(ctx context.Context, page uint64) (uint64, error)

	// TextLength counts the characters on a text page.
	TextLength(ctx context.Context, textPage uint64) (int, error)

	// Text extracts the full text of a text page. If the text is longer
	// than limits.MaxTextChars the call fails with *TextError; it never
	// returns a truncated string.
	Text(ctx context.Context, textPage uint64, limits Limits) (string, error)

	// RenderPage rasters a page into a host-owned RGBA buffer.
	RenderPage(ctx context.Context, page uint64, req RenderRequest) (RenderResult, error)

	// ProgressiveStart begins a progressive render of a page. The returned
	// handle must be closed with CloseHandle (kind progressive) unless
	// ProgressiveFinish consumes it.
	ProgressiveStart(ctx context.Context, page uint64, req RenderRequest) (uint64, RenderStatus, error)

	// ProgressiveContinue resumes a paused progressive render.
	ProgressiveContinue(ctx context.Context, pr uint64) (RenderStatus, error)

	// ProgressiveFinish reads back the completed raster and releases the
	// progressive context.
	ProgressiveFinish(ctx context.Context, pr uint64) (RenderResult, error)

	// LoadFont loads font data into a document for composition. The font
	// belongs to the document; closing the document releases it.
	LoadFont(ctx context.Context, doc uint64, data []byte, kind FontKind) (uint64, error)

	// MetaText reads a metadata tag ("Title", "Author", ...). Missing tags
	// yield "".
	MetaText(ctx context.Context, doc uint64, tag string) (string, error)

	// PageLabel reads the display label of a page, "" if unlabelled.
	PageLabel(ctx context.Context, doc uint64, index int) (string, error)

	// BookmarkFirstChild returns the first child of a bookmark, or of the
	// outline root when bm is zero. Zero result means none. Bookmark
	// values are borrowed from the document and are not closed.
	BookmarkFirstChild(ctx context.Context, doc, bm uint64) (uint64, error)

	// BookmarkNextSibling returns the next sibling of a bookmark, zero if
	// none.
	BookmarkNextSibling(ctx context.Context, doc, bm uint64) (uint64, error)

	// BookmarkTitle returns a bookmark's title.
	BookmarkTitle(ctx context.Context, bm uint64) (string, error)

	// BookmarkDestPage returns the 0-based page index a bookmark points
	// at, -1 if it has no destination.
	BookmarkDestPage(ctx context.Context, doc, bm uint64) (int, error)

	// CloseHandle releases one foreign handle of the given kind. Closing a
	// handle the backend no longer knows is a no-op.
	CloseHandle(ctx context.Context, kind handle.Kind, raw uint64) error

	// Shutdown tears down the engine session. The backend is unusable
	// afterwards.
	Shutdown(ctx context.Context) error
}
