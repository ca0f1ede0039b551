package quill

import (
	"context"

	"github.com/quillbind/quill/backend"
	"github.com/quillbind/quill/handle"
)

// Document is an open PDF document. It owns the pages and fonts created
// through it; Close releases them all, newest first.
type Document struct {
	eng       *Engine
	h         *handle.Disposable
	pageCount int
}

// PageCount returns the number of pages. The count is read once at open.
func (d *Document) PageCount() int { return d.pageCount }

// Page loads the page at index (0-based). The page belongs to the
// document.
func (d *Document) Page(ctx context.Context, index int) (*Page, error) {
	if err := backend.ValidatePageIndex(index, d.pageCount); err != nil {
		return nil, err
	}
	doc, err := d.h.Value()
	if err != nil {
		return nil, err
	}
	raw, err := d.eng.be.LoadPage(ctx, doc, index)
	if err != nil {
		return nil, err
	}
	h, err := d.eng.reg.New(handle.KindPage, raw, d.h)
	if err != nil {
		_ = d.eng.be.CloseHandle(ctx, handle.KindPage, raw)
		return nil, err
	}
	return &Page{doc: d, h: h, index: index}, nil
}

// Metadata holds the document information dictionary's standard entries.
// Absent entries are empty strings; dates keep the document's raw form
// (typically "D:YYYYMMDDHHmmSS...").
type Metadata struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate string
	ModDate      string
}

// Metadata reads the document information dictionary.
func (d *Document) Metadata(ctx context.Context) (Metadata, error) {
	doc, err := d.h.Value()
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	for _, entry := range []struct {
		tag  string
		dest *string
	}{
		{"Title", &meta.Title},
		{"Author", &meta.Author},
		{"Subject", &meta.Subject},
		{"Keywords", &meta.Keywords},
		{"Creator", &meta.Creator},
		{"Producer", &meta.Producer},
		{"CreationDate", &meta.CreationDate},
		{"ModDate", &meta.ModDate},
	} {
		value, err := d.eng.be.MetaText(ctx, doc, entry.tag)
		if err != nil {
			return Metadata{}, err
		}
		*entry.dest = value
	}
	return meta, nil
}

// PageLabel returns the display label of the page at index ("iv", "A-2"),
// or the empty string when the document defines no labels.
func (d *Document) PageLabel(ctx context.Context, index int) (string, error) {
	if err := backend.ValidatePageIndex(index, d.pageCount); err != nil {
		return "", err
	}
	doc, err := d.h.Value()
	if err != nil {
		return "", err
	}
	return d.eng.be.PageLabel(ctx, doc, index)
}

// Bookmark is one node of the document outline. PageIndex is -1 when the
// bookmark has no page destination.
type Bookmark struct {
	Title     string
	PageIndex int
	Children  []Bookmark
}

// maxBookmarks bounds outline traversal; malformed documents can contain
// sibling cycles.
const maxBookmarks = 4096

// Bookmarks reads the document outline tree.
func (d *Document) Bookmarks(ctx context.Context) ([]Bookmark, error) {
	doc, err := d.h.Value()
	if err != nil {
		return nil, err
	}
	budget := maxBookmarks
	return d.bookmarkChildren(ctx, doc, 0, &budget)
}

func (d *Document) bookmarkChildren(ctx context.Context, doc, parent uint64, budget *int) ([]Bookmark, error) {
	var out []Bookmark
	bm, err := d.eng.be.BookmarkFirstChild(ctx, doc, parent)
	if err != nil {
		return nil, err
	}
	for bm != 0 && *budget > 0 {
		*budget--
		title, err := d.eng.be.BookmarkTitle(ctx, bm)
		if err != nil {
			return nil, err
		}
		pageIndex, err := d.eng.be.BookmarkDestPage(ctx, doc, bm)
		if err != nil {
			return nil, err
		}
		children, err := d.bookmarkChildren(ctx, doc, bm, budget)
		if err != nil {
			return nil, err
		}
		out = append(out, Bookmark{Title: title, PageIndex: pageIndex, Children: children})

		bm, err = d.eng.be.BookmarkNextSibling(ctx, doc, bm)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoadFont loads font data into the document for composition. The font is
// owned by the document and released with it.
func (d *Document) LoadFont(ctx context.Context, data []byte, kind backend.FontKind) (*Font, error) {
	doc, err := d.h.Value()
	if err != nil {
		return nil, err
	}
	raw, err := d.eng.be.LoadFont(ctx, doc, data, kind)
	if err != nil {
		return nil, err
	}
	h, err := d.eng.reg.New(handle.KindFont, raw, d.h)
	if err != nil {
		_ = d.eng.be.CloseHandle(ctx, handle.KindFont, raw)
		return nil, err
	}
	return &Font{doc: d, h: h}, nil
}

// Close releases the document and everything created through it. Closing
// twice is a no-op.
func (d *Document) Close() error { return d.h.Dispose() }
