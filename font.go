package quill

import "github.com/quillbind/quill/handle"

// Font is font data loaded into a document for composition. Fonts are
// owned by their document and are not independently disposable: closing
// the document releases them.
type Font struct {
	doc *Document
	h   *handle.Disposable
}

// Alive reports whether the font's document still holds it.
func (f *Font) Alive() bool { return f.h.Alive() }
