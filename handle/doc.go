// Package handle tracks ownership of objects that live inside the foreign
// PDF engine.
//
// Every object the engine hands back (a document, a page, a text page, a
// bitmap, a font) is represented on the host side by a [Disposable]: an
// opaque token that is valid from the moment its creating call returns until
// it is disposed. Using a token after disposal is a programming error in the
// caller and is always reported as a [*UseAfterDisposeError], never silently
// tolerated.
//
// # Ownership
//
// Disposables form a tree. A page obtained from a document is a child of
// that document: the parent owns its children and, when disposed, disposes
// every live child first, most recently created first, before releasing its
// own foreign handle. Children keep a back-reference to the parent only for
// validity checks; disposing a child never touches the parent.
//
// # Registry
//
// All tokens for one engine session live in a [Registry]. The registry is an
// arena: parent/child links are stored as token indices rather than
// pointers, so cascade disposal is a walk over the arena. The actual foreign
// release is performed by the [ReleaseFunc] supplied at construction, which
// keeps this package free of any backend knowledge.
//
// # Scopes
//
// [WithScope] runs a function with a [Scope] that releases every tracked
// Disposable on the way out, on every exit path:
//
//	text, err := handle.WithScope(func(s *handle.Scope) (string, error) {
//		page := s.Track(openPage())
//		return readText(page)
//	})
package handle
