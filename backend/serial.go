package backend

import (
	"context"
	"sync"

	"github.com/quillbind/quill/handle"
)

// Serialized wraps a backend so that all calls against it execute one at a
// time. The foreign engine is not safely reentrant from concurrent call
// streams within one session, so the lock sits exactly at the foreign-call
// boundary; host tasks queue on it rather than interleaving foreign calls.
func Serialized(b Backend) Backend {
	if _, ok := b.(*serialBackend); ok {
		return b
	}
	return &serialBackend{inner: b}
}

type serialBackend struct {
	mu    sync.Mutex
	inner Backend
}

func (s *serialBackend) Name() string { return s.inner.Name() }

func (s *serialBackend) OpenDocument(ctx context.Context, data []byte, password string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.OpenDocument(ctx, data, password)
}

func (s *serialBackend) PageCount(ctx context.Context, doc uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.PageCount(ctx, doc)
}

func (s *serialBackend) LoadPage(ctx context.Context, doc uint64, index int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.LoadPage(ctx, doc, index)
}

func (s *serialBackend) PageSize(ctx context.Context, page uint64) (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.PageSize(ctx, page)
}

func (s *serialBackend) LoadTextPage(ctx context.Context, page uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.LoadTextPage(ctx, page)
}

func (s *serialBackend) TextLength(ctx context.Context, textPage uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.TextLength(ctx, textPage)
}

func (s *serialBackend) Text(ctx context.Context, textPage uint64, limits Limits) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Text(ctx, textPage, limits)
}

func (s *serialBackend) RenderPage(ctx context.Context, page uint64, req RenderRequest) (RenderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.RenderPage(ctx, page, req)
}

func (s *serialBackend) ProgressiveStart(ctx context.Context, page uint64, req RenderRequest) (uint64, RenderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ProgressiveStart(ctx, page, req)
}

func (s *serialBackend) ProgressiveContinue(ctx context.Context, pr uint64) (RenderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ProgressiveContinue(ctx, pr)
}

func (s *serialBackend) ProgressiveFinish(ctx context.Context, pr uint64) (RenderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ProgressiveFinish(ctx, pr)
}

func (s *serialBackend) LoadFont(ctx context.Context, doc uint64, data []byte, kind FontKind) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.LoadFont(ctx, doc, data, kind)
}

func (s *serialBackend) MetaText(ctx context.Context, doc uint64, tag string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.MetaText(ctx, doc, tag)
}

func (s *serialBackend) PageLabel(ctx context.Context, doc uint64, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.PageLabel(ctx, doc, index)
}

func (s *serialBackend) BookmarkFirstChild(ctx context.Context, doc, bm uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.BookmarkFirstChild(ctx, doc, bm)
}

func (s *serialBackend) BookmarkNextSibling(ctx context.Context, doc, bm uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.BookmarkNextSibling(ctx, doc, bm)
}

func (s *serialBackend) BookmarkTitle(ctx context.Context, bm uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.BookmarkTitle(ctx, bm)
}

func (s *serialBackend) BookmarkDestPage(ctx context.Context, doc, bm uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.BookmarkDestPage(ctx, doc, bm)
}

func (s *serialBackend) CloseHandle(ctx context.Context, kind handle.Kind, raw uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.CloseHandle(ctx, kind, raw)
}

func (s *serialBackend) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Shutdown(ctx)
}
