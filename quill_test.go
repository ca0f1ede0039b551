package quill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillbind/quill/backend"
	"github.com/quillbind/quill/handle"
)

// fakeBackend scripts the foreign engine for session-level tests: handles
// are sequence numbers, and every close is recorded in order.
type fakeBackend struct {
	next uint64

	pageCount int
	text      string
	meta      map[string]string
	labels    map[int]string

	// outline shape: parent handle -> first child, node -> next sibling
	firstChild map[uint64]uint64
	sibling    map[uint64]uint64
	titles     map[uint64]string
	destPages  map[uint64]int

	openErr     error
	lastRender  backend.RenderRequest
	loadedPages []int
	closedKinds []handle.Kind
	shutdowns   int
}

func newFake() *fakeBackend {
	return &fakeBackend{
		pageCount:  3,
		text:       "hello",
		meta:       map[string]string{},
		labels:     map[int]string{},
		firstChild: map[uint64]uint64{},
		sibling:    map[uint64]uint64{},
		titles:     map[uint64]string{},
		destPages:  map[uint64]int{},
	}
}

func (f *fakeBackend) handle() uint64 { f.next++; return f.next }

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) OpenDocument(_ context.Context, _ []byte, _ string) (uint64, error) {
	if f.openErr != nil {
		return 0, f.openErr
	}
	return f.handle(), nil
}

func (f *fakeBackend) PageCount(context.Context, uint64) (int, error) {
	return f.pageCount, nil
}

func (f *fakeBackend) LoadPage(_ context.Context, _ uint64, index int) (uint64, error) {
	f.loadedPages = append(f.loadedPages, index)
	return f.handle(), nil
}

func (f *fakeBackend) PageSize(context.Context, uint64) (float64, float64, error) {
	return 612, 792, nil
}

func (f *fakeBackend) LoadTextPage(context.Context, uint64) (uint64, error) {
	return f.handle(), nil
}

func (f *fakeBackend) TextLength(context.Context, uint64) (int, error) {
	return len(f.text), nil
}

func (f *fakeBackend) Text(_ context.Context, _ uint64, limits backend.Limits) (string, error) {
	if limits.MaxTextChars > 0 && len(f.text) > limits.MaxTextChars {
		return "", &backend.TextError{Length: len(f.text), Limit: limits.MaxTextChars}
	}
	return f.text, nil
}

func (f *fakeBackend) render(req backend.RenderRequest) backend.RenderResult {
	f.lastRender = req
	return backend.RenderResult{
		Width:  req.Width,
		Height: req.Height,
		Stride: 4 * req.Width,
		Pixels: make([]byte, 4*req.Width*req.Height),
	}
}

func (f *fakeBackend) RenderPage(_ context.Context, _ uint64, req backend.RenderRequest) (backend.RenderResult, error) {
	return f.render(req), nil
}

func (f *fakeBackend) ProgressiveStart(_ context.Context, _ uint64, req backend.RenderRequest) (uint64, backend.RenderStatus, error) {
	f.lastRender = req
	return f.handle(), backend.RenderToBeContinued, nil
}

func (f *fakeBackend) ProgressiveContinue(context.Context, uint64) (backend.RenderStatus, error) {
	return backend.RenderDone, nil
}

func (f *fakeBackend) ProgressiveFinish(_ context.Context, _ uint64) (backend.RenderResult, error) {
	return f.render(f.lastRender), nil
}

func (f *fakeBackend) LoadFont(context.Context, uint64, []byte, backend.FontKind) (uint64, error) {
	return f.handle(), nil
}

func (f *fakeBackend) MetaText(_ context.Context, _ uint64, tag string) (string, error) {
	return f.meta[tag], nil
}

func (f *fakeBackend) PageLabel(_ context.Context, _ uint64, index int) (string, error) {
	return f.labels[index], nil
}

func (f *fakeBackend) BookmarkFirstChild(_ context.Context, _ uint64, bm uint64) (uint64, error) {
	return f.firstChild[bm], nil
}

func (f *fakeBackend) BookmarkNextSibling(_ context.Context, _ uint64, bm uint64) (uint64, error) {
	return f.sibling[bm], nil
}

func (f *fakeBackend) BookmarkTitle(_ context.Context, bm uint64) (string, error) {
	return f.titles[bm], nil
}

func (f *fakeBackend) BookmarkDestPage(_ context.Context, _ uint64, bm uint64) (int, error) {
	if page, ok := f.destPages[bm]; ok {
		return page, nil
	}
	return -1, nil
}

func (f *fakeBackend) CloseHandle(_ context.Context, kind handle.Kind, _ uint64) error {
	f.closedKinds = append(f.closedKinds, kind)
	return nil
}

func (f *fakeBackend) Shutdown(context.Context) error {
	f.shutdowns++
	return nil
}

func newTestEngine(t *testing.T, fake *fakeBackend, cfg Config) *Engine {
	t.Helper()
	cfg.testBackend = fake
	eng, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestDocumentCloseCascades(t *testing.T) {
	fake := newFake()
	eng := newTestEngine(t, fake, Config{})
	ctx := context.Background()

	doc, err := eng.OpenDocument(ctx, []byte("pdf"), "")
	require.NoError(t, err)
	page, err := doc.Page(ctx, 0)
	require.NoError(t, err)
	_, err = page.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, eng.LiveHandles())

	require.NoError(t, doc.Close())
	assert.Zero(t, eng.LiveHandles())
	assert.Equal(t, []handle.Kind{handle.KindTextPage, handle.KindPage, handle.KindDocument},
		fake.closedKinds, "children close before the document, newest first")

	_, err = page.Text(ctx)
	var uaErr *handle.UseAfterDisposeError
	assert.ErrorAs(t, err, &uaErr)

	assert.NoError(t, page.Close(), "closing a cascaded page is a no-op")
	assert.NoError(t, doc.Close(), "double close is a no-op")
	assert.Len(t, fake.closedKinds, 3, "no handle is released twice")
}

func TestOpenFailureLeavesNoHandles(t *testing.T) {
	fake := newFake()
	fake.openErr = backend.MapOpenStatus(backend.StatusPassword)
	eng := newTestEngine(t, fake, Config{})

	_, err := eng.OpenDocument(context.Background(), []byte("pdf"), "wrong")
	var openErr *backend.OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, backend.OpenBadPassword, openErr.Reason)
	assert.Zero(t, eng.LiveHandles())
}

func TestReopenAfterWrongPassword(t *testing.T) {
	fake := newFake()
	fake.openErr = backend.MapOpenStatus(backend.StatusPassword)
	eng := newTestEngine(t, fake, Config{})
	ctx := context.Background()

	data := []byte("pdf")
	_, err := eng.OpenDocument(ctx, data, "wrong")
	var openErr *backend.OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Zero(t, eng.LiveHandles())

	fake.openErr = nil
	doc, err := eng.OpenDocument(ctx, data, "hunter2")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, doc.PageCount(), 1)
	assert.Equal(t, 1, eng.LiveHandles())
}

func TestTextOverLimitNeverTruncates(t *testing.T) {
	fake := newFake()
	fake.text = "far too much text"
	eng := newTestEngine(t, fake, Config{Limits: backend.Limits{MaxTextChars: 4}})
	ctx := context.Background()

	doc, err := eng.OpenDocument(ctx, []byte("pdf"), "")
	require.NoError(t, err)
	page, err := doc.Page(ctx, 0)
	require.NoError(t, err)

	_, err = page.Text(ctx)
	var textErr *backend.TextError
	require.ErrorAs(t, err, &textErr)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestPageIndexValidation(t *testing.T) {
	fake := newFake()
	eng := newTestEngine(t, fake, Config{})
	ctx := context.Background()

	doc, err := eng.OpenDocument(ctx, []byte("pdf"), "")
	require.NoError(t, err)

	for _, index := range []int{-1, 3, 99} {
		_, err := doc.Page(ctx, index)
		var rangeErr *backend.RangeError
		assert.ErrorAs(t, err, &rangeErr, "index %d", index)
	}
	assert.Empty(t, fake.loadedPages, "invalid indexes never reach the engine")
}

func TestRenderDefaultsToPageSize(t *testing.T) {
	fake := newFake()
	eng := newTestEngine(t, fake, Config{})
	ctx := context.Background()

	doc, err := eng.OpenDocument(ctx, []byte("pdf"), "")
	require.NoError(t, err)
	page, err := doc.Page(ctx, 0)
	require.NoError(t, err)

	res, err := page.Render(ctx, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, 612, res.Width)
	assert.Equal(t, 792, res.Height)
	assert.Equal(t, uint32(0xFFFFFFFF), fake.lastRender.Background)

	img := res.Image()
	assert.Equal(t, 612, img.Rect.Dx())
	assert.Equal(t, 792, img.Rect.Dy())

	res, err = page.Render(ctx, RenderOptions{DPI: 144})
	require.NoError(t, err)
	assert.Equal(t, 1224, res.Width)
	assert.Equal(t, 1584, res.Height)
}

func TestRenderDimensionLimits(t *testing.T) {
	fake := newFake()
	eng := newTestEngine(t, fake, Config{Limits: backend.Limits{MaxRenderDimension: 100}})
	ctx := context.Background()

	doc, err := eng.OpenDocument(ctx, []byte("pdf"), "")
	require.NoError(t, err)
	page, err := doc.Page(ctx, 0)
	require.NoError(t, err)

	_, err = page.Render(ctx, RenderOptions{Width: 200, Height: 50})
	var rangeErr *backend.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "render width", rangeErr.What)
}

func TestMetadataAndLabels(t *testing.T) {
	fake := newFake()
	fake.meta["Title"] = "Annual Report"
	fake.meta["Author"] = "J. Doe"
	fake.labels[0] = "iv"
	eng := newTestEngine(t, fake, Config{})
	ctx := context.Background()

	doc, err := eng.OpenDocument(ctx, []byte("pdf"), "")
	require.NoError(t, err)

	meta, err := doc.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Annual Report", meta.Title)
	assert.Equal(t, "J. Doe", meta.Author)
	assert.Empty(t, meta.Producer)

	label, err := doc.PageLabel(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "iv", label)

	label, err = doc.PageLabel(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, label)
}

func TestBookmarkTree(t *testing.T) {
	fake := newFake()
	// root -> Intro(p0) -> Chapter 1 -> [Section 1.1(p2)]
	fake.firstChild[0] = 101
	fake.sibling[101] = 102
	fake.firstChild[102] = 103
	fake.titles[101] = "Intro"
	fake.titles[102] = "Chapter 1"
	fake.titles[103] = "Section 1.1"
	fake.destPages[101] = 0
	fake.destPages[103] = 2
	eng := newTestEngine(t, fake, Config{})
	ctx := context.Background()

	doc, err := eng.OpenDocument(ctx, []byte("pdf"), "")
	require.NoError(t, err)

	marks, err := doc.Bookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, "Intro", marks[0].Title)
	assert.Equal(t, 0, marks[0].PageIndex)
	assert.Equal(t, "Chapter 1", marks[1].Title)
	assert.Equal(t, -1, marks[1].PageIndex, "no destination maps to -1")
	require.Len(t, marks[1].Children, 1)
	assert.Equal(t, "Section 1.1", marks[1].Children[0].Title)
	assert.Equal(t, 2, marks[1].Children[0].PageIndex)
}

func TestBookmarkCycleIsBounded(t *testing.T) {
	fake := newFake()
	fake.firstChild[0] = 101
	fake.sibling[101] = 101 // malformed outline: self-referencing sibling
	fake.titles[101] = "loop"
	eng := newTestEngine(t, fake, Config{})

	doc, err := eng.OpenDocument(context.Background(), []byte("pdf"), "")
	require.NoError(t, err)

	marks, err := doc.Bookmarks(context.Background())
	require.NoError(t, err)
	assert.Len(t, marks, maxBookmarks)
}

func TestProgressiveRenderLifecycle(t *testing.T) {
	fake := newFake()
	eng := newTestEngine(t, fake, Config{})
	ctx := context.Background()

	doc, err := eng.OpenDocument(ctx, []byte("pdf"), "")
	require.NoError(t, err)
	page, err := doc.Page(ctx, 0)
	require.NoError(t, err)

	pr, err := page.RenderProgressive(ctx, RenderOptions{Width: 10, Height: 10})
	require.NoError(t, err)
	assert.False(t, pr.Done())

	done, err := pr.Continue(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	before := eng.LiveHandles()
	res, err := pr.Result(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Pixels, 400)
	assert.Equal(t, before-1, eng.LiveHandles(), "Result consumes the render handle")

	_, err = pr.Result(ctx)
	var uaErr *handle.UseAfterDisposeError
	assert.ErrorAs(t, err, &uaErr)
	assert.NoError(t, pr.Close())
}

func TestFontIsDocumentOwned(t *testing.T) {
	fake := newFake()
	eng := newTestEngine(t, fake, Config{})
	ctx := context.Background()

	doc, err := eng.OpenDocument(ctx, []byte("pdf"), "")
	require.NoError(t, err)
	font, err := doc.LoadFont(ctx, []byte{0, 1, 0, 0}, backend.FontTrueType)
	require.NoError(t, err)
	assert.True(t, font.Alive())

	require.NoError(t, doc.Close())
	assert.False(t, font.Alive())
}

func TestEngineCloseReleasesEverything(t *testing.T) {
	fake := newFake()
	cfg := Config{}
	cfg.testBackend = fake
	eng, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	ctx := context.Background()

	doc, err := eng.OpenDocument(ctx, []byte("pdf"), "")
	require.NoError(t, err)
	_, err = doc.Page(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, eng.Close())
	assert.Zero(t, eng.LiveHandles())
	assert.Equal(t, 1, fake.shutdowns)

	require.NoError(t, eng.Close())
	assert.Equal(t, 1, fake.shutdowns, "a second Close does not shut down again")
}
