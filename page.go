package quill

import (
	"context"
	"image"
	"math"

	"github.com/quillbind/quill/backend"
	"github.com/quillbind/quill/handle"
)

// Page is one loaded page. It belongs to its document; closing either
// releases it.
type Page struct {
	doc   *Document
	h     *handle.Disposable
	index int

	// text page, created lazily on first Text call
	tp *handle.Disposable
}

// Index returns the page's 0-based index in the document.
func (p *Page) Index() int { return p.index }

// Size returns the page dimensions in points.
func (p *Page) Size(ctx context.Context) (width, height float64, err error) {
	raw, err := p.h.Value()
	if err != nil {
		return 0, 0, err
	}
	return p.doc.eng.be.PageSize(ctx, raw)
}

// Text extracts the full text of the page. If the page holds more than
// the session's MaxTextChars limit the call fails with *backend.TextError;
// it never returns a truncated string.
func (p *Page) Text(ctx context.Context) (string, error) {
	tp, err := p.textPage(ctx)
	if err != nil {
		return "", err
	}
	return p.doc.eng.be.Text(ctx, tp, p.doc.eng.limits)
}

func (p *Page) textPage(ctx context.Context) (uint64, error) {
	if p.tp != nil && p.tp.Alive() {
		return p.tp.Value()
	}
	raw, err := p.h.Value()
	if err != nil {
		return 0, err
	}
	tpRaw, err := p.doc.eng.be.LoadTextPage(ctx, raw)
	if err != nil {
		return 0, err
	}
	h, err := p.doc.eng.reg.New(handle.KindTextPage, tpRaw, p.h)
	if err != nil {
		_ = p.doc.eng.be.CloseHandle(ctx, handle.KindTextPage, tpRaw)
		return 0, err
	}
	p.tp = h
	return tpRaw, nil
}

// RenderOptions configures a raster. Zero Width and Height derive pixel
// dimensions from the page size at DPI (default 72, one pixel per point).
type RenderOptions struct {
	Width      int
	Height     int
	DPI        float64
	Rotation   backend.Rotation
	Flags      backend.RenderFlags
	Background uint32 // ARGB fill, default opaque white
}

// Render holds a completed raster: RGBA, 4 bytes per pixel, rows Stride
// bytes apart.
type Render struct {
	Width  int
	Height int
	Stride int
	Pixels []byte
}

// Image copies the raster into a standard library image.
func (r *Render) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		copy(img.Pix[y*img.Stride:], r.Pixels[y*r.Stride:y*r.Stride+4*r.Width])
	}
	return img
}

func (p *Page) renderRequest(ctx context.Context, opts RenderOptions) (backend.RenderRequest, error) {
	req := backend.RenderRequest{
		Width:      opts.Width,
		Height:     opts.Height,
		Rotation:   opts.Rotation,
		Flags:      opts.Flags,
		Background: opts.Background,
	}
	if req.Background == 0 {
		req.Background = 0xFFFFFFFF
	}
	if req.Width == 0 || req.Height == 0 {
		w, h, err := p.Size(ctx)
		if err != nil {
			return backend.RenderRequest{}, err
		}
		dpi := opts.DPI
		if dpi <= 0 {
			dpi = 72
		}
		scale := dpi / 72
		if req.Width == 0 {
			req.Width = int(math.Ceil(w * scale))
		}
		if req.Height == 0 {
			req.Height = int(math.Ceil(h * scale))
		}
	}
	if err := backend.ValidateRenderRequest(req, p.doc.eng.limits); err != nil {
		return backend.RenderRequest{}, err
	}
	return req, nil
}

// Render rasters the page into host-owned RGBA pixels.
func (p *Page) Render(ctx context.Context, opts RenderOptions) (*Render, error) {
	req, err := p.renderRequest(ctx, opts)
	if err != nil {
		return nil, err
	}
	raw, err := p.h.Value()
	if err != nil {
		return nil, err
	}
	res, err := p.doc.eng.be.RenderPage(ctx, raw, req)
	if err != nil {
		return nil, err
	}
	return &Render{Width: res.Width, Height: res.Height, Stride: res.Stride, Pixels: res.Pixels}, nil
}

// Close releases the page and its text page. Closing twice is a no-op.
func (p *Page) Close() error { return p.h.Dispose() }
