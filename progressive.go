package quill

import (
	"context"

	"github.com/quillbind/quill/backend"
	"github.com/quillbind/quill/handle"
)

// ProgressiveRender is an in-flight paginated raster. The native backend
// pauses the engine periodically so the host can interleave other work;
// the sandboxed backend completes the raster up front and the remaining
// steps only report completion.
//
// A ProgressiveRender belongs to its page. Result consumes it; Close
// abandons it.
type ProgressiveRender struct {
	page *Page
	h    *handle.Disposable
	done bool
}

// RenderProgressive starts a progressive raster of the page.
func (p *Page) RenderProgressive(ctx context.Context, opts RenderOptions) (*ProgressiveRender, error) {
	req, err := p.renderRequest(ctx, opts)
	if err != nil {
		return nil, err
	}
	raw, err := p.h.Value()
	if err != nil {
		return nil, err
	}
	prRaw, status, err := p.doc.eng.be.ProgressiveStart(ctx, raw, req)
	if err != nil {
		return nil, err
	}
	h, err := p.doc.eng.reg.New(handle.KindProgressive, prRaw, p.h)
	if err != nil {
		_ = p.doc.eng.be.CloseHandle(ctx, handle.KindProgressive, prRaw)
		return nil, err
	}
	return &ProgressiveRender{page: p, h: h, done: status == backend.RenderDone}, nil
}

// Done reports whether the raster has completed.
func (pr *ProgressiveRender) Done() bool { return pr.done }

// Continue resumes a paused raster for another slice of work. It returns
// true once the raster is complete.
func (pr *ProgressiveRender) Continue(ctx context.Context) (bool, error) {
	if pr.done {
		return true, nil
	}
	raw, err := pr.h.Value()
	if err != nil {
		return false, err
	}
	status, err := pr.page.doc.eng.be.ProgressiveContinue(ctx, raw)
	if err != nil {
		return false, err
	}
	pr.done = status == backend.RenderDone
	return pr.done, nil
}

// Result reads back the completed raster and releases the render. Call
// only after Done reports true.
func (pr *ProgressiveRender) Result(ctx context.Context) (*Render, error) {
	raw, err := pr.h.Value()
	if err != nil {
		return nil, err
	}
	res, err := pr.page.doc.eng.be.ProgressiveFinish(ctx, raw)
	if err != nil {
		return nil, err
	}
	if err := pr.h.Dispose(); err != nil {
		return nil, err
	}
	return &Render{Width: res.Width, Height: res.Height, Stride: res.Stride, Pixels: res.Pixels}, nil
}

// Close abandons the render without reading it back. Closing twice, or
// after Result, is a no-op.
func (pr *ProgressiveRender) Close() error { return pr.h.Dispose() }
