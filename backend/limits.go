package backend

// Limits caps how much data may cross from foreign memory into host
// buffers. The caps are applied at the boundary, before allocation, so an
// adversarial document cannot force unbounded host-side allocation.
//
// Render caps follow the usual shape for untrusted raster dimensions: a
// per-axis cap plus a total pixel cap, since corrupted documents routinely
// lie about sizes.
type Limits struct {
	// MaxTextChars caps extracted text length per page. Exceeding it fails
	// with *TextError. Zero means unlimited.
	MaxTextChars int
	// MaxRenderDimension caps render width and height individually.
	MaxRenderDimension int
	// MaxRenderPixels caps width*height.
	MaxRenderPixels int64
}

// DefaultLimits returns the caps applied when the caller configures none:
// 16 MiB of text per page, 16384 px per axis, 64 MP per raster (256 MiB of
// RGBA).
func DefaultLimits() Limits {
	return Limits{
		MaxTextChars:       16 * 1024 * 1024,
		MaxRenderDimension: 16384,
		MaxRenderPixels:    64 * 1024 * 1024,
	}
}

// ValidatePageIndex checks a 0-based page index against the page count.
func ValidatePageIndex(index, pageCount int) error {
	if index < 0 || index >= pageCount {
		return &RangeError{What: "page index", Value: index, Min: 0, Max: pageCount - 1}
	}
	return nil
}

// ValidateRenderRequest checks raster dimensions against the limits before
// any foreign call is made.
func ValidateRenderRequest(req RenderRequest, limits Limits) error {
	maxDim := limits.MaxRenderDimension
	if maxDim <= 0 {
		maxDim = int(^uint(0) >> 1)
	}
	if req.Width <= 0 || req.Width > maxDim {
		return &RangeError{What: "render width", Value: req.Width, Min: 1, Max: maxDim}
	}
	if req.Height <= 0 || req.Height > maxDim {
		return &RangeError{What: "render height", Value: req.Height, Min: 1, Max: maxDim}
	}
	if limits.MaxRenderPixels > 0 {
		if pixels := int64(req.Width) * int64(req.Height); pixels > limits.MaxRenderPixels {
			maxH := int(limits.MaxRenderPixels / int64(req.Width))
			return &RangeError{What: "render height", Value: req.Height, Min: 1, Max: maxH}
		}
	}
	return nil
}
