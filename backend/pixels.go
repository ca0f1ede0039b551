package backend

// SwapBGRA converts a BGRA pixel buffer to RGBA in place and returns it.
// The foreign engine rasters BGRA; host callers get RGBA.
func SwapBGRA(pixels []byte) []byte {
	for i := 0; i+3 < len(pixels); i += 4 {
		pixels[i], pixels[i+2] = pixels[i+2], pixels[i]
	}
	return pixels
}
