package backend

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// utf16Decoder decodes the engine's UTF-16LE buffers. Decoders are not
// goroutine-safe, so one is created per call; calls are serialized per
// session anyway.
func utf16Decoder() interface{ Bytes([]byte) ([]byte, error) } {
	return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
}

// DecodeUTF16 converts a UTF-16LE byte buffer, as written by the foreign
// engine, into a Go string. Trailing NUL terminators are stripped; an odd
// final byte is ignored.
func DecodeUTF16(raw []byte) (string, error) {
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	decoded, err := utf16Decoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(decoded), "\x00"), nil
}
