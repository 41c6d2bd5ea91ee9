package pasteboard

import (
	"bytes"
	"unicode/utf8"
	"unsafe"
)

var replacement = []byte(string(utf8.RuneError))

// decodeLossy turns an owned buffer into text, replacing invalid sequences
// with U+FFFD. b must not be modified afterwards.
func decodeLossy(b []byte) string {
	if !utf8.Valid(b) {
		b = bytes.ToValidUTF8(b, replacement)
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
