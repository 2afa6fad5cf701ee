package fetcher

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText returns data as UTF-8. Valid UTF-8 passes through with any byte
// order mark removed; anything else is decoded as ISO-8859-1, which accepts
// every byte sequence.
func DecodeText(data []byte) []byte {
	if utf8.Valid(data) {
		return bytes.TrimPrefix(data, utf8BOM)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return out
}
