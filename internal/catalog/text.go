package catalog

import "golang.org/x/text/encoding/unicode"

var utf16leDecoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// decodeUTF16Name decodes a catalog Name column's raw bytes (always
// UTF-16LE, independent of any table column's own codepage) into a Go
// string.
func decodeUTF16Name(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	out, err := utf16leDecoder.Bytes(raw)
	if err != nil {
		return ""
	}
	return string(out)
}
