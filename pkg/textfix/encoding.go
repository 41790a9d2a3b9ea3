// Package textfix repairs and normalizes text taken from the legacy export.
package textfix

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// cp1250High maps byte values 0x80-0xFF to their Windows-1250 characters.
// Entries for bytes CP1250 leaves undefined hold the byte's own Latin-1 rune.
var cp1250High = buildCP1250High()

func buildCP1250High() [128]rune {
	var table [128]rune
	for i := range table {
		b := byte(0x80 + i)
		r := charmap.Windows1250.DecodeByte(b)
		if r == utf8.RuneError {
			r = rune(b)
		}
		table[i] = r
	}
	return table
}

// RepairCP1250 reverses text that was stored as Windows-1250 bytes, read back as Latin-1
// and re-encoded as UTF-8. Every rune in U+0080-U+00FF is replaced with the character its
// byte value has in Windows-1250; all other runes pass through unchanged.
func RepairCP1250(s string) string {
	if !needsRepair(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x80 && r <= 0xFF {
			b.WriteRune(cp1250High[r-0x80])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func needsRepair(s string) bool {
	for _, r := range s {
		if r >= 0x80 && r <= 0xFF {
			return true
		}
	}
	return false
}
