package fontkit

import (
	"encoding/hex"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Simple fonts are written with WinAnsiEncoding, which matches Windows-1252
const (
	firstChar = 32
	lastChar  = 255
)

// winAnsiBytes encodes text as WinAnsi bytes. Runes outside the code page are
// folded to their unaccented base letter when possible, otherwise '?'.
// The second result reports whether any rune had to be substituted.
func winAnsiBytes(text string) ([]byte, bool) {
	out := make([]byte, 0, len(text))
	lossy := false
	for _, r := range text {
		if b, ok := charmap.Windows1252.EncodeRune(r); ok && b >= firstChar {
			out = append(out, b)
			continue
		}
		lossy = true
		out = append(out, foldRune(r))
	}
	return out, lossy
}

func foldRune(r rune) byte {
	decomposed := norm.NFD.String(string(r))
	for _, base := range decomposed {
		if b, ok := charmap.Windows1252.EncodeRune(base); ok && b >= firstChar {
			return b
		}
		break
	}
	return '?'
}

// hexString renders raw bytes as a PDF hex string operand
func hexString(b []byte) string {
	return "<" + strings.ToUpper(hex.EncodeToString(b)) + ">"
}
