package fontkit

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const bfcharBlock = 100

type cmapEntry struct {
	gid  uint16
	text string
}

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// toUnicodeCMap builds a ToUnicode CMap mapping two-byte glyph codes to text
func toUnicodeCMap(entries []cmapEntry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n")
	b.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	b.WriteString("/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n")
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")

	enc := utf16BE.NewEncoder()
	for start := 0; start < len(entries); start += bfcharBlock {
		end := min(start+bfcharBlock, len(entries))
		fmt.Fprintf(&b, "%d beginbfchar\n", end-start)
		for _, e := range entries[start:end] {
			u, err := enc.String(e.text)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %q as UTF-16: %w", e.text, err)
			}
			fmt.Fprintf(&b, "<%04X> <%s>\n", e.gid, strings.ToUpper(hex.EncodeToString([]byte(u))))
		}
		b.WriteString("endbfchar\n")
	}

	b.WriteString("endcmap\nCMapName currentdict /CMap defineresource pop\nend\nend\n")
	return b.Bytes(), nil
}
