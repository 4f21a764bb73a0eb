package textfit

import (
	"strings"
	"unicode/utf8"
)

// Fillers are the characters recognised as blank-field padding
const Fillers = "_.-"

// Decoration describes a token padded with the same filler on both sides,
// such as "____(1)____".
type Decoration struct {
	Filler rune
	// Count is the number of fillers per side. Asymmetric padding uses the
	// smaller side.
	Count int
	Core  string
}

// Pad returns text surrounded by n fillers per side
func (d Decoration) Pad(text string, n int) string {
	if n <= 0 {
		return text
	}
	side := strings.Repeat(string(d.Filler), n)
	return side + text + side
}

// ParseDecoration reports whether token starts and ends with a run of the
// same filler character.
func ParseDecoration(token string) (Decoration, bool) {
	if token == "" {
		return Decoration{}, false
	}
	first, _ := utf8.DecodeRuneInString(token)
	last, _ := utf8.DecodeLastRuneInString(token)
	if first != last || !strings.ContainsRune(Fillers, first) {
		return Decoration{}, false
	}

	runes := []rune(token)
	left := 0
	for left < len(runes) && runes[left] == first {
		left++
	}
	if left == len(runes) {
		// nothing but filler
		return Decoration{Filler: first, Count: len(runes) / 2}, len(runes) >= 2
	}
	right := 0
	for right < len(runes) && runes[len(runes)-1-right] == first {
		right++
	}

	return Decoration{
		Filler: first,
		Count:  min(left, right),
		Core:   string(runes[left : len(runes)-right]),
	}, true
}
