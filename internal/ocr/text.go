package ocr

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// confusions maps glyphs recognizers commonly emit for handwritten digits.
var confusions = map[rune]rune{
	'O': '0', 'o': '0', 'D': '0', 'Q': '0',
	'I': '1', 'l': '1', '|': '1', 'i': '1',
	'Z': '2', 'z': '2',
	'S': '5', 's': '5',
	'B': '8',
	'g': '9', 'q': '9',
}

// CleanDigits normalizes recognizer output for a number box: full-width and
// compatibility forms fold to ASCII, common letter confusions map to digits
// and everything else is dropped.
func CleanDigits(s string) string {
	if s == "" {
		return s
	}
	s = width.Narrow.String(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if d, ok := confusions[r]; ok {
			r = d
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanText normalizes free text such as decoded barcode payloads: NFC,
// zero-width and control characters removed, whitespace collapsed.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\ufeff':
			continue
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
