package pinpoint

import (
	"regexp"
	"strings"
	"unicode"
)

// foldedText is a case-folded (and optionally whitespace-collapsed) copy of
// a source string together with a byte-level mapping back to the original.
// Strategies search the folded form and report offsets in the original.
type foldedText struct {
	s string

	// origStart[i] is the byte offset in the original string of the rune
	// that produced folded byte i; origEnd[i] is the offset just past it.
	origStart []int
	origEnd   []int
}

// foldOptions parameterizes normalization aggressiveness. Different matcher
// strategies fold with different options, so this is not a single transform.
type foldOptions struct {
	collapseWhitespace bool
}

// fold lower-cases s rune by rune, optionally collapsing whitespace runs to
// a single space, while recording the original byte span behind every
// emitted byte. Pure and total: any input produces a valid mapping.
func fold(s string, opts foldOptions) foldedText {
	var b strings.Builder
	b.Grow(len(s))

	ft := foldedText{
		origStart: make([]int, 0, len(s)),
		origEnd:   make([]int, 0, len(s)),
	}

	inSpace := false
	for i, r := range s {
		runeEnd := i + runeLen(r)

		if opts.collapseWhitespace && unicode.IsSpace(r) {
			if inSpace {
				continue
			}
			inSpace = true
			b.WriteByte(' ')
			ft.origStart = append(ft.origStart, i)
			ft.origEnd = append(ft.origEnd, runeEnd)
			continue
		}
		inSpace = false

		lower := unicode.ToLower(r)
		n := b.Len()
		b.WriteRune(lower)
		for j := n; j < b.Len(); j++ {
			ft.origStart = append(ft.origStart, i)
			ft.origEnd = append(ft.origEnd, runeEnd)
		}
	}

	ft.s = b.String()
	return ft
}

// spanToOriginal maps a [start, end) byte span in the folded string back to
// the corresponding span in the original string.
func (ft foldedText) spanToOriginal(start, end int) (int, int) {
	if start < 0 || end <= start || end > len(ft.s) {
		return 0, 0
	}
	return ft.origStart[start], ft.origEnd[end-1]
}

func runeLen(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}

// Normalize lower-cases s and collapses whitespace runs to single spaces.
// Idempotent: normalizing already-normalized text is a no-op.
func Normalize(s string) string {
	return strings.TrimSpace(fold(s, foldOptions{collapseWhitespace: true}).s)
}

var citationMarkerPattern = regexp.MustCompile(`\[\d+\]|\[[a-z]\]|(?i:\[citation needed\]|\[edit\])`)

// StripCitationMarkers removes bracketed numeric citations ("[12]"),
// single-letter note markers, "[citation needed]" and "[edit]" tokens.
//
// Display use only: stripping shifts offsets, so locate against the
// unstripped text and strip only what is shown to the user.
func StripCitationMarkers(s string) string {
	return citationMarkerPattern.ReplaceAllString(s, "")
}
