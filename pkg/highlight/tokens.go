package highlight

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// apostrophes are not word characters: "dog's" holds the word "dog".
const apostrophes = "'\u2019"

// segments splits s on Unicode word boundaries and around apostrophes.
// Concatenating the result gives back s.
func segments(s string) []string {
	var out []string
	state := -1
	for len(s) > 0 {
		var word string
		word, s, state = uniseg.FirstWordInString(s, state)
		out = appendSplitApostrophes(out, word)
	}
	return out
}

func appendSplitApostrophes(out []string, seg string) []string {
	for len(seg) > 0 {
		i := strings.IndexAny(seg, apostrophes)
		if i < 0 {
			return append(out, seg)
		}
		if i > 0 {
			out = append(out, seg[:i])
		}
		_, size := utf8.DecodeRuneInString(seg[i:])
		out = append(out, seg[i:i+size])
		seg = seg[i+size:]
	}
	return out
}

// match is a byte range of an occurrence inside a text.
type match struct {
	start, end int
}

// findOccurrences returns the non-overlapping occurrences of the segment
// sequence want inside text, left to right. An occurrence has to start and
// end on word boundaries, so "dog" is found in "a dog." but not in "hotdog".
func findOccurrences(text string, want []string) []match {
	if len(want) == 0 {
		return nil
	}
	have := segments(text)
	offsets := make([]int, len(have)+1)
	for i, seg := range have {
		offsets[i+1] = offsets[i] + len(seg)
	}

	var out []match
	for i := 0; i+len(want) <= len(have); {
		if equalSegments(have[i:i+len(want)], want) {
			out = append(out, match{start: offsets[i], end: offsets[i+len(want)]})
			i += len(want)
			continue
		}
		i++
	}
	return out
}

func equalSegments(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
