package wordcard

import "strings"

// isSentenceEnd reports whether r closes a sentence.
func isSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!' || r == ';'
}

// SplitSentences cuts text on . ? ! and ; into trimmed sentences. Each
// sentence keeps the mark that ended it and gains a trailing space, so that
// joining a run of sentences reads naturally. Blank fragments are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func(mark rune) {
		fragment := strings.TrimSpace(current.String())
		current.Reset()
		if fragment == "" {
			return
		}
		if mark != 0 {
			fragment += string(mark)
		}
		sentences = append(sentences, fragment+" ")
	}

	for _, r := range text {
		if isSentenceEnd(r) {
			flush(r)
			continue
		}
		current.WriteRune(r)
	}
	flush(0)
	return sentences
}

// WindowSentences returns sentenceCount consecutive sentences of fullText
// centred on the first sentence containing word. With autocut off or a
// non-positive count, fullText is returned as is.
//
// When the count is even the extra sentence goes before the match. If word
// does not occur at all the window is taken from the start of the text.
func WindowSentences(word, fullText string, sentenceCount int, autocut bool) string {
	if !autocut || sentenceCount <= 0 {
		return fullText
	}

	sentences := SplitSentences(fullText)
	if len(sentences) == 0 {
		return ""
	}

	index := -1
	for i, s := range sentences {
		if strings.Contains(s, word) {
			index = i
			break
		}
	}

	// ceil((n-1)/2) in integer arithmetic
	left := sentenceCount / 2
	start := index - left
	end := index + (sentenceCount - 1 - left)
	last := len(sentences) - 1

	if start < 0 {
		start = 0
		end = sentenceCount - 1
	} else if end > last {
		end = last
		start = end - (sentenceCount - 1)
		if start < 0 {
			start = 0
		}
	}
	if end > last {
		end = last
	}

	return strings.Join(sentences[start:end+1], "")
}
