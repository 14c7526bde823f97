package db

import "strings"

// Filter narrows a word list the way the vocabulary page does.
type Filter struct {
	// Search matches a case-insensitive substring of the word name.
	Search string `json:"wordSearchText,omitempty"`
	// Level, when set, keeps only words at that level.
	Level *Level `json:"level,omitempty"`
	// Tags keeps words carrying at least one of the tags.
	Tags []string `json:"tags,omitempty"`
}

// FilterWords returns the words matching every criterion of f, in order.
func FilterWords(words []Word, f Filter) []Word {
	search := strings.ToLower(f.Search)
	var out []Word
	for _, w := range words {
		if search != "" && !strings.Contains(strings.ToLower(w.Name), search) {
			continue
		}
		if f.Level != nil && w.Level != *f.Level {
			continue
		}
		if len(f.Tags) > 0 && !hasAnyTag(w.Tags, f.Tags) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func hasAnyTag(have, want []string) bool {
	for _, t := range want {
		for _, h := range have {
			if h == t {
				return true
			}
		}
	}
	return false
}
