// Package dictionary provides an offline word dictionary loaded from a
// JSON file.
package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
)

// Entry is one headword of the dictionary file.
type Entry struct {
	ID          string   `json:"id"`
	Word        string   `json:"word"`
	Phonetic    string   `json:"phonetic"`
	// Forms are inflected spellings that resolve to the headword.
	Forms       []string `json:"forms"`
	Senses      []Sense  `json:"senses"`
	Translation []string `json:"translation"`
}

// Sense is one meaning of an entry.
type Sense struct {
	PartOfSpeech string   `json:"pos"`
	Gloss        []string `json:"gloss"`
}

// Load reads a dictionary file, either `{"words": [...]}` or a bare array
// of entries.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var wrapped struct {
		Words []Entry `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapped); err == nil && len(wrapped.Words) > 0 {
		return wrapped.Words, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []Entry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return entries, nil
}

// Explains flattens the senses of e into "pos. gloss; gloss" lines.
func (e Entry) Explains() []string {
	var out []string
	for _, s := range e.Senses {
		if len(s.Gloss) == 0 {
			continue
		}
		line := ""
		if s.PartOfSpeech != "" {
			line = s.PartOfSpeech + ". "
		}
		for i, g := range s.Gloss {
			if i > 0 {
				line += "; "
			}
			line += g
		}
		out = append(out, line)
	}
	return out
}
