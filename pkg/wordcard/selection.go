package wordcard

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinWordLength is the shortest selection, in runes, that triggers a lookup.
const MinWordLength = 3

// Reasons a selection is not looked up. Callers treat all of them as a
// silent no-op; they exist so the rejection can be logged.
var (
	ErrEmptySelection = errors.New("empty selection")
	ErrTooShort       = errors.New("selection too short")
	ErrHasDigits      = errors.New("selection contains digits")
	ErrNonLatin       = errors.New("selection contains non-latin letters")
	ErrEditableTarget = errors.New("selection made inside an editable field")
)

// Selection is what the page reports when the user picks a word.
type Selection struct {
	Text     string
	Target   Element
	Editable bool
}

// ValidateSelection returns the trimmed word for sel, or the first rule it
// breaks.
func ValidateSelection(sel Selection) (string, error) {
	word := strings.TrimSpace(sel.Text)
	if word == "" {
		return "", ErrEmptySelection
	}
	if err := ValidateWord(word); err != nil {
		return "", err
	}
	if sel.Editable {
		return "", ErrEditableTarget
	}
	if sel.Target != nil {
		switch strings.ToLower(sel.Target.TagName()) {
		case "input", "textarea":
			return "", ErrEditableTarget
		}
	}
	return word, nil
}

// ValidateWord applies the content rules of ValidateSelection to a bare word.
func ValidateWord(word string) error {
	if word == "" {
		return ErrEmptySelection
	}
	if utf8.RuneCountInString(word) < MinWordLength {
		return ErrTooShort
	}
	for _, r := range word {
		if unicode.IsDigit(r) {
			return ErrHasDigits
		}
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return ErrNonLatin
		}
	}
	return nil
}
