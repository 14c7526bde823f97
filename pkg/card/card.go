// Package card is the word card shown in the popup: the looked up word, its
// translation and context, and the edits made before saving.
package card

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/japaniel/wordcard/pkg/db"
	"github.com/japaniel/wordcard/pkg/popup"
	"github.com/japaniel/wordcard/pkg/translate"
	"github.com/rs/zerolog"
)

// ErrWouldOverwrite is returned by Save when the word is already saved and
// the overwrite was not confirmed.
var ErrWouldOverwrite = errors.New("word already saved")

// ErrEmptyWord is returned when the card word is edited to nothing.
var ErrEmptyWord = errors.New("empty word")

// Store is the part of the lookup service a card needs.
type Store interface {
	Find(name string) (*db.Word, error)
	Create(in db.WordInput) (*db.Word, error)
	Remove(name string) (bool, error)
}

// Loader builds cards.
type Loader struct {
	store    Store
	provider translate.Provider
	logger   zerolog.Logger
}

// NewLoader returns a Loader. provider may be nil when no translation
// source is configured.
func NewLoader(store Store, provider translate.Provider, logger zerolog.Logger) *Loader {
	return &Loader{store: store, provider: provider, logger: logger}
}

// Card is one word being looked at.
type Card struct {
	Word         string
	Surroundings string
	Source       string
	Host         string

	Phonetic string
	Explains []string
	// Trans are the translations that will be saved, definitions added by
	// the user included.
	Trans []string
	Tags  []string

	// Saved is the stored version of the word, nil when it is new.
	Saved *db.Word

	loader *Loader
}

// Load looks up the word of p: its saved version and its translation. A
// word without translation data still yields a card.
func (l *Loader) Load(ctx context.Context, p popup.Payload) (*Card, error) {
	c := &Card{
		Word:         strings.TrimSpace(p.Word),
		Surroundings: p.Surroundings,
		Source:       p.Source,
		Host:         p.Host,
		loader:       l,
	}
	if c.Word == "" {
		return nil, ErrEmptyWord
	}
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Card) load(ctx context.Context) error {
	saved, err := c.loader.store.Find(c.Word)
	if err != nil {
		return fmt.Errorf("find %q: %w", c.Word, err)
	}
	c.Saved = saved
	c.Tags = nil
	if saved != nil {
		c.Tags = append([]string(nil), saved.Tags...)
	}

	c.Phonetic, c.Explains, c.Trans = "", nil, nil
	if c.loader.provider == nil {
		return nil
	}
	res, err := c.loader.provider.Translate(ctx, c.Word)
	switch {
	case err == nil && res != nil && res.Basic != nil:
		c.Phonetic = res.Basic.USPhonetic
		c.Explains = append([]string(nil), res.Basic.Explains...)
		c.Trans = append([]string(nil), res.Translation...)
	case err == nil, errors.Is(err, translate.ErrNoData):
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		// The card stays usable without a translation.
		c.loader.logger.Warn().Err(err).Str("word", c.Word).Msg("Translation failed")
	}
	return nil
}

// UpdateWord replaces the looked up word, e.g. after a misselection, and
// loads it again.
func (c *Card) UpdateWord(ctx context.Context, word string) error {
	word = strings.TrimSpace(word)
	if word == "" {
		return ErrEmptyWord
	}
	if word == c.Word {
		return nil
	}
	c.Word = word
	return c.load(ctx)
}

// AddDefinition appends a user definition. Blank input is ignored.
func (c *Card) AddDefinition(def string) bool {
	def = strings.TrimSpace(def)
	if def == "" {
		return false
	}
	c.Trans = append(c.Trans, def)
	return true
}

// SetTags replaces the tags, dropping blanks and duplicates.
func (c *Card) SetTags(tags []string) {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	c.Tags = out
}

// EditSentence replaces the context sentence.
func (c *Card) EditSentence(sentence string) {
	c.Surroundings = sentence
}

// Save stores the card. An already saved word is only replaced when
// overwrite is set; otherwise ErrWouldOverwrite is returned so the caller
// can ask first.
func (c *Card) Save(overwrite bool) (*db.Word, error) {
	if c.Saved != nil && !overwrite {
		return nil, ErrWouldOverwrite
	}
	w, err := c.loader.store.Create(db.WordInput{
		Name:     c.Word,
		Trans:    c.Trans,
		Sentence: c.Surroundings,
		Tags:     c.Tags,
		Source:   c.Source,
		Host:     c.Host,
	})
	if err != nil {
		return nil, err
	}
	c.Saved = w
	c.loader.logger.Info().Str("word", w.Name).Msg("Save successfully")
	return w, nil
}

// Remove deletes the saved word. It reports whether anything was removed.
func (c *Card) Remove() (bool, error) {
	removed, err := c.loader.store.Remove(c.Word)
	if err != nil {
		return false, err
	}
	c.Saved = nil
	return removed, nil
}
