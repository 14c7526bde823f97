package dictionary

import (
	"context"
	"sort"
	"strings"

	"github.com/japaniel/wordcard/pkg/db"
	"github.com/japaniel/wordcard/pkg/translate"
	"github.com/rs/zerolog"
)

// Dictionary is an in-memory index over dictionary entries. It is read-only
// after construction and safe for concurrent use.
type Dictionary struct {
	// Key: lower-cased headword or form.
	index  map[string][]Entry
	logger zerolog.Logger
}

// New builds the index of entries.
func New(entries []Entry, logger zerolog.Logger) *Dictionary {
	idx := make(map[string][]Entry)
	for _, e := range entries {
		keys := append([]string{e.Word}, e.Forms...)
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			k = indexKey(k)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			idx[k] = append(idx[k], e)
		}
	}
	return &Dictionary{index: idx, logger: logger}
}

func indexKey(s string) string {
	return strings.ToLower(db.NormalizeName(s))
}

// Len returns the number of indexed spellings.
func (d *Dictionary) Len() int { return len(d.index) }

// Lookup returns the entries for word ordered by id. Entries whose headword
// matches exactly come first.
func (d *Dictionary) Lookup(word string) []Entry {
	entries := d.index[indexKey(word)]
	if len(entries) == 0 {
		return nil
	}
	results := make([]Entry, len(entries))
	copy(results, entries)
	exact := db.NormalizeName(word)
	sort.SliceStable(results, func(i, j int) bool {
		ei, ej := results[i].Word == exact, results[j].Word == exact
		if ei != ej {
			return ei
		}
		return results[i].ID < results[j].ID
	})
	return results
}

// Translate implements translate.Provider.
func (d *Dictionary) Translate(ctx context.Context, word string) (*translate.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := d.Lookup(word)
	if len(entries) == 0 {
		return nil, translate.ErrNoData
	}
	res := &translate.Result{Query: word, Basic: &translate.Basic{}}
	for _, e := range entries {
		if res.Basic.USPhonetic == "" {
			res.Basic.USPhonetic = e.Phonetic
		}
		res.Basic.Explains = append(res.Basic.Explains, e.Explains()...)
		res.Translation = append(res.Translation, e.Translation...)
	}
	return res, nil
}

// Backfill fills the translations of saved words that have none. It
// returns the number of words updated.
func (d *Dictionary) Backfill(conn db.DBExecutor) (int, error) {
	words, err := db.ListWords(conn)
	if err != nil {
		return 0, err
	}

	type update struct {
		id    int64
		name  string
		trans []string
	}
	var updates []update

	for _, w := range words {
		if len(w.Trans) > 0 {
			continue
		}
		res, err := d.Translate(context.Background(), w.Name)
		if err != nil {
			continue
		}
		trans := res.Translation
		if len(trans) == 0 {
			trans = res.Basic.Explains
		}
		if len(trans) == 0 {
			continue
		}
		updates = append(updates, update{w.ID, w.Name, trans})
	}

	updated := 0
	for _, u := range updates {
		if err := db.UpdateWordTrans(conn, u.id, u.trans); err != nil {
			d.logger.Warn().Err(err).Str("word", u.name).Msg("Failed to backfill translation")
			continue
		}
		updated++
	}
	return updated, nil
}
