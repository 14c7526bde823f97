package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ErrWordNotFound is returned when a word id does not exist.
var ErrWordNotFound = errors.New("word not found")

// maxContextsPerSource caps how many context sentences are kept per word and source.
const maxContextsPerSource = 5

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// NormalizeName trims a word and puts it in Unicode NFC form so the same
// word typed or pasted differently maps to one row.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	list := []string{}
	if raw == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	return list, nil
}

const wordColumns = `id, name, trans, sentence, tags, level, source, host, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWord(row rowScanner) (Word, error) {
	var w Word
	var trans, tags string
	var level int
	if err := row.Scan(&w.ID, &w.Name, &trans, &w.Sentence, &tags, &level, &w.Source, &w.Host, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Word{}, err
	}
	var err error
	if w.Trans, err = decodeList(trans); err != nil {
		return Word{}, fmt.Errorf("decode trans of %q: %w", w.Name, err)
	}
	if w.Tags, err = decodeList(tags); err != nil {
		return Word{}, fmt.Errorf("decode tags of %q: %w", w.Name, err)
	}
	w.Level = Level(level)
	return w, nil
}

// SaveWord inserts a word or overwrites the translations, sentence, tags and
// provenance of the existing word with the same name. The learning level of
// an existing word is kept. It returns the word id.
func SaveWord(db DBExecutor, in WordInput) (int64, error) {
	name := NormalizeName(in.Name)
	if name == "" {
		return 0, fmt.Errorf("word name must be non-empty")
	}
	if !in.Level.Valid() {
		return 0, fmt.Errorf("invalid level %d", int(in.Level))
	}
	trans, err := encodeList(in.Trans)
	if err != nil {
		return 0, fmt.Errorf("encode trans: %w", err)
	}
	tags, err := encodeList(in.Tags)
	if err != nil {
		return 0, fmt.Errorf("encode tags: %w", err)
	}

	now := time.Now().UTC()
	var id int64
	query := `INSERT INTO words (name, trans, sentence, tags, level, source, host, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(name)
			  DO UPDATE SET
			    trans = excluded.trans,
			    sentence = excluded.sentence,
			    tags = excluded.tags,
			    source = COALESCE(NULLIF(excluded.source, ''), words.source),
			    host = COALESCE(NULLIF(excluded.host, ''), words.host),
			    updated_at = excluded.updated_at
			  RETURNING id`

	err = db.QueryRow(query, name, trans, strings.TrimSpace(in.Sentence), tags, int(in.Level), in.Source, in.Host, now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert word: %w", err)
	}
	return id, nil
}

// GetWord returns the word with the given id.
func GetWord(db DBExecutor, id int64) (*Word, error) {
	w, err := scanWord(db.QueryRow(`SELECT `+wordColumns+` FROM words WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrWordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// FindWord returns the saved word with the given name, or nil if there is none.
func FindWord(db DBExecutor, name string) (*Word, error) {
	w, err := scanWord(db.QueryRow(`SELECT `+wordColumns+` FROM words WHERE name = ?`, NormalizeName(name)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWords returns all saved words in the order they were first saved.
func ListWords(db DBExecutor) ([]Word, error) {
	rows, err := db.Query(`SELECT ` + wordColumns + ` FROM words ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveWord deletes a word together with its source links. The deletes
// run in one transaction when db is a *sql.DB.
func RemoveWord(db DBExecutor, id int64) error {
	if id <= 0 {
		return fmt.Errorf("wordID must be positive")
	}
	return inTx(db, func(tx DBExecutor) error {
		if _, err := tx.Exec(`DELETE FROM word_contexts WHERE word_source_id IN (SELECT id FROM word_sources WHERE word_id = ?)`, id); err != nil {
			return fmt.Errorf("delete contexts: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM word_sources WHERE word_id = ?`, id); err != nil {
			return fmt.Errorf("delete links: %w", err)
		}
		res, err := tx.Exec(`DELETE FROM words WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete word: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrWordNotFound
		}
		return nil
	})
}

// txStarter is satisfied by *sql.DB.
type txStarter interface {
	Begin() (*sql.Tx, error)
}

// inTx runs fn inside a transaction when db can start one. A *sql.Tx is
// passed through so the caller's transaction stays in charge.
func inTx(db DBExecutor, fn func(DBExecutor) error) error {
	starter, ok := db.(txStarter)
	if !ok {
		return fn(db)
	}
	tx, err := starter.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpdateWordLevel sets the learning level of a word.
func UpdateWordLevel(db DBExecutor, id int64, level Level) error {
	if !level.Valid() {
		return fmt.Errorf("invalid level %d", int(level))
	}
	return updateWord(db, id, `level = ?`, int(level))
}

// UpdateWordTrans replaces the translations of a word.
func UpdateWordTrans(db DBExecutor, id int64, trans []string) error {
	encoded, err := encodeList(trans)
	if err != nil {
		return fmt.Errorf("encode trans: %w", err)
	}
	return updateWord(db, id, `trans = ?`, encoded)
}

func updateWord(db DBExecutor, id int64, set string, value interface{}) error {
	if id <= 0 {
		return fmt.Errorf("wordID must be positive")
	}
	res, err := db.Exec(`UPDATE words SET `+set+`, updated_at = ? WHERE id = ?`, value, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrWordNotFound
	}
	return nil
}

// CreateOrGetSource returns existing source id or inserts a new source and returns its id.
func CreateOrGetSource(db DBExecutor, sourceType, title, author, website, url, meta string) (int64, error) {
	trimmedSourceType := strings.TrimSpace(sourceType)
	if trimmedSourceType == "" {
		return 0, fmt.Errorf("sourceType must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		// First, try to find an existing source.
		err := db.QueryRow(
			`SELECT id FROM sources WHERE url = ? AND title = ? AND author = ?`,
			url, title, author,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		// No existing row; try to insert one.
		res, err := db.Exec(
			`INSERT INTO sources (source_type, title, author, website, url, meta) VALUES (?, ?, ?, ?, ?, ?)`,
			trimmedSourceType, title, author, website, url, meta,
		)
		if err != nil {
			// If another concurrent transaction inserted the same source, retry the SELECT.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}

		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

// getOrCreateSentence returns the id of the stored sentence text, 0 for blank text.
func getOrCreateSentence(db DBExecutor, text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, nil
	}
	var id int64
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err == nil {
		return id, nil
	} else if err != sql.ErrNoRows {
		return 0, err
	}
	// Concurrent inserts are absorbed by the UNIQUE constraint.
	if _, err := db.Exec(`INSERT OR IGNORE INTO sentences (text) VALUES (?)`, trimmed); err != nil {
		return 0, err
	}
	if err := db.QueryRow(`SELECT id FROM sentences WHERE text = ?`, trimmed).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// LinkWordToSource records that the word was seen in the source with the
// given context, creating or updating the word_sources entry.
func LinkWordToSource(db DBExecutor, wordID, sourceID int64, context string, incrementAmount int) error {
	if wordID <= 0 {
		return fmt.Errorf("wordID must be positive")
	}
	if sourceID <= 0 {
		return fmt.Errorf("sourceID must be positive")
	}
	if incrementAmount < 1 {
		return fmt.Errorf("incrementAmount must be positive, got %d", incrementAmount)
	}

	ctxID, err := getOrCreateSentence(db, context)
	if err != nil {
		return fmt.Errorf("get/create context sentence: %w", err)
	}

	var wordSourceID int64
	err = db.QueryRow(`INSERT INTO word_sources (word_id, source_id, context_sentence_id, occurrence_count, first_seen_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(word_id, source_id) DO UPDATE SET
	  occurrence_count = word_sources.occurrence_count + excluded.occurrence_count,
	  context_sentence_id = COALESCE(excluded.context_sentence_id, word_sources.context_sentence_id)
	RETURNING id`, wordID, sourceID, nullableInt64(ctxID), incrementAmount, time.Now().UTC()).Scan(&wordSourceID)
	if err != nil {
		return err
	}
	if ctxID == 0 {
		return nil
	}

	_, err = db.Exec(`
		INSERT INTO word_contexts (word_source_id, sentence_id)
		SELECT ?, ?
		WHERE (SELECT COUNT(*) FROM word_contexts WHERE word_source_id = ?) < ?
		ON CONFLICT DO NOTHING`,
		wordSourceID, ctxID, wordSourceID, maxContextsPerSource)

	return err
}

// nullableInt64 returns nil for 0 (meaning no sentence) else the value.
func nullableInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// GetWordContexts returns the stored context sentences of a word across all sources.
func GetWordContexts(db DBExecutor, wordID int64) ([]string, error) {
	rows, err := db.Query(`SELECT s.text FROM word_contexts wc
		JOIN word_sources ws ON ws.id = wc.word_source_id
		JOIN sentences s ON s.id = wc.sentence_id
		WHERE ws.word_id = ? ORDER BY s.id`, wordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, rows.Err()
}

// GetWordsBySource returns words associated with a given source id.
func GetWordsBySource(db DBExecutor, sourceID int64) ([]Word, error) {
	rows, err := db.Query(`SELECT w.id, w.name, w.trans, w.sentence, w.tags, w.level, w.source, w.host, w.created_at, w.updated_at
		FROM words w JOIN word_sources ws ON ws.word_id = w.id WHERE ws.source_id = ? ORDER BY w.id`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSourceProgress returns the last processed row index for a source, -1 if none.
func GetSourceProgress(db DBExecutor, sourceID int64) (int, error) {
	var index int
	err := db.QueryRow("SELECT last_processed FROM sources WHERE id = ?", sourceID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateSourceProgress updates the last processed row index.
func UpdateSourceProgress(db DBExecutor, sourceID int64, index int) error {
	_, err := db.Exec("UPDATE sources SET last_processed = ? WHERE id = ?", index, sourceID)
	return err
}
