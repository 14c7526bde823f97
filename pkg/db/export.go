package db

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNothingToExport is returned when an export is requested for an empty list.
var ErrNothingToExport = errors.New("no words to export")

// ExportWords writes one `name;trans;sentence;tag;tag...` row per word.
// Translations are joined with spaces. Fields are quoted only when they
// contain a separator, a quote or a line break.
func ExportWords(w io.Writer, words []Word) error {
	if len(words) == 0 {
		return ErrNothingToExport
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	for _, word := range words {
		record := []string{word.Name, strings.Join(word.Trans, " "), word.Sentence}
		record = append(record, word.Tags...)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write %q: %w", word.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseExport reads rows written by ExportWords back into save requests.
// The joined translation column comes back as a single entry.
func ParseExport(r io.Reader) ([]WordInput, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var out []WordInput
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse export: %w", err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		in := WordInput{Name: record[0]}
		if len(record) > 1 && strings.TrimSpace(record[1]) != "" {
			in.Trans = []string{record[1]}
		}
		if len(record) > 2 {
			in.Sentence = record[2]
		}
		for _, tag := range record[min(len(record), 3):] {
			if tag = strings.TrimSpace(tag); tag != "" {
				in.Tags = append(in.Tags, tag)
			}
		}
		out = append(out, in)
	}
	return out, nil
}
