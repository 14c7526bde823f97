// Package ingest imports word lists into the vocabulary store.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/japaniel/wordcard/pkg/db"
	"github.com/japaniel/wordcard/pkg/dictionary"
	"github.com/japaniel/wordcard/pkg/wordcard"
	"github.com/rs/zerolog"
)

// SourceTypeImport marks sources created for imported files.
const SourceTypeImport = "import"

// Ingester handles the import of word rows into the database.
type Ingester struct {
	DB *sql.DB
	// Dict, when set, fills translations for rows that carry none.
	Dict      *dictionary.Dictionary
	BatchSize int
	Logger    zerolog.Logger
	// OnProgress is called periodically with the number of processed rows and total rows.
	OnProgress func(current, total int)

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// Stats summarizes an import run.
type Stats struct {
	Imported int
	Skipped  int
}

// NewIngester creates a new Ingester.
func NewIngester(conn *sql.DB, dict *dictionary.Dictionary, logger zerolog.Logger) *Ingester {
	return &Ingester{
		DB:        conn,
		Dict:      dict,
		BatchSize: 50,
		Logger:    logger,
		Workers:   4,
	}
}

// processedRow holds the result of preparing a row before DB ingestion
type processedRow struct {
	Index int
	Input db.WordInput
	// Skip is why the row is not imported, nil for a valid row.
	Skip  error
	Error error
}

// Ingest validates rows with concurrent workers and saves them in order
// with batched writes. Each written row checkpoints the source progress, so
// a second run with the same sourceID resumes after the last saved row.
func (ig *Ingester) Ingest(ctx context.Context, sourceID int64, rows []db.WordInput) (Stats, error) {
	lastProcessed, err := db.GetSourceProgress(ig.DB, sourceID)
	if err != nil {
		ig.Logger.Warn().Err(err).Int64("source_id", sourceID).Msg("Failed to retrieve progress")
		lastProcessed = -1
	}
	if lastProcessed >= 0 {
		ig.Logger.Info().Int("index", lastProcessed+1).Msg("Resuming import")
	}

	totalRows := len(rows)
	startIdx := lastProcessed + 1
	if startIdx >= totalRows {
		return Stats{}, nil
	}

	workers := ig.Workers
	if workers <= 0 {
		workers = 1
	}
	batchSize := ig.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}
	resultCh := make(chan processedRow, workers*2)
	closedResultCh := false
	doneCh := make(chan error, 1)

	var imported, skipped int64

	bw := NewBatchWriter(ig.DB, batchSize, 100*time.Millisecond)
	var batchErr error
	var batchErrMu sync.Mutex
	bw.OnError = func(e error) {
		batchErrMu.Lock()
		if batchErr == nil {
			batchErr = e
		}
		batchErrMu.Unlock()
	}

	defer func() {
		wp.Close()
		if !closedResultCh {
			close(resultCh)
		}
		_ = bw.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	write := func(item processedRow) error {
		return bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			if item.Skip == nil {
				wordID, err := db.SaveWord(tx, item.Input)
				if err != nil {
					return fmt.Errorf("failed to persist word %s: %w", item.Input.Name, err)
				}
				if err := db.LinkWordToSource(tx, wordID, sourceID, item.Input.Sentence, 1); err != nil {
					return fmt.Errorf("failed to link word %d: %w", wordID, err)
				}
				atomic.AddInt64(&imported, 1)
			} else {
				atomic.AddInt64(&skipped, 1)
			}
			// Checkpoint progress for this row
			if err := db.UpdateSourceProgress(tx, sourceID, item.Index); err != nil {
				return fmt.Errorf("failed to save progress: %w", err)
			}
			return nil
		})
	}

	// Consumer: writes results in row order so the checkpoint never skips
	// an unwritten row.
	go func() {
		defer close(doneCh)
		buffer := make(map[int]processedRow)
		nextIdx := startIdx

		drain := func() error {
			for {
				item, ok := buffer[nextIdx]
				if !ok {
					return nil
				}
				delete(buffer, nextIdx)
				if item.Skip != nil {
					ig.Logger.Debug().Err(item.Skip).Int("row", item.Index).Str("word", item.Input.Name).Msg("Skipping row")
				}
				if err := write(item); err != nil {
					return err
				}
				if ig.OnProgress != nil && (nextIdx+1)%batchSize == 0 {
					ig.OnProgress(nextIdx+1, totalRows)
				}
				nextIdx++
			}
		}

		for {
			res, ok := <-resultCh
			if err := ctx.Err(); err != nil {
				doneCh <- err
				return
			}
			if !ok {
				if err := drain(); err != nil {
					doneCh <- err
					return
				}
				if ig.OnProgress != nil {
					ig.OnProgress(totalRows, totalRows)
				}
				doneCh <- nil
				return
			}
			if res.Error != nil {
				// Stop producers so they don't block writing to resultCh.
				cancel()
				doneCh <- res.Error
				return
			}
			buffer[res.Index] = res
			if err := drain(); err != nil {
				cancel()
				doneCh <- err
				return
			}
		}
	}()

	// Producer loop
Loop:
	for i := startIdx; i < totalRows; i++ {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		idx := i
		row := rows[i]
		job := func(ctx context.Context) error {
			res := ig.processRow(ctx, idx, row)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, ctx.Err()) || err == ErrPoolClosed {
				break Loop
			}
			return Stats{}, err
		}
	}

	// No worker can send after Close returns, so resultCh can be closed.
	wp.Close()
	close(resultCh)
	closedResultCh = true

	consumerErr := <-doneCh

	if err := bw.Close(); err != nil && consumerErr == nil {
		consumerErr = err
	}
	batchErrMu.Lock()
	if batchErr != nil && consumerErr == nil {
		consumerErr = batchErr
	}
	batchErrMu.Unlock()

	stats := Stats{Imported: int(atomic.LoadInt64(&imported)), Skipped: int(atomic.LoadInt64(&skipped))}
	ig.Logger.Info().Int("imported", stats.Imported).Int("skipped", stats.Skipped).Msg("Import finished")
	return stats, consumerErr
}

// processRow normalizes one row and decides whether it can be imported.
func (ig *Ingester) processRow(ctx context.Context, index int, row db.WordInput) processedRow {
	in := row
	in.Name = db.NormalizeName(in.Name)
	in.Sentence = strings.TrimSpace(in.Sentence)
	in.Tags = cleanList(in.Tags)
	in.Trans = cleanList(in.Trans)

	if err := wordcard.ValidateWord(in.Name); err != nil {
		return processedRow{Index: index, Input: in, Skip: err}
	}
	if !in.Level.Valid() {
		in.Level = db.LevelNew
	}

	if len(in.Trans) == 0 && ig.Dict != nil {
		res, err := ig.Dict.Translate(ctx, in.Name)
		switch {
		case err == nil:
			in.Trans = res.Translation
			if len(in.Trans) == 0 {
				in.Trans = res.Basic.Explains
			}
		case ctx.Err() != nil:
			return processedRow{Index: index, Input: in, Error: ctx.Err()}
		}
	}
	return processedRow{Index: index, Input: in}
}

func cleanList(list []string) []string {
	seen := make(map[string]bool, len(list))
	var out []string
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
