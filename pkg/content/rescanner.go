package content

import (
	"context"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/japaniel/wordcard/pkg/db"
	"github.com/japaniel/wordcard/pkg/highlight"
	"github.com/japaniel/wordcard/pkg/ingest"
	"github.com/rs/zerolog"
)

// WordLister returns the saved words to highlight.
type WordLister interface {
	List(f db.Filter) ([]db.Word, error)
}

// Rescanner highlights saved words in frames as they report their content
// ready. A frame never has two passes running at once: a document reported
// while its frame is busy waits, and only the latest waiting document of a
// frame is scanned.
type Rescanner struct {
	pool   *ingest.WorkerPool
	hl     *highlight.Highlighter
	words  WordLister
	logger zerolog.Logger

	mu     sync.Mutex
	frames map[string]*frameState
	wg     sync.WaitGroup

	// OnDone, when set, is called after each pass.
	OnDone func(frameID string, res highlight.Result)
}

type frameState struct {
	running bool
	pending *goquery.Document
}

// NewRescanner starts a rescanner running passes on the given number of
// workers.
func NewRescanner(words WordLister, hl *highlight.Highlighter, workers int, logger zerolog.Logger) *Rescanner {
	pool := ingest.NewWorkerPool(workers, workers*2)
	pool.Start(context.Background())
	return &Rescanner{
		pool:   pool,
		hl:     hl,
		words:  words,
		logger: logger.With().Str("component", "rescanner").Logger(),
		frames: make(map[string]*frameState),
	}
}

// NotifyReady schedules a highlighting pass over doc for frame frameID.
func (r *Rescanner) NotifyReady(ctx context.Context, frameID string, doc *goquery.Document) error {
	r.mu.Lock()
	st, ok := r.frames[frameID]
	if !ok {
		st = &frameState{}
		r.frames[frameID] = st
	}
	if st.running {
		st.pending = doc
		r.mu.Unlock()
		return nil
	}
	st.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	if err := r.submit(ctx, frameID, st, doc); err != nil {
		r.abandon(frameID, st)
		return err
	}
	return nil
}

func (r *Rescanner) submit(ctx context.Context, frameID string, st *frameState, doc *goquery.Document) error {
	return r.pool.SubmitCtx(ctx, func(ctx context.Context) error {
		defer r.wg.Done()
		r.run(frameID, st, doc)
		return nil
	})
}

// abandon releases a frame whose pass could not be submitted. A document
// reported for the frame in the meantime was accepted, so it is submitted
// in the background instead of being dropped.
func (r *Rescanner) abandon(frameID string, st *frameState) {
	r.mu.Lock()
	next := st.pending
	st.pending = nil
	if next == nil {
		st.running = false
	}
	r.mu.Unlock()

	if next == nil {
		r.wg.Done()
		return
	}
	go func() {
		if err := r.submit(context.Background(), frameID, st, next); err != nil {
			r.logger.Warn().Err(err).Str("frame", frameID).Msg("Failed to schedule pending pass")
			r.abandon(frameID, st)
		}
	}()
}

// run scans doc and then any document that arrived for the frame meanwhile.
func (r *Rescanner) run(frameID string, st *frameState, doc *goquery.Document) {
	for doc != nil {
		r.scan(frameID, doc)

		r.mu.Lock()
		doc = st.pending
		st.pending = nil
		if doc == nil {
			st.running = false
		}
		r.mu.Unlock()
	}
}

func (r *Rescanner) scan(frameID string, doc *goquery.Document) {
	words, err := r.words.List(db.Filter{})
	if err != nil {
		r.logger.Warn().Err(err).Str("frame", frameID).Msg("Failed to load saved words")
		return
	}
	res := r.hl.HighlightWords(words, doc)
	r.logger.Debug().Str("frame", frameID).Int("matches", res.Matches).Int("failed", res.Failed).Msg("Frame highlighted")
	if r.OnDone != nil {
		r.OnDone(frameID, res)
	}
}

// Wait blocks until every scheduled pass has finished.
func (r *Rescanner) Wait() {
	r.wg.Wait()
}

// Close waits for scheduled passes and stops the workers. NotifyReady
// returns ingest.ErrPoolClosed afterwards.
func (r *Rescanner) Close() {
	r.pool.Close()
}
