package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/japaniel/wordcard/pkg/card"
	"github.com/japaniel/wordcard/pkg/config"
	"github.com/japaniel/wordcard/pkg/content"
	"github.com/japaniel/wordcard/pkg/db"
	"github.com/japaniel/wordcard/pkg/dictionary"
	"github.com/japaniel/wordcard/pkg/highlight"
	"github.com/japaniel/wordcard/pkg/ingest"
	"github.com/japaniel/wordcard/pkg/logger"
	"github.com/japaniel/wordcard/pkg/lookup"
	"github.com/japaniel/wordcard/pkg/page"
	"github.com/japaniel/wordcard/pkg/popup"
	"github.com/japaniel/wordcard/pkg/server"
	"github.com/japaniel/wordcard/pkg/translate"
	"github.com/japaniel/wordcard/pkg/wordcard"
	"github.com/rs/zerolog"
)

const cardWidth = 78

type options struct {
	configPath string
	dbPath     string
	url        string
	word       string
	save       bool
	overwrite  bool
	tags       string
	highlight  bool
	out        string
	export     string
	importPath string
	importDict string
	serve      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to a YAML or JSON config file")
	flag.StringVar(&opts.dbPath, "db", "", "Path to SQLite database (overrides storage.db_path)")
	flag.StringVar(&opts.url, "url", "", "Page URL to look words up on or highlight")
	flag.StringVar(&opts.word, "word", "", "Word to look up on the page given by -url")
	flag.BoolVar(&opts.save, "save", false, "Save the looked up word")
	flag.BoolVar(&opts.overwrite, "overwrite", false, "Replace the word if it is already saved")
	flag.StringVar(&opts.tags, "tags", "", "Comma separated tags for -save")
	flag.BoolVar(&opts.highlight, "highlight", false, "Highlight saved words on the page given by -url")
	flag.StringVar(&opts.out, "out", "", "Output file for -highlight (.md writes Markdown)")
	flag.StringVar(&opts.export, "export", "", "Export saved words to a file, - for stdout")
	flag.StringVar(&opts.importPath, "import", "", "Import words from an exported file")
	flag.StringVar(&opts.importDict, "import-dict", "", "Fill missing translations from a dictionary JSON file")
	flag.BoolVar(&opts.serve, "serve", false, "Serve the HTTP API")
	flag.Parse()

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	conn   *sql.DB
	log    zerolog.Logger
	client *http.Client
	lookup *lookup.Service
	dict   *dictionary.Dictionary
	out    io.Writer
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.Storage.DBPath = opts.dbPath
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if cfg.Content.Upgrade(wordcard.Version()) {
		log.Info().Str("version", cfg.Content.Version).Msg("Running a new version")
	}

	conn, err := db.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()
	log.Debug().Str("path", cfg.Storage.DBPath).Msg("Database initialized")

	a := &app{
		cfg:    cfg,
		conn:   conn,
		log:    log,
		client: &http.Client{Timeout: 30 * time.Second},
		lookup: lookup.NewService(conn, log),
		out:    out,
	}

	switch {
	case opts.importDict != "":
		return a.importDictionary(opts.importDict)
	case opts.export != "":
		return a.exportWords(opts.export)
	case opts.importPath != "":
		a.loadDictionary(ctx)
		return a.importWords(ctx, opts.importPath)
	case opts.serve:
		return a.serve(ctx)
	case opts.url != "" && opts.highlight:
		return a.highlightPage(ctx, opts.url, opts.out)
	case opts.url != "" && opts.word != "":
		a.loadDictionary(ctx)
		return a.lookUp(ctx, opts)
	}
	return errors.New("nothing to do: provide -url with -word or -highlight, -import, -import-dict, -export or -serve")
}

// loadDictionary makes the offline dictionary available, downloading it
// first when a URL is configured. Failures leave lookups online only.
func (a *app) loadDictionary(ctx context.Context) {
	path := a.cfg.Translate.DictionaryPath
	if path == "" {
		return
	}
	if err := dictionary.EnsureDictionary(ctx, a.client, path, a.cfg.Translate.DictionaryURL, a.log); err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("Dictionary unavailable, continuing without it")
		return
	}
	start := time.Now()
	entries, err := dictionary.Load(path)
	if err != nil {
		a.log.Warn().Err(err).Msg("Failed to load dictionary")
		return
	}
	a.dict = dictionary.New(entries, a.log)
	a.log.Info().Int("entries", len(entries)).Dur("took", time.Since(start)).Msg("Dictionary loaded")
}

// provider chains the configured online endpoint, cached, with the offline
// dictionary. It returns nil when neither is available.
func (a *app) provider() (translate.Provider, error) {
	var chain translate.Chain
	tc := a.cfg.Translate
	if tc.Endpoint != "" {
		client, err := translate.NewClient(translate.ClientOptions{
			Endpoint: tc.Endpoint,
			AudioURL: tc.AudioURL,
			Params:   tc.Params,
			Timeout:  time.Duration(tc.TimeoutSeconds) * time.Second,
		}, nil)
		if err != nil {
			return nil, err
		}
		var p translate.Provider = client
		if tc.CacheSize > 0 {
			cached, err := translate.NewCached(client, tc.CacheSize)
			if err != nil {
				return nil, err
			}
			p = cached
		}
		chain = append(chain, p)
	}
	if a.dict != nil {
		chain = append(chain, a.dict)
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

func (a *app) importDictionary(path string) error {
	fmt.Fprintf(a.out, "Loading dictionary from %s...\n", path)
	entries, err := dictionary.Load(path)
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}
	fmt.Fprintf(a.out, "Loaded %d entries. Processing updates...\n", len(entries))

	count, err := dictionary.New(entries, a.log).Backfill(a.conn)
	if err != nil {
		return fmt.Errorf("update translations: %w", err)
	}
	fmt.Fprintf(a.out, "Successfully updated translations for %d words.\n", count)
	return nil
}

func (a *app) exportWords(path string) error {
	words, err := db.ListWords(a.conn)
	if err != nil {
		return err
	}
	if path == "-" {
		return db.ExportWords(a.out, words)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := db.ExportWords(f, words); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d words to %s\n", len(words), path)
	return nil
}

func (a *app) importWords(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	rows, err := db.ParseExport(f)
	f.Close()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sourceID, err := db.CreateOrGetSource(a.conn, ingest.SourceTypeImport, filepath.Base(path), "", "", abs, "")
	if err != nil {
		return fmt.Errorf("persist source: %w", err)
	}

	ingester := ingest.NewIngester(a.conn, a.dict, a.log)
	ingester.OnProgress = func(current, total int) {
		a.log.Debug().Int("current", current).Int("total", total).Msg("Import progress")
	}
	stats, err := ingester.Ingest(ctx, sourceID, rows)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Fprintf(a.out, "Imported %d words (%d skipped) from %s\n", stats.Imported, stats.Skipped, path)
	return nil
}

// capturedSurface keeps the payload of the card instead of drawing it.
type capturedSurface struct {
	payload *popup.Payload
}

func (s *capturedSurface) Show(_ popup.Geometry, p popup.Payload) error {
	s.payload = &p
	return nil
}

func (s *capturedSurface) Hide(popup.Geometry) error { return nil }

func (a *app) lookUp(ctx context.Context, opts options) error {
	doc, err := page.Fetch(ctx, a.client, opts.url)
	if err != nil {
		return err
	}
	a.log.Info().Str("title", doc.Title).Str("url", doc.Source()).Msg("Page fetched")

	// The word is picked the way a double-click on the page would pick it.
	surface := &capturedSurface{}
	ctrl := content.NewController(a.cfg.Content, popup.New(surface, a.log), false, a.log)
	frame := content.Frame{ID: "top", Source: doc.Source(), Host: doc.Host()}
	ev := content.MouseEvent{Selection: opts.word}
	if target := doc.FindTarget(strings.TrimSpace(opts.word)); target != nil {
		ev.Target = target
	}
	ctrl.HandleContextMenu(frame.ID, ev)
	if _, err := ctrl.HandleMenuItemClick(frame); err != nil {
		return err
	}
	if surface.payload == nil {
		return fmt.Errorf("%q cannot be looked up", opts.word)
	}

	provider, err := a.provider()
	if err != nil {
		return err
	}
	c, err := card.NewLoader(a.lookup, provider, a.log).Load(ctx, *surface.payload)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, c.Render(cardWidth))

	if !opts.save {
		return nil
	}
	if opts.tags != "" {
		c.SetTags(strings.Split(opts.tags, ","))
	}
	w, err := c.Save(opts.overwrite)
	if errors.Is(err, card.ErrWouldOverwrite) {
		fmt.Fprintf(a.out, "%q is already saved; pass -overwrite to replace it.\n", c.Word)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %q (id %d).\n", w.Name, w.ID)
	return nil
}

func (a *app) highlightPage(ctx context.Context, rawURL, outPath string) error {
	doc, err := page.Fetch(ctx, a.client, rawURL)
	if err != nil {
		return err
	}

	rescanner := content.NewRescanner(a.lookup, highlight.New(a.log), 2, a.log)
	defer rescanner.Close()
	var mu sync.Mutex
	matches := make(map[string]int)
	rescanner.OnDone = func(frameID string, res highlight.Result) {
		mu.Lock()
		matches[frameID] = res.Matches
		mu.Unlock()
	}

	if err := rescanner.NotifyReady(ctx, "top", doc.Doc); err != nil {
		return err
	}
	for _, frameURL := range doc.SameOriginFrames() {
		frame, err := page.Fetch(ctx, a.client, frameURL)
		if err != nil {
			a.log.Warn().Err(err).Str("frame", frameURL).Msg("Failed to fetch frame")
			continue
		}
		if err := rescanner.NotifyReady(ctx, frameURL, frame.Doc); err != nil {
			return err
		}
	}
	rescanner.Wait()

	for frameID, n := range matches {
		a.log.Info().Str("frame", frameID).Int("matches", n).Msg("Highlighted")
	}

	var rendered string
	if strings.EqualFold(filepath.Ext(outPath), ".md") {
		rendered, err = doc.Markdown()
	} else {
		rendered, err = doc.HTML()
	}
	if err != nil {
		return err
	}
	if outPath == "" {
		_, err = io.WriteString(a.out, rendered)
		return err
	}
	if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Highlighted %d words on %s, written to %s\n", matches["top"], doc.Source(), outPath)
	return nil
}

func (a *app) serve(ctx context.Context) error {
	srv := server.New(a.cfg.Server, a.cfg.Content, a.lookup, highlight.New(a.log), a.log)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
