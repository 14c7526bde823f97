// Package server exposes the word card operations over HTTP for the
// browser extension.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/japaniel/wordcard/pkg/config"
	"github.com/japaniel/wordcard/pkg/db"
	"github.com/japaniel/wordcard/pkg/highlight"
	"github.com/japaniel/wordcard/pkg/lookup"
	"github.com/japaniel/wordcard/pkg/page"
	"github.com/japaniel/wordcard/pkg/popup"
	"github.com/japaniel/wordcard/pkg/wordcard"
	"github.com/rs/zerolog"
)

// extensionSchemes are the origins of browser extension pages.
var extensionSchemes = []string{"chrome-extension://", "moz-extension://", "safari-web-extension://"}

// Server provides the HTTP API.
type Server struct {
	cfg     config.ServerConfig
	lookup  *lookup.Service
	hl      *highlight.Highlighter
	logger  zerolog.Logger
	started time.Time

	mu      sync.RWMutex
	content config.ContentConfig
	server  *http.Server
}

// New creates a server answering with svc and highlighting with hl.
func New(cfg config.ServerConfig, content config.ContentConfig, svc *lookup.Service, hl *highlight.Highlighter, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		content: content,
		lookup:  svc,
		hl:      hl,
		logger:  logger.With().Str("component", "server").Logger(),
		started: time.Now(),
	}
}

// Handler returns the API routes wrapped in the CORS and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/message", s.requireToken(s.handleMessage))
	mux.HandleFunc("/api/highlight", s.requireToken(s.handleHighlight))
	mux.HandleFunc("/api/surroundings", s.requireToken(s.handleSurroundings))
	return s.logRequests(s.corsMiddleware(mux))
}

// Start listens on the configured address until Stop is called.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info().Str("addr", s.cfg.Addr).Msg("API server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// SetContentConfig replaces the settings served to content scripts.
func (s *Server) SetContentConfig(cfg config.ContentConfig) {
	s.mu.Lock()
	s.content = cfg
	s.mu.Unlock()
}

func (s *Server) contentConfig() config.ContentConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

func (s *Server) allowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, scheme := range extensionSchemes {
		if strings.HasPrefix(origin, scheme) {
			return true
		}
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// corsMiddleware adds CORS headers for extension and configured origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.allowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// requireToken rejects requests without the configured bearer token.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decode reads a JSON body of at most page.MaxBodySize bytes.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, page.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": wordcard.Version(),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// handleConfig serves the content settings, the payload of a config message.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"action": "config",
		"data":   s.contentConfig(),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req lookup.Request
	if !decode(w, r, &req) {
		return
	}

	resp, err := s.lookup.Handle(r.Context(), req)
	if err != nil {
		s.logger.Warn().Err(err).Str("action", req.Action).Str("word", req.Word).Msg("Message failed")
		writeError(w, messageStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// messageStatus maps lookup failures caused by the request to 400.
func messageStatus(err error) int {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, lookup.ErrUnknownAction),
		errors.Is(err, lookup.ErrMissingWord),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type highlightRequest struct {
	HTML string `json:"html"`
	URL  string `json:"url,omitempty"`
}

type highlightResponse struct {
	HTML    string   `json:"html"`
	Matches int      `json:"matches"`
	Frames  []string `json:"frames,omitempty"`
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	var req highlightRequest
	if !decode(w, r, &req) {
		return
	}
	doc, err := page.Parse([]byte(req.HTML), req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	words, err := s.lookup.List(db.Filter{})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load saved words")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	res := s.hl.HighlightWords(words, doc.Doc)
	out, err := doc.HTML()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, highlightResponse{HTML: out, Matches: res.Matches, Frames: doc.SameOriginFrames()})
}

type surroundingsRequest struct {
	HTML string `json:"html"`
	Word string `json:"word"`
	URL  string `json:"url,omitempty"`
}

func (s *Server) handleSurroundings(w http.ResponseWriter, r *http.Request) {
	var req surroundingsRequest
	if !decode(w, r, &req) {
		return
	}
	doc, err := page.Parse([]byte(req.HTML), req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	target := doc.FindTarget(strings.TrimSpace(req.Word))
	sel := wordcard.Selection{Text: req.Word}
	if target != nil {
		sel.Target = target
		sel.Editable = target.Editable()
	}
	word, err := wordcard.ValidateSelection(sel)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	payload := popup.Payload{Word: word, Source: doc.Source(), Host: doc.Host()}
	if target != nil {
		cfg := s.contentConfig()
		payload.Surroundings = wordcard.Surroundings(word, target, wordcard.ContextOptions{
			Autocut:     cfg.Autocut,
			SentenceNum: cfg.SentenceNum,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}
