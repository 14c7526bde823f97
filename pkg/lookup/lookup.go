// Package lookup serves the extension's word messages against the
// vocabulary store.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/japaniel/wordcard/pkg/db"
	"github.com/rs/zerolog"
)

// Actions understood by Service.Handle.
const (
	ActionFind   = "find"
	ActionCreate = "create"
	ActionRemove = "remove"
	ActionGet    = "get"
)

// SourceTypeWeb marks provenance records created from saved page words.
const SourceTypeWeb = "web"

var (
	// ErrUnknownAction is returned for a request whose action is not handled.
	ErrUnknownAction = errors.New("unknown action")
	// ErrMissingWord is returned when an action needs a word and got none.
	ErrMissingWord = errors.New("missing word")
)

// Request is a message sent by the content script or the popup.
type Request struct {
	Action string          `json:"action"`
	Word   string          `json:"word,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Response carries the result of a request. Data is nil for a word that
// is not saved.
type Response struct {
	Data any `json:"data"`
}

// Service answers lookup and save requests.
type Service struct {
	db     db.DBExecutor
	logger zerolog.Logger
}

// NewService returns a Service backed by conn.
func NewService(conn db.DBExecutor, logger zerolog.Logger) *Service {
	return &Service{db: conn, logger: logger}
}

// Handle dispatches req by action.
func (s *Service) Handle(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	switch req.Action {
	case ActionFind:
		w, err := s.Find(req.Word)
		if err != nil {
			return Response{}, err
		}
		if w == nil {
			return Response{}, nil
		}
		return Response{Data: w}, nil
	case ActionCreate:
		var in db.WordInput
		if len(req.Data) > 0 {
			if err := json.Unmarshal(req.Data, &in); err != nil {
				return Response{}, fmt.Errorf("decode word: %w", err)
			}
		}
		if in.Name == "" {
			in.Name = req.Word
		}
		w, err := s.Create(in)
		if err != nil {
			return Response{}, err
		}
		return Response{Data: w}, nil
	case ActionRemove:
		removed, err := s.Remove(req.Word)
		if err != nil {
			return Response{}, err
		}
		return Response{Data: removed}, nil
	case ActionGet:
		var f db.Filter
		if len(req.Data) > 0 && string(req.Data) != "null" {
			if err := json.Unmarshal(req.Data, &f); err != nil {
				return Response{}, fmt.Errorf("decode filter: %w", err)
			}
		}
		words, err := s.List(f)
		if err != nil {
			return Response{}, err
		}
		return Response{Data: words}, nil
	}
	return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
}

// Find returns the saved word or nil.
func (s *Service) Find(name string) (*db.Word, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingWord
	}
	w, err := db.FindWord(s.db, name)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", name, err)
	}
	return w, nil
}

// Create saves in, overwriting an existing word of the same name, and
// records the page it came from.
func (s *Service) Create(in db.WordInput) (*db.Word, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrMissingWord
	}
	id, err := db.SaveWord(s.db, in)
	if err != nil {
		return nil, fmt.Errorf("save %q: %w", in.Name, err)
	}

	if in.Source != "" {
		// Provenance is secondary to the save itself.
		if err := s.linkSource(id, in); err != nil {
			s.logger.Warn().Err(err).Str("word", in.Name).Str("source", in.Source).Msg("Failed to record word source")
		}
	}

	w, err := db.GetWord(s.db, id)
	if err != nil {
		return nil, fmt.Errorf("reload %q: %w", in.Name, err)
	}
	s.logger.Debug().Str("word", w.Name).Int64("id", w.ID).Msg("Word saved")
	return w, nil
}

func (s *Service) linkSource(wordID int64, in db.WordInput) error {
	sourceID, err := db.CreateOrGetSource(s.db, SourceTypeWeb, "", "", in.Host, in.Source, "")
	if err != nil {
		return err
	}
	return db.LinkWordToSource(s.db, wordID, sourceID, in.Sentence, 1)
}

// Remove deletes the saved word. It reports false when there was nothing
// to delete.
func (s *Service) Remove(name string) (bool, error) {
	w, err := s.Find(name)
	if err != nil || w == nil {
		return false, err
	}
	if err := db.RemoveWord(s.db, w.ID); err != nil {
		if errors.Is(err, db.ErrWordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("remove %q: %w", name, err)
	}
	s.logger.Debug().Str("word", w.Name).Msg("Word removed")
	return true, nil
}

// List returns saved words matching f in save order.
func (s *Service) List(f db.Filter) ([]db.Word, error) {
	words, err := db.ListWords(s.db)
	if err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	words = db.FilterWords(words, f)
	if words == nil {
		words = []db.Word{}
	}
	return words, nil
}
