// Package translate looks words up in translation providers.
package translate

import (
	"context"
	"errors"
)

// ErrNoData is returned when a provider has no dictionary entry for a word.
var ErrNoData = errors.New("no translation data")

// Basic is the dictionary part of a lookup.
type Basic struct {
	Explains   []string `json:"explains"`
	USPhonetic string   `json:"us-phonetic,omitempty"`
	Phonetic   string   `json:"phonetic,omitempty"`
}

// Result is a translation lookup. A Result without Basic carries no usable
// dictionary data.
type Result struct {
	Query       string   `json:"query,omitempty"`
	Basic       *Basic   `json:"basic,omitempty"`
	Translation []string `json:"translation,omitempty"`
}

// Provider translates single words.
type Provider interface {
	Translate(ctx context.Context, word string) (*Result, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, word string) (*Result, error)

// Translate calls f.
func (f ProviderFunc) Translate(ctx context.Context, word string) (*Result, error) {
	return f(ctx, word)
}

// Chain asks each provider in turn and returns the first result with data.
// Providers reporting ErrNoData or failing are skipped; the last failure is
// returned when no provider has data.
type Chain []Provider

// Translate implements Provider.
func (c Chain) Translate(ctx context.Context, word string) (*Result, error) {
	lastErr := ErrNoData
	for _, p := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.Translate(ctx, word)
		if err == nil && res != nil && res.Basic != nil {
			return res, nil
		}
		if err != nil && !errors.Is(err, ErrNoData) {
			lastErr = err
		}
	}
	return nil, lastErr
}
