package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 10 * time.Second
	maxErrBody     = 2048
	maxRespBody    = 1 << 20
)

// Client queries an HTTP JSON dictionary endpoint. The endpoint receives the
// word as the q query parameter and answers with a Result document.
type Client struct {
	endpoint   string
	audioURL   string
	params     url.Values
	httpClient *http.Client
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Endpoint string
	// AudioURL is a pronunciation URL template with %s for the escaped word.
	AudioURL string
	// Params are extra query parameters sent with every lookup (keys, format).
	Params  map[string]string
	Timeout time.Duration
}

// NewClient returns a Client for opts.Endpoint. httpClient may be nil.
func NewClient(opts ClientOptions, httpClient *http.Client) (*Client, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("translate endpoint must be set")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("parse translate endpoint: %w", err)
	}
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	params := url.Values{}
	for k, v := range opts.Params {
		params.Set(k, v)
	}
	return &Client{
		endpoint:   endpoint,
		audioURL:   opts.AudioURL,
		params:     params,
		httpClient: httpClient,
	}, nil
}

// Translate implements Provider.
func (c *Client) Translate(ctx context.Context, word string) (*Result, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, ErrNoData
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse translate endpoint: %w", err)
	}
	q := u.Query()
	for k, vs := range c.params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("q", word)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build translate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request translation for %q: %w", word, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRespBody))
	if err != nil {
		return nil, fmt.Errorf("read translate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("translate status %d: %s", resp.StatusCode, errorSnippet(body))
	}

	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode translate response: %w", err)
	}
	if res.Basic == nil {
		return nil, ErrNoData
	}
	if res.Query == "" {
		res.Query = word
	}
	return &res, nil
}

// AudioURL returns the pronunciation URL for word, empty when none is configured.
func (c *Client) AudioURL(word string) string {
	if c.audioURL == "" {
		return ""
	}
	return fmt.Sprintf(c.audioURL, url.QueryEscape(word))
}

func errorSnippet(body []byte) string {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxErrBody {
		snippet = snippet[:maxErrBody] + "..."
	}
	if snippet == "" {
		return "empty error response"
	}
	return snippet
}
