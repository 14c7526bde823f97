// Package page loads web pages and exposes their elements to the word
// lookup routines.
package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxBodySize caps how much of a page is read.
const MaxBodySize = 10 * 1024 * 1024

// UserAgent is sent with page requests; some sites refuse unknown clients.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Document is a parsed page.
type Document struct {
	URL *url.URL
	Doc *goquery.Document

	Title    string
	Byline   string
	SiteName string
}

// Parse parses raw HTML fetched from pageURL. pageURL may be empty for
// documents without an origin.
func Parse(raw []byte, pageURL string) (*Document, error) {
	raw = SanitizeRuby(raw)

	var parsedURL *url.URL
	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("parse page url: %w", err)
		}
		parsedURL = u
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Url = parsedURL

	d := &Document{
		URL:   parsedURL,
		Doc:   doc,
		Title: strings.Join(strings.Fields(doc.Find("title").First().Text()), " "),
	}

	// Article metadata is best effort; a page readability cannot make
	// sense of is still a valid page.
	if parsedURL != nil {
		if article, err := readability.FromReader(bytes.NewReader(raw), parsedURL); err == nil {
			if t := strings.TrimSpace(article.Title); t != "" {
				d.Title = t
			}
			d.Byline = strings.TrimSpace(article.Byline)
			d.SiteName = strings.TrimSpace(article.SiteName)
		}
	}
	return d, nil
}

// Fetch downloads and parses the page at rawURL.
func Fetch(ctx context.Context, client *http.Client, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	if resp.ContentLength > MaxBodySize {
		return nil, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, MaxBodySize)
	}

	// Read one byte past the limit to tell a full body from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("response body exceeded maximum size limit of %d bytes", MaxBodySize)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return Parse(body, finalURL)
}

// Host returns the host name of the page, empty without a URL.
func (d *Document) Host() string {
	if d.URL == nil {
		return ""
	}
	return d.URL.Hostname()
}

// Source returns the page URL as a string.
func (d *Document) Source() string {
	if d.URL == nil {
		return ""
	}
	return d.URL.String()
}

// Root returns the document node.
func (d *Document) Root() *Element {
	return NewElement(d.Doc.Get(0))
}

// FindTarget returns the element directly holding the first text that
// contains word, i.e. the element a double click on the word lands on.
// It returns nil when the word does not appear in the page text.
func (d *Document) FindTarget(word string) *Element {
	if word == "" {
		return nil
	}
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
				return false
			}
		}
		if n.Type == html.TextNode && n.Parent != nil && strings.Contains(n.Data, word) {
			found = n.Parent
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.Doc.Get(0))
	return NewElement(found)
}

// SameOriginFrames returns the absolute URLs of the iframes whose source
// shares the page's scheme and host, without duplicates.
func (d *Document) SameOriginFrames() []string {
	if d.URL == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	d.Doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			return
		}
		ref, err := url.Parse(src)
		if err != nil {
			return
		}
		abs := d.URL.ResolveReference(ref)
		if abs.Scheme != d.URL.Scheme || abs.Host != d.URL.Host {
			return
		}
		abs.Fragment = ""
		key := abs.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, key)
	})
	return out
}

// HTML renders the document, including any changes made to it.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.Doc.Get(0)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
