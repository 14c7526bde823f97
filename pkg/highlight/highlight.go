// Package highlight marks saved words inside HTML documents.
package highlight

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/japaniel/wordcard/pkg/db"
	"github.com/japaniel/wordcard/pkg/wordcard"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultSelector lists the elements whose text is scanned.
const DefaultSelector = "p, span"

var wordChar = regexp.MustCompile(`\w`)

// Result summarizes one highlighting pass.
type Result struct {
	Elements int // elements rewritten
	Matches  int // highlights inserted
	Failed   int // elements skipped after an error
}

// Highlighter wraps occurrences of saved words in colored inline elements.
type Highlighter struct {
	Selector string
	logger   zerolog.Logger
	// find locates a word in a text run.
	find func(text string, want []string) []match
}

// New returns a Highlighter scanning DefaultSelector.
func New(logger zerolog.Logger) *Highlighter {
	return &Highlighter{
		Selector: DefaultSelector,
		logger:   logger.With().Str("component", "highlight").Logger(),
		find:     findOccurrences,
	}
}

// HighlightWords highlights the words in doc, in list order. Word i is
// colored with ColorFor(i). Each scanned element is rebuilt from its text:
// child markup other than earlier highlights is flattened. Earlier
// highlights are kept as they are and never matched again, so running the
// pass twice gives the same document.
func (h *Highlighter) HighlightWords(words []db.Word, doc *goquery.Document) Result {
	names := make([]string, len(words))
	for i, w := range words {
		names[i] = w.Name
	}
	return h.HighlightNames(names, doc)
}

// HighlightNames is HighlightWords for bare word names.
func (h *Highlighter) HighlightNames(names []string, doc *goquery.Document) Result {
	var res Result
	if doc == nil || len(names) == 0 {
		return res
	}
	root := doc.Get(0)

	doc.Find(h.Selector).Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		// An earlier element may have flattened this one away.
		if !isAttached(n, root) {
			return
		}
		if !wordChar.MatchString(s.Text()) {
			return
		}
		count, err := h.highlightElement(n, names)
		if err != nil {
			res.Failed++
			h.logger.Warn().Err(err).Str("element", n.Data).Msg("Skipping element")
			return
		}
		if count > 0 {
			res.Elements++
			res.Matches += count
		}
	})

	h.logger.Debug().Int("elements", res.Elements).Int("matches", res.Matches).Int("failed", res.Failed).Msg("Highlight pass done")
	return res
}

// run is a piece of an element's content: plain text, or a highlight node.
type run struct {
	text string
	node *html.Node
}

func (h *Highlighter) highlightElement(n *html.Node, names []string) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("highlight %s: %v", n.Data, r)
		}
	}()

	runs := flatten(n)
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var added int
		runs, added = applyWord(runs, name, ColorFor(i), h.find)
		count += added
	}
	if count == 0 {
		return 0, nil
	}

	for _, r := range runs {
		if r.node != nil && r.node.Parent != nil {
			r.node.Parent.RemoveChild(r.node)
		}
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, r := range runs {
		if r.node != nil {
			n.AppendChild(r.node)
			continue
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: r.text})
	}
	return count, nil
}

// flatten reduces the content of n to text runs and existing highlights.
func flatten(n *html.Node) []run {
	var runs []run
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if len(runs) > 0 && runs[len(runs)-1].node == nil {
					runs[len(runs)-1].text += c.Data
				} else {
					runs = append(runs, run{text: c.Data})
				}
			case html.ElementNode:
				if c.DataAtom == atom.Script || c.DataAtom == atom.Style {
					continue
				}
				if hasClass(c, wordcard.HighlightClass) {
					runs = append(runs, run{node: c})
					continue
				}
				walk(c)
			}
		}
	}
	walk(n)
	return runs
}

// applyWord splits the text runs around occurrences of name.
func applyWord(runs []run, name string, color Color, find func(string, []string) []match) ([]run, int) {
	want := segments(name)
	var out []run
	count := 0
	for _, r := range runs {
		if r.node != nil {
			out = append(out, r)
			continue
		}
		matches := find(r.text, want)
		if len(matches) == 0 {
			out = append(out, r)
			continue
		}
		pos := 0
		for _, m := range matches {
			if m.start > pos {
				out = append(out, run{text: r.text[pos:m.start]})
			}
			out = append(out, run{node: newHighlight(r.text[m.start:m.end], color)})
			pos = m.end
			count++
		}
		if pos < len(r.text) {
			out = append(out, run{text: r.text[pos:]})
		}
	}
	return out, count
}

func newHighlight(word string, color Color) *html.Node {
	em := &html.Node{
		Type:     html.ElementNode,
		Data:     "em",
		DataAtom: atom.Em,
		Attr: []html.Attribute{
			{Key: "class", Val: wordcard.HighlightClass},
			{Key: "style", Val: color.Style()},
		},
	}
	em.AppendChild(&html.Node{Type: html.TextNode, Data: word})
	return em
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func isAttached(n, root *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}
