package page

import (
	"strings"

	"github.com/japaniel/wordcard/pkg/wordcard"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element adapts an *html.Node to wordcard.Element.
type Element struct {
	n *html.Node
}

// NewElement wraps n. It returns nil for a nil node.
func NewElement(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{n: n}
}

// Node returns the wrapped node.
func (e *Element) Node() *html.Node { return e.n }

// TagName returns the element name, or wordcard.DocumentTag for the document root.
func (e *Element) TagName() string {
	switch e.n.Type {
	case html.DocumentNode:
		return wordcard.DocumentTag
	case html.ElementNode:
		return e.n.Data
	}
	return ""
}

// Parent returns the parent node or nil at the root. Returning a typed nil
// here would make the interface non-nil.
func (e *Element) Parent() wordcard.Node {
	if e.n.Parent == nil {
		return nil
	}
	return &Element{n: e.n.Parent}
}

// HasClass reports whether the element carries class.
func (e *Element) HasClass(class string) bool {
	for _, c := range strings.Fields(attr(e.n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Editable reports whether the element or one of its ancestors is a form
// field or contenteditable.
func (e *Element) Editable() bool {
	for n := e.n; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if n.DataAtom == atom.Input || n.DataAtom == atom.Textarea {
			return true
		}
		if v, ok := lookupAttr(n, "contenteditable"); ok && !strings.EqualFold(v, "false") {
			return true
		}
	}
	return false
}

// lineBreakAtoms end a line in rendered text.
var lineBreakAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Br: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Section: true, atom.Article: true,
}

// Text returns the rendered text of the element: text nodes in document
// order, line breaks after block elements, scripts and styles skipped.
func (e *Element) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n != e.n && n.Type == html.ElementNode && lineBreakAtoms[n.DataAtom] {
			b.WriteString("\n")
		}
	}
	walk(e.n)
	return strings.TrimSpace(b.String())
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
