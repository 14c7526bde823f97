package wordcard

// Element is a Node that can report its text and classes.
type Element interface {
	Node
	// Text returns the rendered text of the element and its descendants.
	Text() string
	// HasClass reports whether the element carries the given class.
	HasClass(class string) bool
}

// ContextOptions controls how much of a block is kept as a word's context.
type ContextOptions struct {
	Autocut     bool
	SentenceNum int
}

// Surroundings returns the context saved alongside word when it was picked
// from el: the text of the nearest block, cut down to a sentence window.
// Clicks on an existing highlight are resolved against its parent.
func Surroundings(word string, el Element, opts ContextOptions) string {
	if el == nil {
		return ""
	}

	var node Node = el
	if el.HasClass(HighlightClass) {
		if parent := el.Parent(); parent != nil {
			node = parent
		}
	}

	block := LocateBlock(node, BlockSearchDepth)

	content := ""
	if block != nil && block.TagName() != DocumentTag {
		if b, ok := block.(Element); ok {
			content = b.Text()
		}
	}

	return WindowSentences(word, content, opts.SentenceNum, opts.Autocut)
}
