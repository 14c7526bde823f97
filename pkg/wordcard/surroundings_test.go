package wordcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurroundingsUsesBlockText(t *testing.T) {
	nodes := chain(DocumentTag, "html", "body", "p", "span")
	nodes[3].text = "First part. The cat sat here. Last part."

	opts := ContextOptions{Autocut: true, SentenceNum: 1}
	got := Surroundings("cat", nodes[4], opts)

	assert.Equal(t, "The cat sat here. ", got)
}

func TestSurroundingsWithoutAutocut(t *testing.T) {
	nodes := chain(DocumentTag, "html", "body", "div", "span")
	nodes[3].text = "First part. The cat sat here."

	got := Surroundings("cat", nodes[4], ContextOptions{Autocut: false, SentenceNum: 1})

	assert.Equal(t, "First part. The cat sat here.", got)
}

func TestSurroundingsSkipsHighlight(t *testing.T) {
	nodes := chain("body", "p", "em")
	nodes[1].text = "A dog barked."
	nodes[2].classes = []string{HighlightClass}
	nodes[2].text = "dog"

	got := Surroundings("dog", nodes[2], ContextOptions{})

	assert.Equal(t, "A dog barked.", got)
}

func TestSurroundingsDocumentIsEmpty(t *testing.T) {
	nodes := chain(DocumentTag, "span")

	assert.Equal(t, "", Surroundings("cat", nodes[1], ContextOptions{Autocut: true, SentenceNum: 3}))
	assert.Equal(t, "", Surroundings("cat", nil, ContextOptions{}))
}
