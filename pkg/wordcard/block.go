package wordcard

import "strings"

// BlockSearchDepth is how many ancestors the surroundings extractor may climb.
const BlockSearchDepth = 4

// DocumentTag is the tag name reported by the node at the root of a document.
const DocumentTag = "#document"

// blockTags are the containers a lookup's context is read from.
var blockTags = map[string]bool{
	"li":   true,
	"p":    true,
	"div":  true,
	"body": true,
}

// Node is the part of a document element the block walk needs.
type Node interface {
	// TagName returns the element name, e.g. "p" or "LI".
	TagName() string
	// Parent returns the parent node or nil at the root.
	Parent() Node
}

// IsBlockTag reports whether tag names a block container.
func IsBlockTag(tag string) bool {
	return blockTags[strings.ToLower(tag)]
}

// LocateBlock walks up from node until it reaches a block container or has
// climbed maxDepth ancestors, and returns the node it stopped on. The walk
// also stops at a node without a parent.
func LocateBlock(node Node, maxDepth int) Node {
	if node == nil {
		return nil
	}
	for depth := maxDepth; ; depth-- {
		if depth <= 0 || IsBlockTag(node.TagName()) {
			return node
		}
		parent := node.Parent()
		if parent == nil {
			return node
		}
		node = parent
	}
}
