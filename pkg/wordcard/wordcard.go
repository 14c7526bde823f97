// Package wordcard holds the text routines behind a word lookup: finding the
// block around a selected word, cutting a sentence window out of it, and
// filtering selections that should not trigger a lookup.
package wordcard

// Version returns the current version of the package.
func Version() string { return "0.1.0" }

// HighlightClass marks inline elements inserted by the highlighter.
const HighlightClass = "wc-highlight"
