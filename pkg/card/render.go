package card

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

// Render formats the card as plain text wrapped to width columns.
func (c *Card) Render(width int) string {
	if width <= 0 {
		width = 72
	}
	var b strings.Builder

	b.WriteString(c.Word)
	if c.Phonetic != "" {
		fmt.Fprintf(&b, " [%s]", c.Phonetic)
	}
	if c.Saved != nil {
		fmt.Fprintf(&b, " (saved, %s)", c.Saved.Level)
	}
	b.WriteString("\n")

	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for _, l := range lines {
			b.WriteString(indent.String(wordwrap.String("- "+l, width-2), 2))
			b.WriteString("\n")
		}
	}
	section("Explains", c.Explains)
	section("Translation", c.Trans)
	if s := strings.TrimSpace(c.Surroundings); s != "" {
		section("Sentence", []string{s})
	}
	if len(c.Tags) > 0 {
		b.WriteString("Tags: " + strings.Join(c.Tags, ", ") + "\n")
	}
	if c.Source != "" {
		b.WriteString("Source: " + c.Source + "\n")
	}
	return b.String()
}
