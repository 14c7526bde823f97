package page

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Markdown converts the (possibly highlighted) document to Markdown.
func (d *Document) Markdown() (string, error) {
	raw, err := d.HTML()
	if err != nil {
		return "", err
	}
	md, err := htmltomarkdown.ConvertString(raw)
	if err != nil {
		return "", err
	}
	md = strings.ReplaceAll(md, "\r\n", "\n")
	return strings.TrimSpace(md), nil
}
