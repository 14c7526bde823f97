package highlight

import "fmt"

// Color is the background and text color of one highlight.
type Color struct {
	Background string
	Text       string
}

// Style returns the inline CSS applied to a highlight of this color.
func (c Color) Style() string {
	return fmt.Sprintf("background-color: %s; color: %s; margin: 0px 5px;", c.Background, c.Text)
}

// Palette is cycled through by word position: word i gets Palette[i%len(Palette)].
var Palette = [...]Color{
	{Background: "#9c5e99", Text: "#fff"},
	{Background: "#8ab7d8", Text: "#333"},
	{Background: "#60dd60", Text: "#333"},
	{Background: "#ffff70", Text: "#333"},
	{Background: "#ea9d70", Text: "#333"},
	{Background: "#ca181c", Text: "#fff"},
}

// ColorFor returns the color of the word at position index.
func ColorFor(index int) Color {
	if index < 0 {
		index = -index
	}
	return Palette[index%len(Palette)]
}
