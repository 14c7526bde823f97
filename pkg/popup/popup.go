// Package popup tracks the word card popup shown over a page.
package popup

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// MainID is the id of the popup container. Clicks on it keep the popup open.
const MainID = "wordcard-main"

// MessageTypePopup is the message type the card page posts to close itself.
const MessageTypePopup = "popup"

// ErrClosed is returned by Payload when the popup is not open.
var ErrClosed = errors.New("popup is closed")

// Placement is which side of the pointer the popup appears on.
type Placement string

const (
	PlacementTop    Placement = "top"
	PlacementBottom Placement = "bottom"
)

// PlacementFor puts the popup above the pointer in the lower half of the
// viewport and below it otherwise.
func PlacementFor(clientY, winHeight int) Placement {
	if 2*clientY > winHeight {
		return PlacementTop
	}
	return PlacementBottom
}

// Geometry is the size of the popup container.
type Geometry struct {
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	MarginLeft int       `json:"marginLeft"`
	Placement  Placement `json:"placement,omitempty"`
}

var (
	// OpenGeometry is the size the container grows to.
	OpenGeometry = Geometry{Width: 690, Height: 370, MarginLeft: -345}
	// ClosedGeometry is the size the container shrinks to before hiding.
	ClosedGeometry = Geometry{Width: 80, Height: 80, MarginLeft: -40}
)

// Payload is handed to the card page once the popup is shown.
type Payload struct {
	Word         string `json:"word"`
	Surroundings string `json:"surroundings"`
	Source       string `json:"source"`
	Host         string `json:"host"`
}

// Message is a window message posted to the page.
type Message struct {
	Type string `json:"type"`
}

// Surface renders the popup. Implementations animate between geometries.
type Surface interface {
	Show(g Geometry, p Payload) error
	Hide(g Geometry) error
}

// Popup is the open or closed state of a page's word card. It is safe for
// concurrent use.
type Popup struct {
	mu      sync.Mutex
	surface Surface
	logger  zerolog.Logger
	open    bool
	payload Payload
	geom    Geometry
}

// New returns a closed popup drawing on surface.
func New(surface Surface, logger zerolog.Logger) *Popup {
	return &Popup{surface: surface, logger: logger}
}

// Open shows the card for p, replacing any card already shown.
func (p *Popup) Open(payload Payload, clientY, winHeight int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	g := OpenGeometry
	g.Placement = PlacementFor(clientY, winHeight)
	if err := p.surface.Show(g, payload); err != nil {
		return fmt.Errorf("show popup for %q: %w", payload.Word, err)
	}
	p.open = true
	p.payload = payload
	p.geom = g
	return nil
}

// Close hides the popup. Closing a closed popup does nothing.
func (p *Popup) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return nil
	}
	p.open = false
	g := ClosedGeometry
	g.Placement = p.geom.Placement
	if err := p.surface.Hide(g); err != nil {
		return fmt.Errorf("hide popup: %w", err)
	}
	return nil
}

// IsOpen reports whether the card is shown.
func (p *Popup) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Payload returns what the open card shows.
func (p *Popup) Payload() (Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return Payload{}, ErrClosed
	}
	return p.payload, nil
}

// Geometry returns the geometry the popup was last opened with.
func (p *Popup) Geometry() Geometry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.geom
}

// HandleMessage closes the popup on a popup message. It reports whether
// the message was consumed.
func (p *Popup) HandleMessage(msg Message) bool {
	if msg.Type != MessageTypePopup {
		return false
	}
	if err := p.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to close popup")
	}
	return true
}

// HandleClick closes an open popup when the click landed outside it.
func (p *Popup) HandleClick(targetID string) {
	if targetID == MainID || !p.IsOpen() {
		return
	}
	if err := p.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to close popup")
	}
}
