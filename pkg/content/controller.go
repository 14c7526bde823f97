// Package content reacts to page events the way the word card content
// script does: it turns selections into popup cards and keeps saved words
// highlighted in every frame of a page.
package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/japaniel/wordcard/pkg/config"
	"github.com/japaniel/wordcard/pkg/popup"
	"github.com/japaniel/wordcard/pkg/wordcard"
	"github.com/rs/zerolog"
)

// Runtime message actions.
const (
	ActionConfig        = "config"
	ActionMenuItemClick = "menuitemclick"
)

// CloseClass is the class of the popup's close button.
const CloseClass = "wordcard-close"

// Frame is one browsing context of a page: the top window or a
// same-origin iframe.
type Frame struct {
	ID     string
	Source string // location href
	Host   string
	// Height is the viewport height used to place the popup.
	Height int
}

// Target is the element an event landed on.
type Target interface {
	wordcard.Element
	// Editable reports whether the element is a form field or contenteditable.
	Editable() bool
}

// MouseEvent is a double-click or context-menu event with the selection
// that was current when it fired.
type MouseEvent struct {
	Selection string
	Target    Target
	ClientY   int
	CtrlKey   bool
	MetaKey   bool
}

// Message is either a runtime message ({action, data}) or a window
// message ({type}).
type Message struct {
	Action string          `json:"action,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Type   string          `json:"type,omitempty"`
}

// Controller routes the events of one page. It is safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	cfg    config.ContentConfig
	menu   map[string]MouseEvent
	popup  *popup.Popup
	isMac  bool
	logger zerolog.Logger
}

// NewController returns a controller showing cards on p. On macOS the
// modifier for withCtrlOrCmd is the meta key, elsewhere ctrl.
func NewController(cfg config.ContentConfig, p *popup.Popup, isMac bool, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		menu:   make(map[string]MouseEvent),
		popup:  p,
		isMac:  isMac,
		logger: logger.With().Str("component", "content").Logger(),
	}
}

// Config returns the settings in effect.
func (c *Controller) Config() config.ContentConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig replaces the settings.
func (c *Controller) SetConfig(cfg config.ContentConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

// HandleDoubleClick looks up the selection when double-click lookups are
// enabled and the required modifier, if any, is held. It reports whether a
// card was opened.
func (c *Controller) HandleDoubleClick(f Frame, ev MouseEvent) (bool, error) {
	cfg := c.Config()
	if !cfg.Dblclick2Trigger {
		return false, nil
	}
	if cfg.WithCtrlOrCmd && !c.modifierHeld(ev) {
		return false, nil
	}
	return c.handleTextSelected(f, ev)
}

func (c *Controller) modifierHeld(ev MouseEvent) bool {
	if c.isMac {
		return ev.MetaKey
	}
	return ev.CtrlKey
}

// HandleContextMenu remembers ev as the frame's latest context-menu event.
func (c *Controller) HandleContextMenu(frameID string, ev MouseEvent) {
	c.mu.Lock()
	c.menu[frameID] = ev
	c.mu.Unlock()
}

// HandleMenuItemClick looks up the selection of the frame's latest
// context-menu event. A frame with no such event is ignored.
func (c *Controller) HandleMenuItemClick(f Frame) (bool, error) {
	c.mu.Lock()
	ev, ok := c.menu[f.ID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug().Str("frame", f.ID).Msg("Menu item clicked without a context menu event")
		return false, nil
	}
	return c.handleTextSelected(f, ev)
}

// ForgetFrame drops state kept for a frame that went away.
func (c *Controller) ForgetFrame(frameID string) {
	c.mu.Lock()
	delete(c.menu, frameID)
	c.mu.Unlock()
}

// HandleMessage applies a runtime or window message posted to frame f. It
// reports whether the message was understood.
func (c *Controller) HandleMessage(f Frame, msg Message) (bool, error) {
	if msg.Type != "" {
		return c.popup.HandleMessage(popup.Message{Type: msg.Type}), nil
	}

	switch msg.Action {
	case ActionConfig:
		// Settings missing from the message keep their current value.
		cfg := c.Config()
		if err := json.Unmarshal(msg.Data, &cfg); err != nil {
			return false, fmt.Errorf("decode config message: %w", err)
		}
		if err := config.ValidateContent(cfg); err != nil {
			return false, fmt.Errorf("config message: %w", err)
		}
		c.SetConfig(cfg)
		return true, nil
	case ActionMenuItemClick:
		if _, err := c.HandleMenuItemClick(f); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}

// HandleClick closes the popup for a click on its close button or outside
// the popup container.
func (c *Controller) HandleClick(targetID, targetClass string) {
	for _, class := range strings.Fields(targetClass) {
		if class == CloseClass {
			if err := c.popup.Close(); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to close popup")
			}
			return
		}
	}
	c.popup.HandleClick(targetID)
}

func (c *Controller) handleTextSelected(f Frame, ev MouseEvent) (bool, error) {
	sel := wordcard.Selection{Text: ev.Selection}
	if ev.Target != nil {
		sel.Target = ev.Target
		sel.Editable = ev.Target.Editable()
	}
	word, err := wordcard.ValidateSelection(sel)
	if err != nil {
		c.logger.Debug().Err(err).Str("frame", f.ID).Msg("Selection ignored")
		return false, nil
	}

	cfg := c.Config()
	var surroundings string
	if ev.Target != nil {
		surroundings = wordcard.Surroundings(word, ev.Target, wordcard.ContextOptions{
			Autocut:     cfg.Autocut,
			SentenceNum: cfg.SentenceNum,
		})
	}

	payload := popup.Payload{
		Word:         word,
		Surroundings: surroundings,
		Source:       f.Source,
		Host:         f.Host,
	}
	if err := c.popup.Open(payload, ev.ClientY, f.Height); err != nil {
		return false, err
	}
	c.logger.Debug().Str("word", word).Str("frame", f.ID).Msg("Card opened")
	return true, nil
}
