package db

import (
	"fmt"
	"strings"
	"time"
)

// Level is how well the user knows a saved word.
type Level int

const (
	LevelNew Level = iota
	LevelLearning
	LevelFamiliar
	LevelMastered
)

var levelNames = []string{"new", "learning", "familiar", "mastered"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	return l >= LevelNew && l <= LevelMastered
}

// ParseLevel parses a level name as printed by Level.String.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// Word is a saved vocabulary entry.
type Word struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Trans     []string  `json:"trans"`
	Sentence  string    `json:"sentence"`
	Tags      []string  `json:"tags"`
	Level     Level     `json:"state"`
	Source    string    `json:"source,omitempty"`
	Host      string    `json:"host,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WordInput carries the attributes of a save request.
type WordInput struct {
	Name     string   `json:"name"`
	Trans    []string `json:"trans"`
	Sentence string   `json:"sentence"`
	Tags     []string `json:"tags"`
	Level    Level    `json:"state"`
	Source   string   `json:"source,omitempty"`
	Host     string   `json:"host,omitempty"`
}

// Source is a provenance record for where a word was seen.
type Source struct {
	ID         int64
	SourceType string
	Title      string
	Author     string
	Website    string
	URL        string
	Meta       string
	AddedAt    time.Time
}
