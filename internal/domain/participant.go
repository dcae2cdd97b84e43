package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Cursor is a caret position. When SelectionStart is set, Line/Column is
// the end of the selection.
type Cursor struct {
	Line           int       `json:"line"`
	Column         int       `json:"column"`
	SelectionStart *Position `json:"selectionStart,omitempty"`
}

func (c *Cursor) clone() *Cursor {
	if c == nil {
		return nil
	}
	cp := *c
	if c.SelectionStart != nil {
		sel := *c.SelectionStart
		cp.SelectionStart = &sel
	}
	return &cp
}

type Participant struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Cursor *Cursor `json:"cursor,omitempty"`
}

func (p Participant) clone() Participant {
	p.Cursor = p.Cursor.clone()
	return p
}

const (
	MaxNameLength = 32
	DefaultName   = "Anonymous"
)

// SanitizeName drops markup-significant and control characters, collapses
// whitespace and caps the result at MaxNameLength runes.
func SanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '&', '"', '\'', '`', '/', '\\':
			return -1
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")

	if utf8.RuneCountInString(s) > MaxNameLength {
		s = strings.TrimSpace(string([]rune(s)[:MaxNameLength]))
	}
	return s
}
