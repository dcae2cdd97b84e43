package domain

import (
	"encoding/json"
	"time"
)

type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguagePython     Language = "python"
	LanguageGo         Language = "go"

	DefaultLanguage = LanguageJavaScript
)

var codeSamples = map[Language]string{
	LanguageJavaScript: `console.log('Hello World!');`,
	LanguageTypeScript: `console.log('Hello World!');`,
	LanguageGo: `package main

import "fmt"

func main() {
    fmt.Println("Hello, World!")
}`,
	LanguagePython: `import random
import string

def generate_password(length=12):
    characters = string.ascii_letters + string.digits + string.punctuation
    return ''.join(random.choice(characters) for _ in range(length))

password = generate_password()
print(password)
`,
}

func (l Language) Valid() bool {
	_, ok := codeSamples[l]
	return ok
}

// CodeSample returns the starter program for l, or "" for unknown languages.
func CodeSample(l Language) string { return codeSamples[l] }

type OutputKind string

const (
	OutputLog   OutputKind = "log"
	OutputError OutputKind = "error"
)

type OutputEntry struct {
	Text string     `json:"text"`
	Type OutputKind `json:"type"`
}

func (e OutputEntry) Valid() bool {
	return e.Type == OutputLog || e.Type == OutputError
}

// Pad is the durable record owned by the pad store.
type Pad struct {
	ID        string
	KeyHash   string
	Language  Language
	Code      string
	Output    []OutputEntry
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPad returns a fresh pad in the default language with its code sample.
func NewPad(id, keyHash string) *Pad {
	now := time.Now().UTC()
	return &Pad{
		ID:        id,
		KeyHash:   keyHash,
		Language:  DefaultLanguage,
		Code:      CodeSample(DefaultLanguage),
		Output:    []OutputEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

const PadIDLength = 6

// ValidPadID reports whether id is exactly six ASCII letters or digits.
func ValidPadID(id string) bool {
	if len(id) != PadIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// MarshalOutput encodes an output log the way stores keep it (JSON text).
func MarshalOutput(out []OutputEntry) (string, error) {
	if out == nil {
		out = []OutputEntry{}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalOutput decodes a stored output log. Empty input is an empty log.
func UnmarshalOutput(s string) ([]OutputEntry, error) {
	if s == "" {
		return []OutputEntry{}, nil
	}
	var out []OutputEntry
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return []OutputEntry{}, err
	}
	if out == nil {
		out = []OutputEntry{}
	}
	return out, nil
}
