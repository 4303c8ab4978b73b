// Package sequence materializes the ordered trial list of a session.
package sequence

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadEntry reports a malformed sequence entry.
var ErrBadEntry = errors.New("malformed sequence entry")

const randomizePrefix = "randomize("

// Entry is one item of a declared sequence: a phase name, optionally
// wrapped in randomize(...).
type Entry struct {
	Name      string
	Randomize bool
}

func (e Entry) String() string {
	if e.Randomize {
		return randomizePrefix + e.Name + ")"
	}
	return e.Name
}

// Literal returns a plain entry.
func Literal(name string) Entry {
	return Entry{Name: name}
}

// Randomize returns a randomize(name) entry.
func Randomize(name string) Entry {
	return Entry{Name: name, Randomize: true}
}

// ParseEntry parses "name" or "randomize(name)".
func ParseEntry(s string) (Entry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Entry{}, fmt.Errorf("%w: empty entry", ErrBadEntry)
	}
	if !strings.HasPrefix(s, randomizePrefix) {
		if strings.ContainsAny(s, "()") {
			return Entry{}, fmt.Errorf("%w: %q", ErrBadEntry, s)
		}
		return Literal(s), nil
	}
	if !strings.HasSuffix(s, ")") {
		return Entry{}, fmt.Errorf("%w: unterminated %q", ErrBadEntry, s)
	}
	name := strings.TrimSpace(s[len(randomizePrefix) : len(s)-1])
	if name == "" || strings.ContainsAny(name, "()") {
		return Entry{}, fmt.Errorf("%w: %q", ErrBadEntry, s)
	}
	return Randomize(name), nil
}

// ParseEntries parses a declared sequence.
func ParseEntries(items []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		e, err := ParseEntry(item)
		if err != nil {
			return nil, fmt.Errorf("sequence item %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
