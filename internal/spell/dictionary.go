package spell

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// DictionaryFileName is the project dictionary file kept at the workspace
// root.
const DictionaryFileName = "project.dictionary"

// Entry is one dictionary headword with its bookkeeping fields. The shape
// matches the editor's .dictionary format so both sides can edit the file.
type Entry struct {
	HeadWord               string   `json:"headWord"`
	ID                     string   `json:"id"`
	Definition             string   `json:"definition"`
	TranslationEquivalents []string `json:"translationEquivalents"`
	Notes                  []string `json:"notes"`
}

type dictionaryFile struct {
	Entries []Entry `json:"entries"`
}

// Dictionary is the project spell-check dictionary backed by a JSON file.
// All mutations are written through immediately.
type Dictionary struct {
	mu      sync.RWMutex
	path    string
	entries []Entry
}

// OpenDictionary loads the dictionary at path, creating an empty one when the
// file does not exist. A corrupt file is treated as empty rather than fatal,
// matching the editor's behavior.
func OpenDictionary(path string) (*Dictionary, error) {
	d := &Dictionary{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read dictionary: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create dictionary directory: %w", err)
		}
		if err := d.save(); err != nil {
			return nil, err
		}
		return d, nil
	}

	var file dictionaryFile
	if err := json.Unmarshal(data, &file); err != nil {
		file.Entries = nil
	}
	d.entries = file.Entries
	return d, nil
}

// Define adds a headword if it is not already present. Punctuation is
// stripped first; empty results are ignored.
func (d *Dictionary) Define(word string) error {
	word = StripPunctuation(word)
	if word == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, entry := range d.entries {
		if strings.EqualFold(entry.HeadWord, word) {
			return nil
		}
	}
	d.entries = append(d.entries, Entry{
		HeadWord:               word,
		ID:                     uuid.NewString(),
		TranslationEquivalents: []string{},
		Notes:                  []string{},
	})
	return d.save()
}

// Remove drops every entry whose headword matches word.
func (d *Dictionary) Remove(word string) error {
	word = StripPunctuation(word)

	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.entries[:0]
	for _, entry := range d.entries {
		if !strings.EqualFold(entry.HeadWord, word) {
			kept = append(kept, entry)
		}
	}
	d.entries = kept
	return d.save()
}

// Entries returns a snapshot of the dictionary contents.
func (d *Dictionary) Entries() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ret := make([]Entry, len(d.entries))
	copy(ret, d.entries)
	return ret
}

// Contains reports whether word is a known headword, case-insensitively.
func (d *Dictionary) Contains(word string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, entry := range d.entries {
		if strings.EqualFold(entry.HeadWord, word) {
			return true
		}
	}
	return false
}

// save must be called with the write lock held (or before the dictionary is
// shared).
func (d *Dictionary) save() error {
	entries := d.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(dictionaryFile{Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dictionary: %w", err)
	}
	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return fmt.Errorf("write dictionary: %w", err)
	}
	return nil
}

// StripPunctuation removes punctuation and surrounding whitespace from a
// word.
func StripPunctuation(word string) string {
	var b strings.Builder
	for _, r := range word {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
