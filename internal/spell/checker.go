package spell

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxSuggestions caps how many suggestions and completions are returned.
const maxSuggestions = 5

var verseRefPattern = regexp.MustCompile(`\d+:\d+`)

// Checker answers spelling queries against a project dictionary.
type Checker struct {
	dictionary *Dictionary
}

func NewChecker(dictionary *Dictionary) *Checker {
	return &Checker{dictionary: dictionary}
}

// IsCorrectionNeeded reports whether a word is unknown to the dictionary.
// All-caps tokens and verse references like "3:16" are never flagged.
func (c *Checker) IsCorrectionNeeded(word string) bool {
	if word == strings.ToUpper(word) || verseRefPattern.MatchString(word) {
		return false
	}
	word = strings.ToLower(StripPunctuation(word))
	if word == "" {
		return false
	}
	return !c.dictionary.Contains(word)
}

// Suggest returns up to five dictionary headwords ranked by edit distance to
// the word. A word that needs no correction is returned as-is.
func (c *Checker) Suggest(word string) []string {
	word = strings.ToLower(StripPunctuation(word))

	if !c.IsCorrectionNeeded(word) {
		return []string{word}
	}

	entries := c.dictionary.Entries()
	if len(entries) == 0 {
		return []string{}
	}

	type ranked struct {
		headWord string
		distance int
	}
	candidates := make([]ranked, 0, len(entries))
	for _, entry := range entries {
		candidates = append(candidates, ranked{
			headWord: entry.HeadWord,
			distance: editDistance(entry.HeadWord, word),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	limit := maxSuggestions
	if len(candidates) < limit {
		limit = len(candidates)
	}
	suggestions := make([]string, 0, limit)
	for _, candidate := range candidates[:limit] {
		suggestions = append(suggestions, candidate.headWord)
	}
	return suggestions
}

// Complete returns up to five completions for a word fragment: the remainder
// of each headword starting with the fragment, shortest first.
func (c *Checker) Complete(fragment string) []string {
	fragment = strings.ToLower(StripPunctuation(fragment))
	fragmentRunes := utf8.RuneCountInString(fragment)

	completions := make([]string, 0)
	for _, entry := range c.dictionary.Entries() {
		if !strings.HasPrefix(strings.ToLower(entry.HeadWord), fragment) {
			continue
		}
		// Slice by rune count: lowercasing can change byte lengths, so the
		// fragment's byte length is not a valid offset into the headword.
		headRunes := []rune(entry.HeadWord)
		completions = append(completions, string(headRunes[fragmentRunes:]))
	}
	sort.SliceStable(completions, func(i, j int) bool {
		return len(completions[i]) < len(completions[j])
	})

	if len(completions) > maxSuggestions {
		completions = completions[:maxSuggestions]
	}
	return completions
}
