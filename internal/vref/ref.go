package vref

import (
	"fmt"
	"regexp"
	"strconv"
)

// refPattern matches scripture references like "GEN 1:1" or "1COR 13:4".
var refPattern = regexp.MustCompile(`(\d*[A-Z]+) (\d+):(\d+)`)

// Ref is a single verse reference inside a book.
type Ref struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.Verse)
}

// Match is a reference found in a line together with its column span.
type Match struct {
	Ref   Ref
	Start int
	End   int
}

// Parse parses a single "BOOK C:V" reference.
func Parse(s string) (Ref, bool) {
	m := refPattern.FindStringSubmatch(s)
	if m == nil {
		return Ref{}, false
	}
	return refFromGroups(m), true
}

// FindAll returns every reference in a line, in order of appearance.
func FindAll(line string) []Match {
	idx := refPattern.FindAllStringSubmatchIndex(line, -1)
	if idx == nil {
		return nil
	}
	matches := make([]Match, 0, len(idx))
	for _, loc := range idx {
		m := refPattern.FindStringSubmatch(line[loc[0]:loc[1]])
		matches = append(matches, Match{
			Ref:   refFromGroups(m),
			Start: loc[0],
			End:   loc[1],
		})
	}
	return matches
}

func refFromGroups(groups []string) Ref {
	chapter, _ := strconv.Atoi(groups[2])
	verse, _ := strconv.Atoi(groups[3])
	return Ref{
		Book:    groups[1],
		Chapter: chapter,
		Verse:   verse,
	}
}
