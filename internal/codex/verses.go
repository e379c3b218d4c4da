package codex

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codex-editor/codex-companion/internal/vref"
)

// DefaultChunkSize is the number of verses grouped into one search chunk.
const DefaultChunkSize = 4

var markerPattern = regexp.MustCompile(`\d?[A-Z]+ \d+:\d+`)

// SplitVerses splits scripture text into per-verse segments, keeping the
// reference marker at the head of each segment.
func SplitVerses(text string) []string {
	locs := markerPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	verses := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segment := strings.TrimSpace(text[loc[0]:end])
		if segment != "" {
			verses = append(verses, segment)
		}
	}
	return verses
}

// ExtractVerses returns every referenced verse found in the document's text
// cells, in notebook order. Segments without a parseable marker are skipped.
func ExtractVerses(doc *Document) []Verse {
	verses := make([]Verse, 0)
	for _, cell := range doc.TextCells() {
		for _, segment := range SplitVerses(cell.Value) {
			matches := vref.FindAll(segment)
			if len(matches) == 0 {
				continue
			}
			match := matches[0]
			verses = append(verses, Verse{
				Ref:  match.Ref,
				Text: strings.TrimSpace(segment[match.End:]),
			})
		}
	}
	return verses
}

// Chunk is a group of consecutive verses combined for indexing.
type Chunk struct {
	Name  string   `json:"name"`
	Start vref.Ref `json:"start"`
	End   vref.Ref `json:"end"`
	Text  string   `json:"text"`
}

// ChunkVerses groups verses into fixed-size chunks. The chunk name follows
// the editor's "lang BOOK C:V - C:V" convention.
func ChunkVerses(verses []Verse, language string, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}

	chunks := make([]Chunk, 0, (len(verses)+size-1)/size)
	for start := 0; start < len(verses); start += size {
		end := start + size
		if end > len(verses) {
			end = len(verses)
		}
		group := verses[start:end]
		first := group[0]
		last := group[len(group)-1]

		texts := make([]string, 0, len(group))
		for _, verse := range group {
			texts = append(texts, verse.Text)
		}

		chunks = append(chunks, Chunk{
			Name: fmt.Sprintf("%s %s %d:%d - %d:%d",
				language, first.Ref.Book,
				first.Ref.Chapter, first.Ref.Verse,
				last.Ref.Chapter, last.Ref.Verse),
			Start: first.Ref,
			End:   last.Ref,
			Text:  strings.TrimSpace(strings.Join(texts, " ")),
		})
	}
	return chunks
}
