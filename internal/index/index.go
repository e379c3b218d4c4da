package index

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// Side selects which text corpus a document belongs to.
type Side string

const (
	// SideSource holds .bible source texts.
	SideSource Side = "source"
	// SideTarget holds .codex draft texts.
	SideTarget Side = "target"
)

func (s Side) Valid() bool {
	return s == SideSource || s == SideTarget
}

// Document is one searchable verse or chunk.
type Document struct {
	Ref      string `json:"ref"`
	Text     string `json:"text"`
	URI      string `json:"uri"`
	Side     Side   `json:"side"`
	Language string `json:"language,omitempty"`
}

// Result is one ranked search hit.
type Result struct {
	Ref   string  `json:"ref"`
	Text  string  `json:"text"`
	URI   string  `json:"uri"`
	Score float64 `json:"score"`
}

type indexedDoc struct {
	doc    Document
	terms  map[string]int
	length int
}

// Index ranks documents against free-text queries with TF-IDF weighted
// cosine similarity, separately per side. Safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	sides map[Side]map[string]*indexedDoc
	df    map[Side]map[string]int
}

func New() *Index {
	return &Index{
		sides: map[Side]map[string]*indexedDoc{
			SideSource: {},
			SideTarget: {},
		},
		df: map[Side]map[string]int{
			SideSource: {},
			SideTarget: {},
		},
	}
}

// DetectLanguage returns the ISO 639-1 code detected for the text, empty when
// the text is empty.
func DetectLanguage(text string) string {
	if text == "" {
		return ""
	}
	return whatlanggo.DetectLang(text).Iso6391()
}

// Upsert adds a document or replaces the one sharing its side and ref.
// The document language is detected when the caller left it empty.
func (ix *Index) Upsert(doc Document) {
	if !doc.Side.Valid() || doc.Ref == "" {
		return
	}
	if doc.Language == "" {
		doc.Language = DetectLanguage(doc.Text)
	}

	terms := termFrequencies(doc.Text)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if existing, ok := ix.sides[doc.Side][doc.Ref]; ok {
		for term := range existing.terms {
			ix.df[doc.Side][term]--
			if ix.df[doc.Side][term] <= 0 {
				delete(ix.df[doc.Side], term)
			}
		}
	}
	for term := range terms {
		ix.df[doc.Side][term]++
	}
	ix.sides[doc.Side][doc.Ref] = &indexedDoc{
		doc:    doc,
		terms:  terms,
		length: len(terms),
	}
}

// Len returns the number of documents indexed on a side.
func (ix *Index) Len(side Side) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.sides[side])
}

// Search returns up to limit documents ranked by similarity to the query.
// Documents with no term overlap are never returned.
func (ix *Index) Search(query string, side Side, limit int) []Result {
	if limit <= 0 {
		limit = 5
	}
	queryTerms := termFrequencies(query)
	if len(queryTerms) == 0 {
		return []Result{}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	docs := ix.sides[side]
	total := len(docs)
	if total == 0 {
		return []Result{}
	}

	idf := func(term string) float64 {
		df := ix.df[side][term]
		return math.Log(float64(total+1)/float64(df+1)) + 1
	}

	queryNorm := 0.0
	queryWeights := make(map[string]float64, len(queryTerms))
	for term, tf := range queryTerms {
		w := float64(tf) * idf(term)
		queryWeights[term] = w
		queryNorm += w * w
	}
	queryNorm = math.Sqrt(queryNorm)

	results := make([]Result, 0)
	for _, entry := range docs {
		dot := 0.0
		docNorm := 0.0
		for term, tf := range entry.terms {
			w := float64(tf) * idf(term)
			docNorm += w * w
			if qw, ok := queryWeights[term]; ok {
				dot += qw * w
			}
		}
		if dot == 0 {
			continue
		}
		score := dot / (queryNorm * math.Sqrt(docNorm))
		results = append(results, Result{
			Ref:   entry.doc.Ref,
			Text:  entry.doc.Text,
			URI:   entry.doc.URI,
			Score: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Ref < results[j].Ref
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Documents returns a snapshot of one side, for diagnostics and tests.
func (ix *Index) Documents(side Side) []Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ret := make([]Document, 0, len(ix.sides[side]))
	for _, entry := range ix.sides[side] {
		ret = append(ret, entry.doc)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Ref < ret[j].Ref })
	return ret
}

func termFrequencies(text string) map[string]int {
	terms := make(map[string]int)
	for _, token := range tokenize(text) {
		terms[token]++
	}
	return terms
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
