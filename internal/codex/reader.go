package codex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/codex-editor/codex-companion/internal/vref"
)

// Reader loads .codex notebook files.
type Reader struct {
	path string
}

func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Read parses the notebook JSON. Only .codex files are accepted.
func (r *Reader) Read() (*Document, error) {
	if !strings.HasSuffix(strings.ToLower(r.path), ".codex") {
		return nil, fmt.Errorf("only .codex notebook files are supported: %s", r.path)
	}

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("notebook file does not exist: %s", r.path)
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read notebook file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse notebook %s: %w", r.path, err)
	}
	doc.Path = r.path
	return &doc, nil
}

// BibleReader loads .bible files, which hold one "BOOK C:V text" line per
// verse.
type BibleReader struct {
	path string
}

func NewBibleReader(path string) *BibleReader {
	return &BibleReader{path: path}
}

func (r *BibleReader) Read() ([]Verse, error) {
	if !strings.HasSuffix(strings.ToLower(r.path), ".bible") {
		return nil, fmt.Errorf("only .bible files are supported: %s", r.path)
	}

	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bible file: %w", err)
	}
	defer file.Close()

	verses := make([]Verse, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		matches := vref.FindAll(line)
		if len(matches) == 0 {
			continue
		}
		match := matches[0]
		verses = append(verses, Verse{
			Ref:  match.Ref,
			Text: strings.TrimSpace(line[match.End:]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan bible file: %w", err)
	}
	return verses, nil
}
