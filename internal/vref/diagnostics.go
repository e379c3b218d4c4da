package vref

import "fmt"

type Severity string

const (
	SeverityWarning Severity = "warning"
)

// Diagnostic flags a reference problem at a position in a document. Line and
// character offsets are zero-based, matching editor positions.
type Diagnostic struct {
	Line      int      `json:"line"`
	StartChar int      `json:"start_char"`
	EndChar   int      `json:"end_char"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	Source    string   `json:"source"`
}

const diagnosticSource = "vrefs"

// Validate walks the document lines in order and reports sequence problems:
// duplicated verses, references from a different book than the first one
// seen, verses that regress, and verses missing from a same-chapter gap.
func Validate(lines []string) []Diagnostic {
	diagnostics := make([]Diagnostic, 0)
	expectedBook := ""
	haveLast := false
	var lastChapter, lastVerse int
	seen := make(map[string]struct{})

	for i, line := range lines {
		for _, match := range FindAll(line) {
			ref := match.Ref
			key := ref.String()
			if _, dup := seen[key]; dup {
				diagnostics = append(diagnostics, newDiagnostic(i, match,
					fmt.Sprintf("The verse %s is duplicated", key)))
				continue
			}
			seen[key] = struct{}{}

			if expectedBook == "" {
				expectedBook = ref.Book
			} else if expectedBook != ref.Book {
				diagnostics = append(diagnostics, newDiagnostic(i, match,
					fmt.Sprintf("The reference %s is not correct for book %s", key, expectedBook)))
				continue
			}

			if haveLast {
				switch {
				case ref.Chapter < lastChapter,
					ref.Chapter == lastChapter && ref.Verse < lastVerse:
					diagnostics = append(diagnostics, newDiagnostic(i, match,
						fmt.Sprintf("The verse %s should come before %d:%d", key, lastChapter, lastVerse)))
				case ref.Chapter == lastChapter && ref.Verse != lastVerse+1:
					for missing := lastVerse + 1; missing < ref.Verse; missing++ {
						missingRef := Ref{Book: ref.Book, Chapter: lastChapter, Verse: missing}
						diagnostics = append(diagnostics, newDiagnostic(i, match,
							fmt.Sprintf("The verse %s is missing after %d:%d", missingRef, lastChapter, lastVerse)))
					}
				}
			}

			lastChapter = ref.Chapter
			lastVerse = ref.Verse
			haveLast = true
		}
	}
	return diagnostics
}

func newDiagnostic(line int, match Match, message string) Diagnostic {
	return Diagnostic{
		Line:      line,
		StartChar: match.Start,
		EndChar:   match.End,
		Message:   message,
		Severity:  SeverityWarning,
		Source:    diagnosticSource,
	}
}
