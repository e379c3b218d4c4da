package codex

import (
	"github.com/codex-editor/codex-companion/internal/validation"
	"github.com/codex-editor/codex-companion/internal/vref"
)

// CellKind is the notebook cell discriminator used by the editor.
type CellKind int

const (
	// KindMarkup cells carry chapter headings and notes.
	KindMarkup CellKind = 1
	// KindText cells carry translatable scripture content.
	KindText CellKind = 2
)

// CellMetadata holds the cell identity and its two validation tracks. Both
// tracks are independent; an entry on one never counts toward the other.
type CellMetadata struct {
	ID               string             `json:"id,omitempty"`
	ValidatedBy      []validation.Entry `json:"validatedBy,omitempty"`
	AudioValidatedBy []validation.Entry `json:"audioValidatedBy,omitempty"`
}

// Cell is one unit of notebook content.
type Cell struct {
	Kind     CellKind     `json:"kind"`
	Value    string       `json:"value"`
	Language string       `json:"language,omitempty"`
	Metadata CellMetadata `json:"metadata,omitempty"`
}

// Entries returns the validation entries for the given track.
func (c Cell) Entries(track validation.Track) []validation.Entry {
	if track == validation.TrackAudio {
		return c.Metadata.AudioValidatedBy
	}
	return c.Metadata.ValidatedBy
}

// Document is a parsed .codex notebook.
type Document struct {
	Cells []Cell `json:"cells"`
	Path  string `json:"-"`
}

// TextCells returns the translatable cells in notebook order.
func (d *Document) TextCells() []Cell {
	cells := make([]Cell, 0, len(d.Cells))
	for _, cell := range d.Cells {
		if cell.Kind == KindText {
			cells = append(cells, cell)
		}
	}
	return cells
}

// ActiveCounts returns one active validation count per text cell, in
// notebook order, ready for the level calculator.
func (d *Document) ActiveCounts(track validation.Track) []int {
	textCells := d.TextCells()
	counts := make([]int, 0, len(textCells))
	for _, cell := range textCells {
		counts = append(counts, validation.ActiveCount(cell.Entries(track)))
	}
	return counts
}

// Verse is one extracted verse with its reference marker.
type Verse struct {
	Ref  vref.Ref `json:"ref"`
	Text string   `json:"text"`
}
