package validation

import (
	"context"
	"sync"
)

// LevelReport is the leveled completion report rendered by the editor. Levels
// is ordered; element k-1 holds the percentage of cells with at least k
// active validations.
type LevelReport struct {
	Track      Track     `json:"track"`
	Document   string    `json:"document,omitempty"`
	TotalCells int       `json:"total_cells"`
	MaxLevel   int       `json:"max_level"`
	Levels     []float64 `json:"levels"`
}

// CountSource supplies a snapshot of per-cell active validation counts for a
// scope. The empty document scopes the whole workspace.
type CountSource interface {
	ActiveCounts(ctx context.Context, document string, track Track) ([]int, error)
	CellCount(ctx context.Context, document string) (int, error)
}

// Reporter builds level reports from stored validation entries.
type Reporter struct {
	source CountSource

	mu       sync.RWMutex
	maxLevel int
}

func NewReporter(source CountSource, maxLevel int) *Reporter {
	return &Reporter{
		source:   source,
		maxLevel: maxLevel,
	}
}

// SetMaxLevel applies a runtime settings change to the reporting depth.
func (r *Reporter) SetMaxLevel(maxLevel int) {
	r.mu.Lock()
	if maxLevel >= 0 {
		r.maxLevel = maxLevel
	}
	r.mu.Unlock()
}

// Report computes the level report for one track of a document scope. The
// snapshot is taken by the count source; the computation itself is pure.
func (r *Reporter) Report(ctx context.Context, document string, track Track) (LevelReport, error) {
	counts, err := r.source.ActiveCounts(ctx, document, track)
	if err != nil {
		return LevelReport{}, err
	}
	total, err := r.source.CellCount(ctx, document)
	if err != nil {
		return LevelReport{}, err
	}

	r.mu.RLock()
	maxLevel := r.maxLevel
	r.mu.RUnlock()

	return LevelReport{
		Track:      track,
		Document:   document,
		TotalCells: total,
		MaxLevel:   maxLevel,
		Levels:     LevelCompletion(counts, maxLevel, total),
	}, nil
}
