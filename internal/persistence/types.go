package persistence

import "time"

// CellRecord is one stored notebook cell. Position preserves notebook order
// so reports stay stable across rebuilds.
type CellRecord struct {
	Document  string
	CellID    string
	Ref       string
	Text      string
	Language  string
	Position  int
	UpdatedAt time.Time
}

// ValidationRecord is one stored reviewer attestation. Retraction keeps the
// row and sets Deleted.
type ValidationRecord struct {
	Document  string
	CellID    string
	Track     string
	Username  string
	CreatedAt int64
	UpdatedAt int64
	Deleted   bool
}
