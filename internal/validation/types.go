package validation

// Track distinguishes the two independent validation tracks a cell carries.
type Track string

const (
	TrackText  Track = "text"
	TrackAudio Track = "audio"
)

func (t Track) Valid() bool {
	return t == TrackText || t == TrackAudio
}

// Entry is a single reviewer attestation on a cell. Entries are append-only;
// a retraction flips Deleted instead of removing the record so the audit
// history survives.
type Entry struct {
	Username  string `json:"username"`
	CreatedAt int64  `json:"creationTimestamp"`
	UpdatedAt int64  `json:"updatedTimestamp"`
	Deleted   bool   `json:"isDeleted"`
}

// ActiveCount returns the number of entries that still count toward
// validation thresholds. A nil or empty slice means zero validations.
func ActiveCount(entries []Entry) int {
	count := 0
	for _, entry := range entries {
		if !entry.Deleted {
			count++
		}
	}
	return count
}
