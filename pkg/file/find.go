package file

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FindRecentWithExt returns files under dir with the given extension whose
// modification time is after startTime. A zero startTime matches every file.
func FindRecentWithExt(dir, ext string, startTime time.Time) ([]string, error) {
	var found []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo,
		err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(path), strings.ToLower(ext)) {
			return nil
		}
		if !startTime.IsZero() && !info.ModTime().After(startTime) {
			return nil
		}
		found = append(found, path)
		return nil
	})

	return found, err
}
