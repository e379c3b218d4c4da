package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codex-editor/codex-companion/internal/index"
	"github.com/codex-editor/codex-companion/internal/jobs"
	"github.com/codex-editor/codex-companion/internal/validation"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*jobs.IndexJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source, dedupe_key, file_path, file_kind, workspace, status, error, created_at, updated_at
		 FROM jobs
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.IndexJob, 0)
	for rows.Next() {
		var item jobs.IndexJob
		var status string
		var fileKind string
		if err := rows.Scan(
			&item.ID,
			&item.Source,
			&item.DedupeKey,
			&item.Payload.FilePath,
			&fileKind,
			&item.Payload.Workspace,
			&status,
			&item.Error,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Status = jobs.Status(status)
		item.Payload.FileKind = jobs.FileKind(fileKind)
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID)
	return err
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *jobs.IndexJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, source, dedupe_key, file_path, file_kind, workspace, status, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source,
			dedupe_key=excluded.dedupe_key,
			file_path=excluded.file_path,
			file_kind=excluded.file_kind,
			workspace=excluded.workspace,
			status=excluded.status,
			error=excluded.error,
			updated_at=excluded.updated_at`,
		job.ID,
		job.Source,
		job.DedupeKey,
		job.Payload.FilePath,
		string(job.Payload.FileKind),
		job.Payload.Workspace,
		string(job.Status),
		job.Error,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// ReplaceDocumentCells swaps out the stored cells for a document in one
// transaction, keeping validation entries for cell ids that survive.
func (s *SQLiteStore) ReplaceDocumentCells(ctx context.Context, document string, cells []CellRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM cells WHERE document = ?`, document); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, cell := range cells {
		updatedAt := cell.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now
		}
		if _, err = tx.ExecContext(
			ctx,
			`INSERT INTO cells (document, cell_id, ref, text, language, position, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			document,
			cell.CellID,
			cell.Ref,
			cell.Text,
			cell.Language,
			cell.Position,
			updatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CellCount returns the number of stored cells; the empty document scopes
// the whole workspace.
func (s *SQLiteStore) CellCount(ctx context.Context, document string) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM cells WHERE (? = '' OR document = ?)`,
		document,
		document,
	).Scan(&count)
	return count, err
}

// UpsertValidation records a reviewer attestation. Re-attesting an entry
// that was retracted restores it and refreshes the updated timestamp.
func (s *SQLiteStore) UpsertValidation(ctx context.Context, record ValidationRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO validation_entries (
			document, cell_id, track, username, created_at_ms, updated_at_ms, is_deleted
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document, cell_id, track, username) DO UPDATE SET
			updated_at_ms=excluded.updated_at_ms,
			is_deleted=excluded.is_deleted`,
		record.Document,
		record.CellID,
		record.Track,
		record.Username,
		record.CreatedAt,
		record.UpdatedAt,
		boolToInt(record.Deleted),
	)
	return err
}

// RetractValidation soft-deletes an attestation. The row survives so the
// audit history is preserved.
func (s *SQLiteStore) RetractValidation(ctx context.Context, document, cellID, track, username string, updatedAtMs int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE validation_entries
		 SET is_deleted = 1, updated_at_ms = ?
		 WHERE document = ? AND cell_id = ? AND track = ? AND username = ?`,
		updatedAtMs,
		document,
		cellID,
		track,
		username,
	)
	return err
}

// Validations returns every entry for a cell track, deleted ones included.
func (s *SQLiteStore) Validations(ctx context.Context, document, cellID, track string) ([]validation.Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT username, created_at_ms, updated_at_ms, is_deleted
		 FROM validation_entries
		 WHERE document = ? AND cell_id = ? AND track = ?
		 ORDER BY created_at_ms ASC`,
		document,
		cellID,
		track,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]validation.Entry, 0)
	for rows.Next() {
		var entry validation.Entry
		var deleted int
		if err := rows.Scan(&entry.Username, &entry.CreatedAt, &entry.UpdatedAt, &deleted); err != nil {
			return nil, err
		}
		entry.Deleted = deleted == 1
		ret = append(ret, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// ActiveCounts returns one active validation count per stored cell in the
// scope, in notebook order. Cells without entries count as zero.
func (s *SQLiteStore) ActiveCounts(ctx context.Context, document string, track validation.Track) ([]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT COALESCE(SUM(CASE WHEN v.is_deleted = 0 THEN 1 ELSE 0 END), 0)
		 FROM cells c
		 LEFT JOIN validation_entries v
			ON v.document = c.document AND v.cell_id = c.cell_id AND v.track = ?
		 WHERE (? = '' OR c.document = ?)
		 GROUP BY c.document, c.cell_id
		 ORDER BY c.document ASC, c.position ASC`,
		string(track),
		document,
		document,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]int, 0)
	for rows.Next() {
		var count int
		if err := rows.Scan(&count); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *SQLiteStore) UpsertSearchDocument(ctx context.Context, doc index.Document) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO search_documents (side, ref, text, uri, language, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(side, ref) DO UPDATE SET
			text=excluded.text,
			uri=excluded.uri,
			language=excluded.language,
			updated_at=excluded.updated_at`,
		string(doc.Side),
		doc.Ref,
		doc.Text,
		doc.URI,
		doc.Language,
		time.Now().UTC(),
	)
	return err
}

// LoadSearchDocuments streams every stored search document, used to rebuild
// the in-memory index at startup.
func (s *SQLiteStore) LoadSearchDocuments(ctx context.Context) ([]index.Document, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT side, ref, text, uri, language FROM search_documents ORDER BY side, ref`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]index.Document, 0)
	for rows.Next() {
		var doc index.Document
		var side string
		if err := rows.Scan(&side, &doc.Ref, &doc.Text, &doc.URI, &doc.Language); err != nil {
			return nil, err
		}
		doc.Side = index.Side(side)
		ret = append(ret, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
