package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codex-editor/codex-companion/internal/codex"
	"github.com/codex-editor/codex-companion/internal/index"
	"github.com/codex-editor/codex-companion/internal/jobs"
	"github.com/codex-editor/codex-companion/internal/persistence"
	"github.com/codex-editor/codex-companion/internal/validation"
	"github.com/codex-editor/codex-companion/internal/vref"
	"github.com/codex-editor/codex-companion/pkg/file"
	"github.com/codex-editor/codex-companion/pkg/log"
)

// Indexer keeps the search index and stored cells in sync with the
// workspace's .codex and .bible files.
type Indexer struct {
	store Store
	index *index.Index

	mu             sync.RWMutex
	workspace      string
	verseChunkSize int
	targetLanguage string
	lastScan       time.Time
}

func NewIndexer(store Store, ix *index.Index, workspace string, verseChunkSize int, targetLanguage string) *Indexer {
	return &Indexer{
		store:          store,
		index:          ix,
		workspace:      workspace,
		verseChunkSize: verseChunkSize,
		targetLanguage: targetLanguage,
	}
}

// SetWorkspace repoints the indexer and forgets scan history so the next
// scan picks up every file in the new workspace.
func (ix *Indexer) SetWorkspace(path string) {
	ix.mu.Lock()
	ix.workspace = path
	ix.lastScan = time.Time{}
	ix.mu.Unlock()
}

func (ix *Indexer) Workspace() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.workspace
}

// SetVerseChunkSize applies a runtime settings change.
func (ix *Indexer) SetVerseChunkSize(size int) {
	ix.mu.Lock()
	if size > 0 {
		ix.verseChunkSize = size
	}
	ix.mu.Unlock()
}

// Rebuild loads persisted search documents into the in-memory index,
// called once at startup before the queue starts.
func (ix *Indexer) Rebuild(ctx context.Context) error {
	docs, err := ix.store.LoadSearchDocuments(ctx)
	if err != nil {
		return fmt.Errorf("load search documents: %w", err)
	}
	for _, doc := range docs {
		ix.index.Upsert(doc)
	}
	log.Info("Rebuilt search index with %d documents", len(docs))
	return nil
}

// Scan walks the workspace for .codex and .bible files changed since the
// previous scan and enqueues one indexing job per file. Returns the number
// of jobs enqueued.
func (ix *Indexer) Scan(_ context.Context, queue *jobs.Queue, source string) (int, error) {
	ix.mu.Lock()
	workspace := ix.workspace
	since := ix.lastScan
	ix.lastScan = time.Now()
	ix.mu.Unlock()

	if workspace == "" {
		return 0, fmt.Errorf("workspace is not set")
	}

	var codexFiles, bibleFiles []string
	var group errgroup.Group
	group.Go(func() error {
		var err error
		codexFiles, err = file.FindRecentWithExt(workspace, ".codex", since)
		return err
	})
	group.Go(func() error {
		var err error
		bibleFiles, err = file.FindRecentWithExt(workspace, ".bible", since)
		return err
	})
	if err := group.Wait(); err != nil {
		return 0, err
	}

	enqueued := 0
	enqueue := func(path string, kind jobs.FileKind) {
		_, created := queue.Enqueue(jobs.EnqueueRequest{
			Source:    source,
			DedupeKey: path,
			Payload: jobs.JobPayload{
				FilePath:  path,
				FileKind:  kind,
				Workspace: workspace,
			},
		})
		if created {
			enqueued++
		}
	}
	for _, path := range codexFiles {
		enqueue(path, jobs.FileKindCodex)
	}
	for _, path := range bibleFiles {
		enqueue(path, jobs.FileKindBible)
	}

	log.Info("Scan of %s enqueued %d jobs (%d codex, %d bible)",
		workspace, enqueued, len(codexFiles), len(bibleFiles))
	return enqueued, nil
}

// Execute is the queue executor: it parses the payload file and writes
// cells, validation entries, and search documents through the store.
func (ix *Indexer) Execute(ctx context.Context, job *jobs.IndexJob) error {
	switch job.Payload.FileKind {
	case jobs.FileKindCodex:
		return ix.indexCodexFile(ctx, job.Payload.Workspace, job.Payload.FilePath)
	case jobs.FileKindBible:
		return ix.indexBibleFile(ctx, job.Payload.Workspace, job.Payload.FilePath)
	default:
		return fmt.Errorf("unknown file kind %q", job.Payload.FileKind)
	}
}

func (ix *Indexer) indexCodexFile(ctx context.Context, workspace, path string) error {
	doc, err := codex.NewReader(path).Read()
	if err != nil {
		return err
	}
	document := documentName(workspace, path)

	ix.mu.RLock()
	chunkSize := ix.verseChunkSize
	lang := ix.targetLanguage
	ix.mu.RUnlock()

	textCells := doc.TextCells()
	records := make([]persistence.CellRecord, 0, len(textCells))
	validations := make([]persistence.ValidationRecord, 0)
	for position, cell := range textCells {
		cellID := cell.Metadata.ID
		if cellID == "" {
			cellID = fmt.Sprintf("cell-%d", position)
		}
		ref := ""
		if matches := vref.FindAll(cell.Value); len(matches) > 0 {
			ref = matches[0].Ref.String()
		}
		records = append(records, persistence.CellRecord{
			Document: document,
			CellID:   cellID,
			Ref:      ref,
			Text:     cell.Value,
			Language: cell.Language,
			Position: position,
		})

		for _, track := range []validation.Track{validation.TrackText, validation.TrackAudio} {
			for _, entry := range cell.Entries(track) {
				validations = append(validations, persistence.ValidationRecord{
					Document:  document,
					CellID:    cellID,
					Track:     string(track),
					Username:  entry.Username,
					CreatedAt: entry.CreatedAt,
					UpdatedAt: entry.UpdatedAt,
					Deleted:   entry.Deleted,
				})
			}
		}
	}

	if err := ix.store.ReplaceDocumentCells(ctx, document, records); err != nil {
		return fmt.Errorf("replace cells for %s: %w", document, err)
	}
	for _, record := range validations {
		if err := ix.store.UpsertValidation(ctx, record); err != nil {
			return fmt.Errorf("upsert validation for %s: %w", document, err)
		}
	}

	verses := codex.ExtractVerses(doc)
	for _, chunk := range codex.ChunkVerses(verses, lang, chunkSize) {
		searchDoc := index.Document{
			Ref:      chunk.Name,
			Text:     chunk.Text,
			URI:      document,
			Side:     index.SideTarget,
			Language: index.DetectLanguage(chunk.Text),
		}
		ix.index.Upsert(searchDoc)
		if err := ix.store.UpsertSearchDocument(ctx, searchDoc); err != nil {
			return fmt.Errorf("persist search document: %w", err)
		}
	}
	return nil
}

func (ix *Indexer) indexBibleFile(ctx context.Context, workspace, path string) error {
	verses, err := codex.NewBibleReader(path).Read()
	if err != nil {
		return err
	}
	document := documentName(workspace, path)

	for _, verse := range verses {
		searchDoc := index.Document{
			Ref:      verse.Ref.String(),
			Text:     verse.Text,
			URI:      document,
			Side:     index.SideSource,
			Language: index.DetectLanguage(verse.Text),
		}
		ix.index.Upsert(searchDoc)
		if err := ix.store.UpsertSearchDocument(ctx, searchDoc); err != nil {
			return fmt.Errorf("persist search document: %w", err)
		}
	}
	return nil
}

// documentName is the workspace-relative path used as document identity.
func documentName(workspace, path string) string {
	if workspace == "" {
		return path
	}
	rel, err := filepath.Rel(workspace, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

