package service

import (
	"context"

	"github.com/codex-editor/codex-companion/internal/index"
	"github.com/codex-editor/codex-companion/internal/persistence"
)

// Store is the slice of the persistence layer the indexer writes through.
type Store interface {
	ReplaceDocumentCells(ctx context.Context, document string, cells []persistence.CellRecord) error
	UpsertValidation(ctx context.Context, record persistence.ValidationRecord) error
	UpsertSearchDocument(ctx context.Context, doc index.Document) error
	LoadSearchDocuments(ctx context.Context) ([]index.Document, error)
}
