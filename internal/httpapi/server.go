package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/codex-editor/codex-companion/internal/config"
	"github.com/codex-editor/codex-companion/internal/index"
	"github.com/codex-editor/codex-companion/internal/jobs"
	"github.com/codex-editor/codex-companion/internal/persistence"
	"github.com/codex-editor/codex-companion/internal/service"
	"github.com/codex-editor/codex-companion/internal/spell"
	"github.com/codex-editor/codex-companion/internal/validation"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

// validationStore is the slice of the persistence layer the validation
// endpoints need.
type validationStore interface {
	UpsertValidation(ctx context.Context, record persistence.ValidationRecord) error
	RetractValidation(ctx context.Context, document, cellID, track, username string, updatedAtMs int64) error
	Validations(ctx context.Context, document, cellID, track string) ([]validation.Entry, error)
}

type scanTrigger func(ctx context.Context, source string) (int, error)

type Server struct {
	indexer *service.Indexer
	queue   *jobs.Queue
	search  *index.Index

	reporter    *validation.Reporter
	validations validationStore
	dictionary  *spell.Dictionary
	checker     *spell.Checker
	settings    runtimeSettingsStore
	apply       runtimeSettingsApplier
	scan        scanTrigger
	scanCron    string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithReporter(reporter *validation.Reporter) Option {
	return func(s *Server) {
		s.reporter = reporter
	}
}

func WithValidationStore(store validationStore) Option {
	return func(s *Server) {
		s.validations = store
	}
}

func WithDictionary(dictionary *spell.Dictionary) Option {
	return func(s *Server) {
		s.dictionary = dictionary
		s.checker = spell.NewChecker(dictionary)
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func WithScanTrigger(trigger scanTrigger, cronExpr string) Option {
	return func(s *Server) {
		s.scan = trigger
		s.scanCron = cronExpr
	}
}

func NewServer(indexer *service.Indexer, queue *jobs.Queue, search *index.Index, opts ...Option) *Server {
	s := &Server{
		indexer: indexer,
		queue:   queue,
		search:  search,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/workspace", s.handleWorkspace)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/spell/check", s.handleSpellCheck)
	s.mux.HandleFunc("/api/spell/complete", s.handleSpellComplete)
	s.mux.HandleFunc("/api/dictionary", s.handleDictionary)
	s.mux.HandleFunc("/api/validation/levels", s.handleValidationLevels)
	s.mux.HandleFunc("/api/validation/entries", s.handleValidationEntries)
	s.mux.HandleFunc("/api/vref/diagnostics", s.handleVrefDiagnostics)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/scan", s.handleScan)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
}
