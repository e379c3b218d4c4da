package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codex-editor/codex-companion/internal/config"
	"github.com/codex-editor/codex-companion/internal/index"
	"github.com/codex-editor/codex-companion/internal/jobs"
	"github.com/codex-editor/codex-companion/internal/persistence"
	"github.com/codex-editor/codex-companion/internal/service"
	"github.com/codex-editor/codex-companion/internal/spell"
	"github.com/codex-editor/codex-companion/internal/validation"
	"github.com/codex-editor/codex-companion/internal/vref"
)

type fakeSettingsStore struct {
	current   config.RuntimeSettings
	updateErr error
}

func (f *fakeSettingsStore) GetRuntimeSettings() (config.RuntimeSettings, error) {
	return f.current, nil
}

func (f *fakeSettingsStore) UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error) {
	if f.updateErr != nil {
		return config.RuntimeSettings{}, f.updateErr
	}
	f.current = next
	return f.current, nil
}

type fakeValidationStore struct {
	upserted  []persistence.ValidationRecord
	retracted []string
	entries   []validation.Entry
}

func (f *fakeValidationStore) UpsertValidation(_ context.Context, record persistence.ValidationRecord) error {
	f.upserted = append(f.upserted, record)
	return nil
}

func (f *fakeValidationStore) RetractValidation(_ context.Context, document, cellID, track, username string, _ int64) error {
	f.retracted = append(f.retracted, document+"|"+cellID+"|"+track+"|"+username)
	return nil
}

func (f *fakeValidationStore) Validations(_ context.Context, _, _, _ string) ([]validation.Entry, error) {
	return f.entries, nil
}

type fakeCountSource struct {
	counts []int
	total  int
}

func (f *fakeCountSource) ActiveCounts(_ context.Context, _ string, _ validation.Track) ([]int, error) {
	return f.counts, nil
}

func (f *fakeCountSource) CellCount(_ context.Context, _ string) (int, error) {
	return f.total, nil
}

type serverDeps struct {
	queue       *jobs.Queue
	indexer     *service.Indexer
	search      *index.Index
	validations *fakeValidationStore
	settings    *fakeSettingsStore
}

type noopStore struct{}

func (noopStore) ReplaceDocumentCells(context.Context, string, []persistence.CellRecord) error {
	return nil
}
func (noopStore) UpsertValidation(context.Context, persistence.ValidationRecord) error { return nil }
func (noopStore) UpsertSearchDocument(context.Context, index.Document) error          { return nil }
func (noopStore) LoadSearchDocuments(context.Context) ([]index.Document, error)       { return nil, nil }

func newTestServer(t *testing.T) (*Server, *serverDeps) {
	t.Helper()

	deps := &serverDeps{
		queue:       jobs.NewQueue(1, nil),
		search:      index.New(),
		validations: &fakeValidationStore{},
		settings: &fakeSettingsStore{current: config.RuntimeSettings{
			ScanCron:       "@every 10m",
			MaxValidations: 3,
			TargetLanguage: "en",
			VerseChunkSize: 4,
		}},
	}
	deps.indexer = service.NewIndexer(noopStore{}, deps.search, t.TempDir(), 4, "en")

	dictionary, err := spell.OpenDictionary(filepath.Join(t.TempDir(), spell.DictionaryFileName))
	require.NoError(t, err)
	require.NoError(t, dictionary.Define("hello"))
	require.NoError(t, dictionary.Define("help"))

	srv := NewServer(deps.indexer, deps.queue, deps.search,
		WithReporter(validation.NewReporter(&fakeCountSource{counts: []int{0, 1, 2, 3}, total: 4}, 3)),
		WithValidationStore(deps.validations),
		WithDictionary(dictionary),
		WithRuntimeSettingsStore(deps.settings),
		WithScanTrigger(func(context.Context, string) (int, error) { return 0, nil }, "@every 10m"),
	)
	return srv, deps
}

func doRequest(srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Status(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.search.Upsert(index.Document{Ref: "GEN 1:1", Text: "in the beginning", Side: index.SideSource})

	rec := doRequest(srv, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, deps.indexer.Workspace(), resp.Workspace)
	require.Equal(t, 1, resp.SourceDocs)
	require.Equal(t, 0, resp.TargetDocs)
	require.NotNil(t, resp.NextScanDue)
}

func TestServer_WorkspaceRoundTrip(t *testing.T) {
	srv, deps := newTestServer(t)

	next := t.TempDir()
	body, _ := json.Marshal(workspaceRequest{Dir: next})
	rec := doRequest(srv, http.MethodPut, "/api/workspace", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, next, deps.indexer.Workspace())

	rec = doRequest(srv, http.MethodGet, "/api/workspace", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp workspaceRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, next, resp.Dir)
}

func TestServer_WorkspaceRequiresDir(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPut, "/api/workspace", []byte(`{}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Search(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.search.Upsert(index.Document{Ref: "GEN 1:1", Text: "in the beginning god created", Side: index.SideSource})
	deps.search.Upsert(index.Document{Ref: "GEN 1:2", Text: "the earth was without form", Side: index.SideSource})

	rec := doRequest(srv, http.MethodGet, "/api/search?q=beginning&side=source", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []index.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	require.Equal(t, "GEN 1:1", results[0].Ref)
}

func TestServer_SearchRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/api/search", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SearchRejectsBadSide(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/api/search?q=x&side=middle", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SpellCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/spell/check?word=hello", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var known spellCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &known))
	require.False(t, known.CorrectionNeeded)

	rec = doRequest(srv, http.MethodGet, "/api/spell/check?word=helo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unknown spellCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unknown))
	require.True(t, unknown.CorrectionNeeded)
	require.NotEmpty(t, unknown.Suggestions)
}

func TestServer_SpellComplete(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/spell/complete?fragment=hel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Completions []string `json:"completions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Completions, "p")
	require.Contains(t, resp.Completions, "lo")
}

func TestServer_DictionaryLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/dictionary", []byte(`{"word":"shalom"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/dictionary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []spell.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)

	rec = doRequest(srv, http.MethodDelete, "/api/dictionary?word=shalom", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/dictionary", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
}

func TestServer_ValidationLevels(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/validation/levels?document=GEN.codex&track=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report validation.LevelReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, validation.TrackText, report.Track)
	require.Equal(t, []float64{75, 50, 25}, report.Levels)
}

func TestServer_ValidationLevelsRejectsBadTrack(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/api/validation/levels?track=video", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ValidationEntryAttestAndRetract(t *testing.T) {
	srv, deps := newTestServer(t)

	body := []byte(`{"document":"GEN.codex","cell_id":"GEN 1:1","track":"audio","username":"alice"}`)
	rec := doRequest(srv, http.MethodPost, "/api/validation/entries", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, deps.validations.upserted, 1)
	require.Equal(t, "audio", deps.validations.upserted[0].Track)
	require.NotZero(t, deps.validations.upserted[0].CreatedAt)

	rec = doRequest(srv, http.MethodDelete, "/api/validation/entries", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"GEN.codex|GEN 1:1|audio|alice"}, deps.validations.retracted)
}

func TestServer_ValidationEntryRequiresUsername(t *testing.T) {
	srv, _ := newTestServer(t)
	body := []byte(`{"document":"GEN.codex","cell_id":"GEN 1:1"}`)
	rec := doRequest(srv, http.MethodPost, "/api/validation/entries", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_VrefDiagnostics(t *testing.T) {
	srv, _ := newTestServer(t)

	body := []byte(`{"lines":["GEN 1:1 In the beginning","GEN 1:3 And God said"]}`)
	rec := doRequest(srv, http.MethodPost, "/api/vref/diagnostics", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var diags []vref.Diagnostic
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diags))
	require.Len(t, diags, 1)
	require.Contains(t, diags[0].Message, "is missing after 1:1")
}

func TestServer_CreateJob(t *testing.T) {
	srv, _ := newTestServer(t)

	body := []byte(`{"file_path":"/tmp/GEN.codex","file_kind":"codex"}`)
	rec := doRequest(srv, http.MethodPost, "/api/jobs", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var ret struct {
		Created bool           `json:"created"`
		Job     *jobs.IndexJob `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ret))
	require.True(t, ret.Created)
	require.Equal(t, "/tmp/GEN.codex", ret.Job.DedupeKey)
	require.Equal(t, jobs.FileKindCodex, ret.Job.Payload.FileKind)

	// Same file while pending dedupes to the existing job
	rec = doRequest(srv, http.MethodPost, "/api/jobs", body)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CreateJobRejectsBadKind(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/api/jobs", []byte(`{"file_path":"/tmp/a.srt","file_kind":"srt"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ScanTrigger(t *testing.T) {
	triggered := 0
	srv, _ := newTestServer(t)
	srv.scan = func(context.Context, string) (int, error) {
		triggered++
		return 5, nil
	}

	rec := doRequest(srv, http.MethodPost, "/api/scan", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, triggered)

	var resp struct {
		Enqueued int `json:"enqueued"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 5, resp.Enqueued)
}

func TestServer_SettingsRoundTrip(t *testing.T) {
	srv, deps := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	applied := 0
	srv.apply = func(config.RuntimeSettings) error {
		applied++
		return nil
	}

	body := []byte(`{"scan_cron":"@every 5m","max_validations":4,"target_language":"fr","verse_chunk_size":2}`)
	rec = doRequest(srv, http.MethodPut, "/api/settings", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, applied)
	require.Equal(t, "@every 5m", deps.settings.current.ScanCron)
	require.Equal(t, 4, deps.settings.current.MaxValidations)
}

func TestServer_SettingsRejectsInvalid(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPut, "/api/settings", []byte(`{"scan_cron":"not a cron"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SettingsUpdateFailure(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.settings.updateErr = errors.New("disk full")

	body := []byte(`{"scan_cron":"@every 5m","max_validations":3,"target_language":"en","verse_chunk_size":4}`)
	rec := doRequest(srv, http.MethodPut, "/api/settings", body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
