package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/codex-editor/codex-companion/internal/config"
	"github.com/codex-editor/codex-companion/internal/index"
	"github.com/codex-editor/codex-companion/internal/jobs"
	"github.com/codex-editor/codex-companion/internal/persistence"
	"github.com/codex-editor/codex-companion/internal/validation"
	"github.com/codex-editor/codex-companion/internal/vref"
	"github.com/codex-editor/codex-companion/pkg/icron"
)

type statusResponse struct {
	Workspace   string     `json:"workspace"`
	PendingJobs int        `json:"pending_jobs"`
	SourceDocs  int        `json:"source_docs"`
	TargetDocs  int        `json:"target_docs"`
	ScanCron    string     `json:"scan_cron,omitempty"`
	LastScanDue *time.Time `json:"last_scan_due,omitempty"`
	NextScanDue *time.Time `json:"next_scan_due,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := statusResponse{
		Workspace:   s.indexer.Workspace(),
		PendingJobs: s.queue.PendingCount(),
		SourceDocs:  s.search.Len(index.SideSource),
		TargetDocs:  s.search.Len(index.SideTarget),
		ScanCron:    s.scanCron,
	}
	if s.scanCron != "" {
		if info, err := icron.GetTriggerInfo(s.scanCron, time.Now()); err == nil {
			resp.LastScanDue = &info.Last
			resp.NextScanDue = &info.Next
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type workspaceRequest struct {
	Dir string `json:"dir"`
}

func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, workspaceRequest{Dir: s.indexer.Workspace()})
	case http.MethodPut:
		var req workspaceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.Dir == "" {
			writeError(w, http.StatusBadRequest, "dir is required")
			return
		}
		s.indexer.SetWorkspace(req.Dir)

		enqueued := 0
		if s.scan != nil {
			n, err := s.scan(r.Context(), "workspace")
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			enqueued = n
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"dir":      req.Dir,
			"enqueued": enqueued,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	side := index.Side(r.URL.Query().Get("side"))
	if side == "" {
		side = index.SideSource
	}
	if !side.Valid() {
		writeError(w, http.StatusBadRequest, "side must be source or target")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, s.search.Search(query, side, limit))
}

type spellCheckResponse struct {
	Word             string   `json:"word"`
	CorrectionNeeded bool     `json:"correction_needed"`
	Suggestions      []string `json:"suggestions"`
}

func (s *Server) handleSpellCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.checker == nil {
		writeError(w, http.StatusNotImplemented, "dictionary is not configured")
		return
	}

	word := r.URL.Query().Get("word")
	if word == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}

	resp := spellCheckResponse{
		Word:             word,
		CorrectionNeeded: s.checker.IsCorrectionNeeded(word),
		Suggestions:      []string{},
	}
	if resp.CorrectionNeeded {
		resp.Suggestions = s.checker.Suggest(word)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSpellComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.checker == nil {
		writeError(w, http.StatusNotImplemented, "dictionary is not configured")
		return
	}

	fragment := r.URL.Query().Get("fragment")
	if fragment == "" {
		writeError(w, http.StatusBadRequest, "fragment is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fragment":    fragment,
		"completions": s.checker.Complete(fragment),
	})
}

type dictionaryRequest struct {
	Word string `json:"word"`
}

func (s *Server) handleDictionary(w http.ResponseWriter, r *http.Request) {
	if s.dictionary == nil {
		writeError(w, http.StatusNotImplemented, "dictionary is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.dictionary.Entries())
	case http.MethodPost:
		var req dictionaryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.Word == "" {
			writeError(w, http.StatusBadRequest, "word is required")
			return
		}
		if err := s.dictionary.Define(req.Word); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
	case http.MethodDelete:
		word := r.URL.Query().Get("word")
		if word == "" {
			writeError(w, http.StatusBadRequest, "word is required")
			return
		}
		if err := s.dictionary.Remove(word); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleValidationLevels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.reporter == nil {
		writeError(w, http.StatusNotImplemented, "validation reporting is not configured")
		return
	}

	document := r.URL.Query().Get("document")
	track := validation.Track(r.URL.Query().Get("track"))
	if track == "" {
		track = validation.TrackText
	}
	if !track.Valid() {
		writeError(w, http.StatusBadRequest, "track must be text or audio")
		return
	}

	report, err := s.reporter.Report(r.Context(), document, track)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type validationEntryRequest struct {
	Document string `json:"document"`
	CellID   string `json:"cell_id"`
	Track    string `json:"track"`
	Username string `json:"username"`
}

func (req *validationEntryRequest) validate() string {
	if req.Document == "" {
		return "document is required"
	}
	if req.CellID == "" {
		return "cell_id is required"
	}
	if req.Track == "" {
		req.Track = string(validation.TrackText)
	}
	if !validation.Track(req.Track).Valid() {
		return "track must be text or audio"
	}
	if req.Username == "" {
		return "username is required"
	}
	return ""
}

func (s *Server) handleValidationEntries(w http.ResponseWriter, r *http.Request) {
	if s.validations == nil {
		writeError(w, http.StatusNotImplemented, "validation store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		document := r.URL.Query().Get("document")
		cellID := r.URL.Query().Get("cell_id")
		if document == "" || cellID == "" {
			writeError(w, http.StatusBadRequest, "document and cell_id are required")
			return
		}
		track := r.URL.Query().Get("track")
		if track == "" {
			track = string(validation.TrackText)
		}
		if !validation.Track(track).Valid() {
			writeError(w, http.StatusBadRequest, "track must be text or audio")
			return
		}
		entries, err := s.validations.Validations(r.Context(), document, cellID, track)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		var req validationEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		now := time.Now().UnixMilli()
		err := s.validations.UpsertValidation(r.Context(), persistenceRecord(req, now))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
	case http.MethodDelete:
		var req validationEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		err := s.validations.RetractValidation(r.Context(), req.Document, req.CellID, req.Track, req.Username, time.Now().UnixMilli())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func persistenceRecord(req validationEntryRequest, nowMs int64) persistence.ValidationRecord {
	return persistence.ValidationRecord{
		Document:  req.Document,
		CellID:    req.CellID,
		Track:     req.Track,
		Username:  req.Username,
		CreatedAt: nowMs,
		UpdatedAt: nowMs,
	}
}

type diagnosticsRequest struct {
	Lines []string `json:"lines"`
}

func (s *Server) handleVrefDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req diagnosticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	writeJSON(w, http.StatusOK, vref.Validate(req.Lines))
}

type enqueueJobRequest struct {
	Source    string `json:"source"`
	DedupeKey string `json:"dedupe_key"`
	FilePath  string `json:"file_path"`
	FileKind  string `json:"file_kind"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.queue.List())
	case http.MethodPost:
		var req enqueueJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.Source == "" {
			req.Source = "manual"
		}
		if req.FilePath == "" {
			writeError(w, http.StatusBadRequest, "file_path is required")
			return
		}
		kind := jobs.FileKind(req.FileKind)
		if kind != jobs.FileKindCodex && kind != jobs.FileKindBible {
			writeError(w, http.StatusBadRequest, "file_kind must be codex or bible")
			return
		}
		if req.DedupeKey == "" {
			req.DedupeKey = req.FilePath
		}

		job, created := s.queue.Enqueue(jobs.EnqueueRequest{
			Source:    req.Source,
			DedupeKey: req.DedupeKey,
			Payload: jobs.JobPayload{
				FilePath:  req.FilePath,
				FileKind:  kind,
				Workspace: s.indexer.Workspace(),
			},
		})
		code := http.StatusCreated
		if !created {
			code = http.StatusOK
		}
		writeJSON(w, code, map[string]any{
			"created": created,
			"job":     job,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.scan == nil {
		writeError(w, http.StatusNotImplemented, "scan trigger is not configured")
		return
	}

	enqueued, err := s.scan(r.Context(), "api")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"ok":       true,
		"enqueued": enqueued,
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.settings.GetRuntimeSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req config.RuntimeSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := s.settings.UpdateRuntimeSettings(req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if s.apply != nil {
			if err := s.apply(saved); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
