package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/starmast/epub-edit/internal/edit"
	"github.com/starmast/epub-edit/internal/llm"
	"github.com/starmast/epub-edit/internal/run"
	"github.com/starmast/epub-edit/internal/store"
)

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /runs", s.handleStartRun)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("POST /runs/{id}/pause", s.handleRunControl("pause"))
	mux.HandleFunc("POST /runs/{id}/resume", s.handleRunControl("resume"))
	mux.HandleFunc("POST /runs/{id}/stop", s.handleRunControl("stop"))
	mux.HandleFunc("GET /projects/{project}/chapters/{num}/diff", s.handleChapterDiff)
	mux.HandleFunc("GET /projects/{project}/chapters/{num}/status", s.handleChapterStatus)
	mux.HandleFunc("POST /llm/test", s.handleLLMTest)
	mux.HandleFunc("GET /events", s.handleEvents)
}

// HealthResponse is the response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// StartRunRequest is the body for POST /runs.
type StartRunRequest struct {
	Project      string `json:"project"`
	StartChapter int    `json:"start_chapter"`
	EndChapter   int    `json:"end_chapter"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Project == "" {
		writeError(w, http.StatusBadRequest, "project is required")
		return
	}
	if req.StartChapter < 1 {
		req.StartChapter = 1
	}

	fs, err := store.NewFileStore(s.home, req.Project, s.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := s.configMgr.Get()
	runner := run.New(run.Config{
		Store:            fs,
		Gateway:          s.gateway,
		Notifier:         s.hub,
		Logger:           s.logger,
		StartChapter:     req.StartChapter,
		EndChapter:       req.EndChapter,
		Workers:          cfg.Processing.Workers,
		ChaptersPerBatch: cfg.Processing.ChaptersPerBatch,
		PromptStyle:      llm.PromptStyle(cfg.Processing.PromptStyle),
		MaxTokens:        cfg.LLM.MaxTokens,
		ContextWindow:    cfg.LLM.ContextWindow,
		SafetyBuffer:     cfg.Processing.SafetyBuffer,
		Counter:          s.counter,
	})

	if err := s.runs.Register(runner); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	// The run outlives the request; it stops via the control endpoints or
	// server shutdown.
	if err := runner.Start(context.WithoutCancel(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, runner.Status())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runs.Statuses())
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runner, err := s.runs.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runner.Status())
}

func (s *Server) handleRunControl(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runner, err := s.runs.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		switch action {
		case "pause":
			runner.Pause()
		case "resume":
			runner.Resume()
		case "stop":
			runner.Stop()
		}

		writeJSON(w, http.StatusOK, runner.Status())
	}
}

// ChapterDiffResponse is the response for the chapter diff endpoint.
type ChapterDiffResponse struct {
	Project string       `json:"project"`
	Chapter int          `json:"chapter"`
	Stats   edit.Stats   `json:"stats"`
	Chunks  []edit.Chunk `json:"chunks"`
}

func (s *Server) handleChapterDiff(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	num, err := strconv.Atoi(r.PathValue("num"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chapter number")
		return
	}

	fs, err := store.NewFileStore(s.home, project, s.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	original, err := fs.LoadOriginalText(run.ChapterRef{Number: num})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	result, err := fs.LoadEditResult(num)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	chunks, err := edit.Diff(original, result.EditedText)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ChapterDiffResponse{
		Project: project,
		Chapter: num,
		Stats:   result.Stats,
		Chunks:  chunks,
	})
}

func (s *Server) handleChapterStatus(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	num, err := strconv.Atoi(r.PathValue("num"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chapter number")
		return
	}

	fs, err := store.NewFileStore(s.home, project, s.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := fs.Status(num)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// LLMTestResponse is the response for the connection test endpoint.
type LLMTestResponse struct {
	OK       bool   `json:"ok"`
	Client   string `json:"client"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleLLMTest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	err := llm.TestConnection(r.Context(), s.gateway)

	resp := LLMTestResponse{
		OK:       err == nil,
		Client:   s.gateway.Name(),
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrChapterNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
