package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/auraforge/orchestrator/internal/domain"
	"github.com/auraforge/orchestrator/internal/pipeline"
	"github.com/auraforge/orchestrator/internal/registry"
	"github.com/auraforge/orchestrator/internal/storage"
)

type handlers struct {
	pipeline *pipeline.Pipeline
	registry *registry.Registry
	store    storage.Store
	logger   *slog.Logger
}

// errorBody is the wire shape for all error responses.
type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Param   string `json:"param,omitempty"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	oe := domain.AsOrchestrationError(err)
	var body errorBody
	body.Error.Type = string(oe.Type)
	body.Error.Message = oe.Message
	body.Error.Param = oe.Param

	writeJSON(w, oe.HTTPStatusCode(), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": h.registry.List()})
}

func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.ErrInvalidRequest("malformed request body"))
		return
	}

	res, err := h.pipeline.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	AddLogField(r.Context(), "project_id", res.ProjectID)
	writeJSON(w, http.StatusCreated, res)
}

func (h *handlers) regenerate(w http.ResponseWriter, r *http.Request) {
	res, err := h.pipeline.Regenerate(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) sync(w http.ResponseWriter, r *http.Request) {
	project, err := h.pipeline.Sync(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *handlers) deploy(w http.ResponseWriter, r *http.Request) {
	res, err := h.pipeline.Deploy(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) getProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *handlers) listFiles(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := h.store.GetProject(r.Context(), projectID); err != nil {
		writeError(w, r, err)
		return
	}
	files, err := h.store.ListFiles(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (h *handlers) listTraces(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := h.store.GetProject(r.Context(), projectID); err != nil {
		writeError(w, r, err)
		return
	}
	traces, err := h.store.ListTraces(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"traces": traces})
}
