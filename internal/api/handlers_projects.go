package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zg0ul/portfolio/internal/excerpt"
	"github.com/zg0ul/portfolio/internal/project"
)

const (
	maxJSONBody  = 4 << 20
	summaryChars = 160
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := project.ListOptions{FeaturedOnly: q.Get("featured") == "true"}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		opts.Limit = n
	}

	projects, err := s.deps.Store.List(r.Context(), opts)
	if err != nil {
		s.storeError(w, err, "list projects")
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err, "get project")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var p project.Project
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		jsonError(w, "invalid project body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if p.ShortDescription == "" {
		p.ShortDescription = excerpt.Summarize(p.LongDescription, summaryChars)
	}

	created, err := s.deps.Store.Create(r.Context(), &p)
	if err != nil {
		s.storeError(w, err, "create project")
		return
	}
	s.log.Info("project created", "id", created.ID, "slug", created.Slug)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	const notFound = "Project not found or no changes made"
	id := chi.URLParam(r, "id")

	body, err := readBody(w, r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	patch, err := project.DecodePatch(body)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if patch.Empty() {
		jsonError(w, notFound, http.StatusNotFound)
		return
	}

	updated, err := s.deps.Store.Update(r.Context(), id, patch)
	if errors.Is(err, project.ErrNotFound) {
		jsonError(w, notFound, http.StatusNotFound)
		return
	}
	if err != nil {
		s.storeError(w, err, "update project")
		return
	}
	s.log.Info("project updated", "id", updated.ID, "slug", updated.Slug)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Store.Delete(r.Context(), id); err != nil {
		s.storeError(w, err, "delete project")
		return
	}
	s.log.Info("project deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Project deleted successfully",
	})
}

// storeError maps store errors onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, project.ErrInvalid):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, project.ErrNotFound):
		jsonError(w, "Project not found", http.StatusNotFound)
	case errors.Is(err, project.ErrConflict):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error(op+" failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
