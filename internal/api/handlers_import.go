package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zg0ul/portfolio/internal/importer"
)

// handleImportProject turns an uploaded document into a new project.
func (s *Server) handleImportProject(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !importer.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	draft, err := importer.Import(bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, "import failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	p, err := draft.Project()
	if err != nil {
		s.storeError(w, err, "import document")
		return
	}
	if v := r.FormValue("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "featured must be true or false", http.StatusBadRequest)
			return
		}
		p.Featured = featured
	}

	created, err := s.deps.Store.Create(r.Context(), p)
	if err != nil {
		s.storeError(w, err, "create imported project")
		return
	}
	s.log.Info("project imported", "id", created.ID, "slug", created.Slug, "filename", filename)
	writeJSON(w, http.StatusCreated, created)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
