package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/verdin/raiz/internal/project"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadHandler accepts source documents (txt, docx, pdf) for import.
type UploadHandler struct {
	svc *project.Service
}

// NewUploadHandler creates a handler that imports uploads into the project.
func NewUploadHandler(svc *project.Service) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal).
func safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

// Upload handles POST /api/documents (multipart/form-data, field "file").
// The optional "folder" form field places the imported document into a
// document folder. The upload is staged to a temp file so the importer can
// dispatch on the original extension.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	cleaned, err := safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	stageDir, err := os.MkdirTemp("", "raiz-upload-*")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to stage upload"))
		return
	}
	defer os.RemoveAll(stageDir)

	staged := filepath.Join(stageDir, cleaned)
	dst, err := os.Create(staged)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to stage upload"))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to stage upload"))
		return
	}
	dst.Close()

	name, err := h.svc.ImportDocument(staged, r.FormValue("folder"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"name": name,
		"size": header.Size,
	})
}
