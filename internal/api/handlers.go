package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/verdin/raiz/internal/export"
	"github.com/verdin/raiz/internal/index"
	"github.com/verdin/raiz/internal/models"
	"github.com/verdin/raiz/internal/project"
)

// Handler holds API route handlers over the project service and the search
// index.
type Handler struct {
	svc *project.Service
	idx index.ProjectIndex
}

// NewHandler creates a new Handler. idx may be nil when the search index is
// disabled; search endpoints then return 503.
func NewHandler(svc *project.Service, idx index.ProjectIndex) *Handler {
	return &Handler{svc: svc, idx: idx}
}

// urlName extracts and decodes a {name} route parameter. Code and document
// names may contain spaces and other characters that arrive percent-encoded.
func urlName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocuments handles GET /api/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListDocuments()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{
		Documents: names,
		Folders:   h.svc.DocumentGroups(),
	})
}

// GetDocument handles GET /api/documents/{name}: opens the document and
// returns its text with the resolved highlight set.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	name := urlName(r)
	text, highlights, err := h.svc.OpenDocument(name)
	if err != nil {
		writeError(w, err)
		return
	}
	if highlights == nil {
		highlights = []*models.Fragment{}
	}
	writeJSON(w, http.StatusOK, DocumentResponse{Name: name, Text: text, Highlights: highlights})
}

// CloseDocument handles POST /api/documents/close: flushes the active
// document's highlights.
func (h *Handler) CloseDocument(w http.ResponseWriter, r *http.Request) {
	h.svc.CloseDocument()
	w.WriteHeader(http.StatusNoContent)
}

// MoveDocument handles PUT /api/documents/{name}/folder.
func (h *Handler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	var req MoveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.MoveDocument(urlName(r), req.Folder); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateFolder handles POST /api/folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	if err := h.svc.CreateFolder(req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// ListCodes handles GET /api/codes.
func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	codes := h.svc.Codes()
	if codes == nil {
		codes = []*models.Code{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": codes})
}

// CreateCode handles POST /api/codes.
func (h *Handler) CreateCode(w http.ResponseWriter, r *http.Request) {
	var req CreateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	c, err := h.svc.CreateCode(req.Name, req.Parent, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCode handles PATCH /api/codes/{name}: rename, reparent, and recolor
// in one request. The service validates the whole batch before applying it,
// so a rejected request never leaves a half-applied PATCH behind.
func (h *Handler) UpdateCode(w http.ResponseWriter, r *http.Request) {
	var req UpdateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	c, err := h.svc.UpdateCode(urlName(r), req.Name, req.Parent, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCode handles DELETE /api/codes/{name}.
func (h *Handler) DeleteCode(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCode(urlName(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddFragment handles POST /api/codes/{name}/fragments.
func (h *Handler) AddFragment(w http.ResponseWriter, r *http.Request) {
	var req AddFragmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Document == "" || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("document and text are required"))
		return
	}
	frag, err := h.svc.AddFragment(urlName(r), req.Document, req.Text, req.Start, req.End)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, frag)
}

// GetMemo handles GET /api/codes/{name}/memo.
func (h *Handler) GetMemo(w http.ResponseWriter, r *http.Request) {
	name := urlName(r)
	if _, err := h.svc.GetCode(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": h.svc.GetMemo(name)})
}

// SetMemo handles PUT /api/codes/{name}/memo.
func (h *Handler) SetMemo(w http.ResponseWriter, r *http.Request) {
	var req MemoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SetMemo(urlName(r), req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CodeBook handles GET /api/codebook.
func (h *Handler) CodeBook(w http.ResponseWriter, r *http.Request) {
	rows := h.svc.CodeBook()
	if rows == nil {
		rows = []models.CodeBookRow{}
	}
	writeJSON(w, http.StatusOK, CodeBookResponse{Rows: rows})
}

// ExportCodeBook handles GET /api/export/codebook.csv.
func (h *Handler) ExportCodeBook(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="codebook.csv"`)
	if err := export.CodeBookCSV(w, h.svc.CodeBook()); err != nil {
		// Headers are already out; nothing useful left to send.
		return
	}
}

// ExportFragments handles GET /api/export/fragments.csv.
func (h *Handler) ExportFragments(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="fragments.csv"`)
	if err := export.FragmentsCSV(w, h.svc.Codes()); err != nil {
		return
	}
}

// GetDiary handles GET /api/diary.
func (h *Handler) GetDiary(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.Diary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// SetDiary handles PUT /api/diary.
func (h *Handler) SetDiary(w http.ResponseWriter, r *http.Request) {
	var req DiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SaveDiary(req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search: full-text search over document text.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.idx == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index disabled"))
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.idx.Search(q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// SearchFragments handles GET /api/search/fragments: search over coded
// fragments by text or code name.
func (h *Handler) SearchFragments(w http.ResponseWriter, r *http.Request) {
	if h.idx == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index disabled"))
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.idx.SearchFragments(q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if hits == nil {
		hits = []index.FragmentHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// Save handles POST /api/save: explicit project save. The service saves on
// every mutation already; this exists for client-driven checkpoints.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Save(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
