package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdin/raiz/internal/index"
	"github.com/verdin/raiz/internal/project"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// idx may be nil when the search index is disabled.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *project.Service, idx index.ProjectIndex, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, idx)
	uh := NewUploadHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", uh.Upload)
	r.Post("/documents/close", h.CloseDocument)
	r.Get("/documents/{name}", h.GetDocument)
	r.Put("/documents/{name}/folder", h.MoveDocument)
	r.Post("/folders", h.CreateFolder)

	// Codes and fragments.
	r.Get("/codes", h.ListCodes)
	r.Post("/codes", h.CreateCode)
	r.Patch("/codes/{name}", h.UpdateCode)
	r.Delete("/codes/{name}", h.DeleteCode)
	r.Post("/codes/{name}/fragments", h.AddFragment)
	r.Get("/codes/{name}/memo", h.GetMemo)
	r.Put("/codes/{name}/memo", h.SetMemo)

	// Code book and exports.
	r.Get("/codebook", h.CodeBook)
	r.Get("/export/codebook.csv", h.ExportCodeBook)
	r.Get("/export/fragments.csv", h.ExportFragments)

	// Diary.
	r.Get("/diary", h.GetDiary)
	r.Put("/diary", h.SetDiary)

	// Search.
	r.Get("/search", h.Search)
	r.Get("/search/fragments", h.SearchFragments)

	// Explicit save checkpoint.
	r.Post("/save", h.Save)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
