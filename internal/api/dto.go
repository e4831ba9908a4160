package api

import "github.com/verdin/raiz/internal/models"

// CreateCodeRequest is the request body for creating a code.
type CreateCodeRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
	Color  string `json:"color,omitempty"`
}

// UpdateCodeRequest carries the mutable parts of a code. Pointer fields
// distinguish "not provided" from "set to empty" (a nil Parent leaves the
// parent alone; an empty string moves the code to root).
type UpdateCodeRequest struct {
	Name   *string `json:"name,omitempty"`
	Parent *string `json:"parent,omitempty"`
	Color  *string `json:"color,omitempty"`
}

// AddFragmentRequest is the request body for coding a text selection.
type AddFragmentRequest struct {
	Document string `json:"document"`
	Text     string `json:"text"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// MemoRequest is the request body for setting a code memo.
type MemoRequest struct {
	Text string `json:"text"`
}

// DiaryRequest is the request body for replacing the coding diary.
type DiaryRequest struct {
	Text string `json:"text"`
}

// MoveDocumentRequest is the request body for moving a document to a folder.
type MoveDocumentRequest struct {
	Folder string `json:"folder"`
}

// CreateFolderRequest is the request body for creating a document folder.
type CreateFolderRequest struct {
	Name string `json:"name"`
}

// DocumentResponse is a single opened document: its text plus the resolved
// highlight set.
type DocumentResponse struct {
	Name       string             `json:"name"`
	Text       string             `json:"text"`
	Highlights []*models.Fragment `json:"highlights"`
}

// DocumentListResponse wraps the document listing with its folder grouping.
type DocumentListResponse struct {
	Documents []string            `json:"documents"`
	Folders   map[string][]string `json:"folders"`
}

// CodeBookResponse wraps the flattened code book.
type CodeBookResponse struct {
	Rows []models.CodeBookRow `json:"rows"`
}
