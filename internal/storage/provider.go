// Package storage defines the project-directory file-system abstraction.
package storage

import "github.com/verdin/raiz/internal/models"

// Provider is the interface for project file operations. All paths are
// relative to the project root.
type Provider interface {
	// List returns metadata for every .txt file under dir.
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Root returns the absolute project root directory.
	Root() string
}
