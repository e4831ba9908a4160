package index

import "github.com/verdin/raiz/internal/models"

// ProjectIndex defines the search-index operations. Consumers should depend
// on this interface rather than the concrete *DB type to facilitate testing
// with mocks.
type ProjectIndex interface {
	UpsertDocument(name string, body []byte) error
	DeleteDocument(name string) error
	GetChecksum(name string) (string, error)
	AllChecksums() (map[string]string, error)
	ReplaceFragments(codes []*models.Code) error
	Search(query string, limit int) ([]SearchResult, error)
	SearchFragments(query string, limit int) ([]FragmentHit, error)
	Close() error
}

// Verify *DB satisfies ProjectIndex at compile time.
var _ ProjectIndex = (*DB)(nil)
