package index

import (
	"fmt"
	"time"

	"github.com/verdin/raiz/internal/models"
	"github.com/verdin/raiz/internal/storage"
)

// SearchResult represents one document search hit.
type SearchResult struct {
	Document string `json:"document"`
	Snippet  string `json:"snippet"`
}

// FragmentHit represents one coded-fragment search hit.
type FragmentHit struct {
	Code     string `json:"code"`
	Document string `json:"document"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Text     string `json:"text"`
}

// UpsertDocument inserts or replaces a document and its FTS entry within a
// transaction. The checksum is computed from body, matching what Sync reads
// from disk.
func (db *DB) UpsertDocument(name string, body []byte) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (name, checksum, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, name, storage.Checksum(body), string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, name, string(body)); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, and its fragments.
func (db *DB) DeleteDocument(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, name)
	_, _ = tx.Exec(`DELETE FROM fragments WHERE document = ?`, name)
	_, _ = tx.Exec(`DELETE FROM documents WHERE name = ?`, name)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if
// not found.
func (db *DB) GetChecksum(name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE name = ?`, name).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// ReplaceFragments rewrites the fragments table from the code forest. Called
// on every project save; fragments are few enough that a full rewrite beats
// tracking per-fragment deltas.
func (db *DB) ReplaceFragments(codes []*models.Code) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM fragments`)
	stmt, err := tx.Prepare(`INSERT INTO fragments (code, document, start_pos, end_pos, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare fragment insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range codes {
		for _, f := range c.Fragments {
			if _, err := stmt.Exec(c.Name, f.Document, f.Start, f.End, f.Text); err != nil {
				return fmt.Errorf("index: insert fragment: %w", err)
			}
		}
	}

	return tx.Commit()
}

// SearchFragments finds coded fragments whose text or code name matches the
// query. Fragment text is short, so a LIKE scan suffices in both build
// variants.
func (db *DB) SearchFragments(query string, limit int) ([]FragmentHit, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT code, document, start_pos, end_pos, text
		FROM fragments
		WHERE text LIKE ? OR code LIKE ?
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search fragments: %w", err)
	}
	defer rows.Close()

	var out []FragmentHit
	for rows.Next() {
		var h FragmentHit
		if err := rows.Scan(&h.Code, &h.Document, &h.Start, &h.End, &h.Text); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
