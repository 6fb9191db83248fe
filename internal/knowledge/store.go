package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Store is the SQLite-backed vector store. Documents are embedded once
// on import; search is a brute-force cosine ranking over the scope's
// stored vectors. It satisfies Searcher.
type Store struct {
	db *sql.DB
}

// NewStore prepares the documents table on the shared database handle.
func NewStore(handle *sql.DB) (*Store, error) {
	s := &Store{db: handle}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("knowledge: migration: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			scope_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			content    TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			embedding  BLOB NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents(scope_id);
	`)
	return err
}

// AddDocumentParams holds the input for importing a document.
type AddDocumentParams struct {
	ScopeID   string
	Name      string
	Content   string
	Embedding []float32
}

// AddDocument stores a document and its vector in a scope.
func (s *Store) AddDocument(ctx context.Context, params AddDocumentParams) (Document, error) {
	doc := Document{
		ID:        uuid.NewString(),
		ScopeID:   params.ScopeID,
		Name:      params.Name,
		Content:   params.Content,
		SizeBytes: int64(len(params.Content)),
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, scope_id, name, content, size_bytes, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.ScopeID, doc.Name, doc.Content, doc.SizeBytes,
		encodeVector(params.Embedding), doc.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Document{}, fmt.Errorf("knowledge: add document: %w", err)
	}
	return doc, nil
}

// GetDocument loads a document by id.
func (s *Store) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var doc Document
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scope_id, name, content, size_bytes, created_at
		FROM documents WHERE id = ?
	`, documentID).Scan(&doc.ID, &doc.ScopeID, &doc.Name, &doc.Content, &doc.SizeBytes, &createdAt)
	if err == sql.ErrNoRows {
		return Document{}, fmt.Errorf("knowledge: document %q not found", documentID)
	}
	if err != nil {
		return Document{}, fmt.Errorf("knowledge: get document: %w", err)
	}
	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		doc.CreatedAt = t
	}
	return doc, nil
}

// DeleteDocument removes a document and returns it, so the caller can
// report the freed bytes and invalidate the scope's cached searches.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (Document, error) {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, documentID); err != nil {
		return Document{}, fmt.Errorf("knowledge: delete document: %w", err)
	}
	return doc, nil
}

// CountDocuments returns how many documents a scope holds.
func (s *Store) CountDocuments(ctx context.Context, scopeID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE scope_id = ?`, scopeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("knowledge: count documents: %w", err)
	}
	return n, nil
}

// Search ranks the scope's documents by cosine similarity to the query
// vector and returns the top k.
func (s *Store) Search(ctx context.Context, vector []float32, scopeID string, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, content, embedding FROM documents WHERE scope_id = ?
	`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("knowledge: search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			id, name, content string
			blob              []byte
		)
		if err := rows.Scan(&id, &name, &content, &blob); err != nil {
			return nil, fmt.Errorf("knowledge: scan document: %w", err)
		}
		results = append(results, Result{
			DocumentID: id,
			Name:       name,
			Score:      cosine(vector, decodeVector(blob)),
			Snippet:    snippet(content),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: search rows: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

const snippetLen = 200

func snippet(content string) string {
	if len(content) <= snippetLen {
		return content
	}
	// Back up to a rune boundary so a multi-byte character straddling
	// the cut is dropped whole rather than split.
	cut := snippetLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "…"
}

// ─── Vector codec ────────────────────────────────────────────────────────────

// encodeVector packs a vector as little-endian float32 bits.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
