package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Document is one reference text of the knowledge base.
type Document struct {
	ID        string    `json:"id" yaml:"id"`
	Category  string    `json:"category" yaml:"category"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// CachedAnswer is a stored model answer keyed by kind and normalized query.
type CachedAnswer struct {
	Kind      string
	QueryKey  string
	Category  string
	Response  string
	CreatedAt time.Time
}

// UpsertDocument inserts or replaces a document by id.
func (s *Store) UpsertDocument(ctx context.Context, d Document) error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("document id is required")
	}
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("document category is required")
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, category, title, content, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   category = excluded.category, title = excluded.title,
		   content = excluded.content, updated_at = excluded.updated_at`,
		d.ID, d.Category, d.Title, d.Content, toMillis(d.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert document %s: %w", d.ID, err)
	}
	return nil
}

// ListDocuments returns up to limit documents of a category, most recently
// updated first.
func (s *Store) ListDocuments(ctx context.Context, category string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, title, content, updated_at FROM documents
		 WHERE category = ? ORDER BY updated_at DESC, id ASC LIMIT ?`, category, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			d         Document
			updatedAt int64
		)
		if err := rows.Scan(&d.ID, &d.Category, &d.Title, &d.Content, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.UpdatedAt = fromMillis(updatedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetCachedAnswer returns the cached answer for (kind, key) when it was
// stored at or after since.
func (s *Store) GetCachedAnswer(ctx context.Context, kind, key string, since time.Time) (CachedAnswer, error) {
	a := CachedAnswer{Kind: kind, QueryKey: key}
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT category, response, created_at FROM answer_cache
		 WHERE kind = ? AND query_key = ? AND created_at >= ?`, kind, key, toMillis(since),
	).Scan(&a.Category, &a.Response, &createdAt)
	if err != nil {
		return CachedAnswer{}, notFound(err, "get cached "+kind)
	}
	a.CreatedAt = fromMillis(createdAt)
	return a, nil
}

// PutCachedAnswer stores or refreshes a cached answer.
func (s *Store) PutCachedAnswer(ctx context.Context, a CachedAnswer) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO answer_cache (kind, query_key, category, response, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(kind, query_key) DO UPDATE SET
		   category = excluded.category, response = excluded.response, created_at = excluded.created_at`,
		a.Kind, a.QueryKey, a.Category, a.Response, toMillis(a.CreatedAt),
	); err != nil {
		return fmt.Errorf("put cached %s: %w", a.Kind, err)
	}
	return nil
}
