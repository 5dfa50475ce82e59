package search

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PgSearch is the fallback searcher over the documents table. Plain
// ILIKE over the JSONB fields: slower and less clever than
// Meilisearch, but always available while Postgres is.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	pattern := "%" + q.Text + "%"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, COALESCE(fields->>'title', ''), LEFT(COALESCE(fields->>'content', ''), 200),
		       COUNT(*) OVER ()
		FROM documents
		WHERE collection = 'posts'
		  AND (fields->>'title' ILIKE $1 OR fields->>'content' ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, pattern, limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pg search: %w", err)
	}
	defer rows.Close()

	var results []Result
	total := 0
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &total); err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search results: %w", err)
	}
	return results, total, nil
}
