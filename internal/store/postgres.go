package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohamedzameer33/blogapp/internal/util"
)

// PostgresStore keeps every document in a single table keyed by
// (collection, id) with a JSONB body. Collections are open-ended so a
// new sub-collection path needs no schema change.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, path, id string) (Document, error) {
	const query = `
		SELECT id, fields, created_at, updated_at
		FROM documents
		WHERE collection=$1 AND id=$2
	`
	row := s.db.QueryRowContext(ctx, query, path, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, wrapStoreErr("get document", err)
	}
	return doc, nil
}

func (s *PostgresStore) List(ctx context.Context, path, orderKey string, descending bool) ([]Document, error) {
	if orderKey != "createdAt" {
		return nil, fmt.Errorf("unsupported order key %q", orderKey)
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT id, fields, created_at, updated_at
		FROM documents
		WHERE collection=$1
		ORDER BY created_at %s, id %s
	`, direction, direction)

	rows, err := s.db.QueryContext(ctx, query, path)
	if err != nil {
		return nil, wrapStoreErr("list documents", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("iterate documents", err)
	}
	return items, nil
}

func (s *PostgresStore) Create(ctx context.Context, path string, fields Fields) (string, error) {
	id := util.NewID("")
	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3)
	`, path, id, body)
	if err != nil {
		return "", wrapStoreErr("insert document", err)
	}
	return id, nil
}

func (s *PostgresStore) Set(ctx context.Context, path, id string, fields Fields) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET fields = documents.fields || EXCLUDED.fields, updated_at = NOW()
	`, path, id, body)
	if err != nil {
		return wrapStoreErr("set document", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, path, id string, fields Fields) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	// JSONB || merges top-level keys: unspecified fields survive.
	result, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET fields = fields || $3::jsonb, updated_at = NOW()
		WHERE collection=$1 AND id=$2
	`, path, id, body)
	if err != nil {
		return wrapStoreErr("update document", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, path, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection=$1 AND id=$2
	`, path, id)
	if err != nil {
		return wrapStoreErr("delete document", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc       Document
		body      []byte
		updatedAt sql.NullTime
	)
	if err := row.Scan(&doc.ID, &body, &doc.CreatedAt, &updatedAt); err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(body, &doc.Fields); err != nil {
		return Document{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	if doc.Fields == nil {
		doc.Fields = Fields{}
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		doc.UpdatedAt = &t
	}
	return doc, nil
}

// wrapStoreErr classifies backend failures as ErrUnavailable so callers
// can map them to the user-visible taxonomy without knowing about
// database/sql.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isConnectivityErr(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectivityErr(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}
