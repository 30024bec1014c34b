package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// ConnectPostgres opens a PostgreSQL connection with pool settings tuned for
// the storefront services.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// PostgresStore keeps every collection in a single documents table with a
// jsonb body, so equality filters compile to jsonb field lookups.
type PostgresStore struct {
	db       *sql.DB
	notifier Notifier
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (ps *PostgresStore) SetNotifier(n Notifier) {
	ps.notifier = n
}

// EnsureSchema creates the documents table if it does not exist yet.
func (ps *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection  TEXT        NOT NULL,
			id          TEXT        NOT NULL,
			data        JSONB       NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	_, err = ps.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_documents_collection
		ON documents (collection)`)
	return err
}

func (ps *PostgresStore) Create(ctx context.Context, collection string, data any) (string, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = ps.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)`,
		collection, id, body)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	ps.notify(Change{Collection: collection, DocID: id, Kind: ChangeCreated})
	return id, nil
}

func (ps *PostgresStore) Set(ctx context.Context, collection, id string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = ps.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, body)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	ps.notify(Change{Collection: collection, DocID: id, Kind: ChangeUpdated})
	return nil
}

func (ps *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	doc := Document{ID: id, Collection: collection}
	err := ps.db.QueryRowContext(ctx, `
		SELECT data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&doc.Data, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (ps *PostgresStore) UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	// jsonb || merges top-level keys, matching update-fields-merge semantics.
	res, err := ps.db.ExecContext(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`,
		collection, id, patch)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	ps.notify(Change{Collection: collection, DocID: id, Kind: ChangeUpdated})
	return nil
}

func (ps *PostgresStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1`
	args := []any{collection}

	for _, f := range filters {
		query += " AND data->>" + placeholder(len(args)+1) + " = " + placeholder(len(args)+2)
		args = append(args, f.Field, filterText(f.Value))
	}
	query += " ORDER BY created_at, id"

	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc := Document{Collection: collection}
		if err := rows.Scan(&doc.ID, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) notify(change Change) {
	if ps.notifier != nil {
		ps.notifier.Notify(change)
	}
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// filterText renders a filter value the way jsonb ->> renders it.
func filterText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
