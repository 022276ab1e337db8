package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/drafts.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

func (s *LibSQLStore) SaveDraft(ctx context.Context, d *Draft) error {
	if err := prepareDraft(d, nowUTC()); err != nil {
		return err
	}
	body, err := json.Marshal(d.Integration)
	if err != nil {
		return fmt.Errorf("marshal integration: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (id, name, dsl, namespace, integration, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, dsl=excluded.dsl, namespace=excluded.namespace,
		   integration=excluded.integration, updated_at=excluded.updated_at`,
		d.ID, d.Name, d.Integration.Metadata.DSL, d.Integration.Metadata.Namespace, string(body),
		d.CreatedAt.UnixNano(), d.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return storeError("save draft", err)
	}

	// An update keeps the original creation time.
	var created int64
	if err := s.db.QueryRowContext(ctx, `SELECT created_at FROM drafts WHERE id = ?`, d.ID).Scan(&created); err != nil {
		return storeError("read draft", err)
	}
	d.CreatedAt = time.Unix(0, created).UTC()
	return nil
}

func (s *LibSQLStore) GetDraft(ctx context.Context, id string) (*Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, integration, created_at, updated_at FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("draft", id)
	}
	if err != nil {
		return nil, storeError("get draft", err)
	}
	return d, nil
}

func (s *LibSQLStore) ListDrafts(ctx context.Context, filter DraftFilter) ([]*Draft, error) {
	var (
		where []string
		args  []any
	)
	if filter.Name != "" {
		where = append(where, "name = ?")
		args = append(args, filter.Name)
	}
	if filter.DSL != "" {
		where = append(where, "dsl = ?")
		args = append(args, filter.DSL)
	}
	if filter.Namespace != "" {
		where = append(where, "namespace = ?")
		args = append(args, filter.Namespace)
	}

	query := `SELECT id, name, integration, created_at, updated_at FROM drafts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("list drafts", err)
	}
	defer rows.Close()

	var out []*Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, storeError("scan draft", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list drafts", err)
	}
	return out, nil
}

func (s *LibSQLStore) DeleteDraft(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return storeError("delete draft", err)
	}
	return checkRowsAffected(res, "draft", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*Draft, error) {
	var (
		d                 Draft
		body              string
		created, modified int64
	)
	if err := row.Scan(&d.ID, &d.Name, &body, &created, &modified); err != nil {
		return nil, err
	}
	d.Integration = &schema.Integration{}
	if err := json.Unmarshal([]byte(body), d.Integration); err != nil {
		return nil, fmt.Errorf("unmarshal integration of draft %s: %w", d.ID, err)
	}
	d.CreatedAt = time.Unix(0, created).UTC()
	d.UpdatedAt = time.Unix(0, modified).UTC()
	return &d, nil
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

var _ Store = (*LibSQLStore)(nil)
