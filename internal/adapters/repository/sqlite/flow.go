// Package sqlite stores flows in a SQLite table
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/serialization"
)

// DefaultTableName is the table used unless WithTableName overrides it
const DefaultTableName = "flows"

// Repository implements flow.Repository for SQLite
type Repository struct {
	db         *sql.DB
	serializer *serialization.Serializer
	tableName  string
	now        func() time.Time
}

// NewRepository creates a SQLite flow repository. A nil serializer stores
// snapshots as zstd-compressed MessagePack.
func NewRepository(db *sql.DB, serializer *serialization.Serializer) *Repository {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &Repository{
		db:         db,
		serializer: serializer,
		tableName:  DefaultTableName,
		now:        time.Now,
	}
}

// Open opens (or creates) the database file at path and ensures the table
// exists. ":memory:" is accepted and pins the pool to one connection.
func Open(ctx context.Context, path string, serializer *serialization.Serializer) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	r := NewRepository(db, serializer)
	if err := r.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// WithTableName allows overriding the default table name with validation.
// Only alphanumeric and underscore are permitted to prevent SQL injection via identifiers.
func (r *Repository) WithTableName(name string) *Repository {
	if isSafeIdent(name) {
		r.tableName = name
	}
	return r
}

// WithClock overrides the save timestamp source
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// Save upserts the snapshot. Overwriting an existing flow bumps its version.
func (r *Repository) Save(ctx context.Context, s *flow.Snapshot) (*flow.Record, error) {
	if err := flow.CheckSnapshot(s); err != nil {
		return nil, err
	}

	data, err := r.serializer.Serialize(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize flow: %w", err)
	}

	savedAt := r.now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, name, snapshot, version, saved_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			snapshot = excluded.snapshot,
			version = %[1]s.version + 1,
			saved_at = excluded.saved_at
		RETURNING version
	`, r.tableName)

	var version int64
	err = r.db.QueryRowContext(ctx, query, s.ID, s.Name, data, savedAt.UnixNano()).Scan(&version)
	if err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}

	return &flow.Record{
		ID:       s.ID,
		Name:     s.Name,
		Version:  version,
		Snapshot: s.Clone(),
		SavedAt:  savedAt,
	}, nil
}

// Load retrieves a flow by ID
func (r *Repository) Load(ctx context.Context, id string) (*flow.Record, error) {
	if id == "" {
		return nil, flow.ErrInvalidFlowID
	}

	query := fmt.Sprintf(`
		SELECT id, name, snapshot, version, saved_at
		FROM %s
		WHERE id = ?
	`, r.tableName)

	rec, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, flow.ErrFlowNotFound
		}
		return nil, fmt.Errorf("failed to load flow: %w", err)
	}
	return rec, nil
}

// List returns stored flows, most recently saved first
func (r *Repository) List(ctx context.Context, filter flow.ListFilter) ([]*flow.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query, args := r.buildListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	records := make([]*flow.Record, 0)
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	return records, nil
}

// Delete removes a flow by ID
func (r *Repository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return flow.ErrInvalidFlowID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.tableName)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return flow.ErrFlowNotFound
	}
	return nil
}

// CreateTables creates the flows table and its index
func (r *Repository) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			snapshot BLOB NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			saved_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_saved_at ON %[1]s (saved_at);
	`, r.tableName)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scan(row rowScanner) (*flow.Record, error) {
	var (
		rec     flow.Record
		data    []byte
		savedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.Name, &data, &rec.Version, &savedAt); err != nil {
		return nil, err
	}
	rec.SavedAt = time.Unix(0, savedAt).UTC()

	var snap flow.Snapshot
	if err := r.serializer.Deserialize(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to deserialize flow %s: %w", rec.ID, err)
	}
	rec.Snapshot = &snap
	return &rec, nil
}

// buildListQuery constructs the SQL query for listing flows
func (r *Repository) buildListQuery(filter flow.ListFilter) (string, []interface{}) {
	query := fmt.Sprintf("SELECT id, name, snapshot, version, saved_at FROM %s ORDER BY saved_at DESC, id ASC", r.tableName)
	args := make([]interface{}, 0, 2)

	// SQLite only accepts OFFSET after LIMIT; -1 means no limit.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ?"
		args = append(args, limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	return query, args
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
