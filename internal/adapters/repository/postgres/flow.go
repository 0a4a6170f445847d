// Package postgres stores flows in PostgreSQL through a pgx pool
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/pkg/serialization"
)

// ErrNoPool is returned when the repository has no connection pool
var ErrNoPool = errors.New("postgres pool is not configured")

// Repository implements flow.Repository for PostgreSQL
type Repository struct {
	pool       *pgxpool.Pool
	serializer *serialization.Serializer
	tableName  string
	now        func() time.Time
}

// NewRepository creates a PostgreSQL flow repository
func NewRepository(pool *pgxpool.Pool, serializer *serialization.Serializer) *Repository {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &Repository{
		pool:       pool,
		serializer: serializer,
		tableName:  "flows",
		now:        time.Now,
	}
}

// Connect opens a pool for databaseURL, pings it and ensures the table exists
func Connect(ctx context.Context, databaseURL string, serializer *serialization.Serializer) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	r := NewRepository(pool, serializer)
	if err := r.CreateTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// Save upserts the snapshot. Overwriting an existing flow bumps its version.
func (r *Repository) Save(ctx context.Context, s *flow.Snapshot) (*flow.Record, error) {
	if err := flow.CheckSnapshot(s); err != nil {
		return nil, err
	}
	if r.pool == nil {
		return nil, ErrNoPool
	}

	data, err := r.serializer.Serialize(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize flow: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, name, snapshot, version, saved_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			snapshot = EXCLUDED.snapshot,
			version = %[1]s.version + 1,
			saved_at = EXCLUDED.saved_at
		RETURNING version, saved_at
	`, r.tableName)

	rec := &flow.Record{ID: s.ID, Name: s.Name, Snapshot: s.Clone()}
	err = r.pool.QueryRow(ctx, query, s.ID, s.Name, data, r.now().UTC()).Scan(&rec.Version, &rec.SavedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save flow: %w", err)
	}
	return rec, nil
}

// Load retrieves a flow by ID
func (r *Repository) Load(ctx context.Context, id string) (*flow.Record, error) {
	if id == "" {
		return nil, flow.ErrInvalidFlowID
	}
	if r.pool == nil {
		return nil, ErrNoPool
	}

	query := fmt.Sprintf(`
		SELECT id, name, snapshot, version, saved_at
		FROM %s
		WHERE id = $1
	`, r.tableName)

	rec, err := r.scan(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	if r.pool == nil {
		return nil, ErrNoPool
	}
	query, args := r.buildListQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
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
	if r.pool == nil {
		return ErrNoPool
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.tableName)
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return flow.ErrFlowNotFound
	}
	return nil
}

// CreateTables creates the flows table and its index
func (r *Repository) CreateTables(ctx context.Context) error {
	if r.pool == nil {
		return ErrNoPool
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id VARCHAR(255) PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			snapshot BYTEA NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			saved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_%[1]s_saved_at ON %[1]s (saved_at);
	`, r.tableName)

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (r *Repository) scan(row pgx.Row) (*flow.Record, error) {
	var (
		rec  flow.Record
		data []byte
	)
	if err := row.Scan(&rec.ID, &rec.Name, &data, &rec.Version, &rec.SavedAt); err != nil {
		return nil, err
	}

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
	argCount := 0

	if filter.Limit > 0 {
		argCount++
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	return query, args
}

// Close closes the database connection pool
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
