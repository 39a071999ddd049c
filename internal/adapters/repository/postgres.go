package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/okian/adcraft/internal/domain/model"
)

const (
	backendPostgres = "postgres"
	defaultTable    = "creative_jobs"
)

// PostgresStore keeps one row per job with the job document in a JSONB column.
// Status and timestamps are duplicated into columns for indexing.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, table: defaultTable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenPostgres connects with lib/pq, pings and migrates.
func OpenPostgres(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresStore(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the table and its status index if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_status_idx ON %s (status, created_at)`, s.table, s.table),
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
	}
	return nil
}

// Name implements Store.
func (s *PostgresStore) Name() string { return backendPostgres }

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, job *model.CreativeJob) error {
	if job == nil || job.ID == "" {
		return ErrInvalidJob
	}
	start := time.Now()
	defer observe(backendPostgres, "create", start)

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, status, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`, s.table),
		job.ID, string(job.Status), data, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (*model.CreativeJob, error) {
	start := time.Now()
	defer observe(backendPostgres, "get", start)

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.table), id)
	return scanJob(row, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner, id string) (*model.CreativeJob, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var j model.CreativeJob
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &j, nil
}

// Update implements Store. The row is locked with SELECT ... FOR UPDATE for
// the duration of fn.
func (s *PostgresStore) Update(ctx context.Context, id string, fn UpdateFunc) (*model.CreativeJob, error) {
	start := time.Now()
	defer observe(backendPostgres, "update", start)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanJob(tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE id = $1 FOR UPDATE`, s.table), id), id)
	if err != nil {
		return nil, err
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	data, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET status = $2, data = $3, updated_at = $4 WHERE id = $1`, s.table),
		id, string(next.Status), data, next.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit job %s: %w", id, err)
	}
	return next, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer observe(backendPostgres, "delete", start)

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByStatus implements Store.
func (s *PostgresStore) ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.CreativeJob, error) {
	start := time.Now()
	defer observe(backendPostgres, "list", start)

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE status = $1 ORDER BY created_at, id`, s.table), string(status))
	if err != nil {
		return nil, fmt.Errorf("list %s jobs: %w", status, err)
	}
	defer rows.Close()

	out := make([]*model.CreativeJob, 0)
	for rows.Next() {
		j, err := scanJob(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s jobs: %w", status, err)
	}
	return out, nil
}

// CountByStatus implements Store.
func (s *PostgresStore) CountByStatus(ctx context.Context) (map[model.JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT status, COUNT(*) FROM %s GROUP BY status`, s.table))
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.JobStatus]int, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("count jobs: %w", err)
		}
		counts[model.JobStatus(st)] = n
	}
	return counts, rows.Err()
}

// Close implements Store.
func (s *PostgresStore) Close() error { return s.db.Close() }
