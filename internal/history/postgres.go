package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists diagnosis history in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS diagnosis_history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			input JSONB NOT NULL,
			diagnoses JSONB NOT NULL,
			pii_redacted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_diagnosis_history_user_created ON diagnosis_history (user_id, created_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, record Record) (Record, error) {
	record = prepare(record)
	input, diagnoses, err := encodePayload(record)
	if err != nil {
		return Record{}, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO diagnosis_history (id, user_id, input, diagnoses, pii_redacted, created_at)
		 VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6)`,
		record.ID,
		record.UserID,
		string(input),
		string(diagnoses),
		record.PIIRedacted,
		record.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("save diagnosis record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) List(ctx context.Context, userID string, limit int) ([]Record, error) {
	limit = normalizeLimit(limit)
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, input, diagnoses, pii_redacted, created_at
		 FROM diagnosis_history WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query diagnosis history: %w", err)
	}
	defer rows.Close()

	items := make([]Record, 0, limit)
	for rows.Next() {
		r, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, id string) (Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, input, diagnoses, pii_redacted, created_at
		 FROM diagnosis_history WHERE user_id=$1 AND id=$2`,
		userID,
		id,
	)
	r, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

func scanPostgres(row pgx.Row) (Record, error) {
	var (
		r                Record
		input, diagnoses []byte
	)
	if err := row.Scan(&r.ID, &r.UserID, &input, &diagnoses, &r.PIIRedacted, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan history row: %w", err)
	}
	if err := decodePayload(&r, input, diagnoses); err != nil {
		return Record{}, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (s *PostgresStore) Mode() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
