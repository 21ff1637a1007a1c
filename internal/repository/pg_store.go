package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgDocumentStore implementa DocumentStore sobre la tabla documents.
type PgDocumentStore struct {
	pool pgPool
}

func NewPgDocumentStore(pool pgPool) *PgDocumentStore {
	return &PgDocumentStore{pool: pool}
}

func (s *PgDocumentStore) Get(ctx context.Context, path string) (Document, error) {
	const query = `
		SELECT value, version
		FROM documents
		WHERE path = $1
	`
	var doc Document
	err := s.pool.QueryRow(ctx, query, path).Scan(&doc.Value, &doc.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *PgDocumentStore) Create(ctx context.Context, path string, value []byte) (int64, error) {
	const query = `
		INSERT INTO documents (path, value, version, updated_at)
		VALUES ($1, $2, nextval('documents_version_seq'), now())
		ON CONFLICT (path) DO NOTHING
		RETURNING version
	`
	var version int64
	err := s.pool.QueryRow(ctx, query, path, string(value)).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrExists
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *PgDocumentStore) Set(ctx context.Context, path string, value []byte) (int64, error) {
	const query = `
		INSERT INTO documents (path, value, version, updated_at)
		VALUES ($1, $2, nextval('documents_version_seq'), now())
		ON CONFLICT (path) DO UPDATE
		SET value = EXCLUDED.value, version = EXCLUDED.version, updated_at = EXCLUDED.updated_at
		RETURNING version
	`
	var version int64
	if err := s.pool.QueryRow(ctx, query, path, string(value)).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func (s *PgDocumentStore) CompareAndSwap(ctx context.Context, path string, version int64, value []byte) (int64, error) {
	const query = `
		UPDATE documents
		SET value = $3, version = nextval('documents_version_seq'), updated_at = now()
		WHERE path = $1 AND version = $2
		RETURNING version
	`
	var next int64
	err := s.pool.QueryRow(ctx, query, path, version, string(value)).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, s.missOrConflict(ctx, path)
	}
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *PgDocumentStore) CompareAndDelete(ctx context.Context, path string, version int64) error {
	const query = `
		DELETE FROM documents
		WHERE path = $1 AND version = $2
	`
	tag, err := s.pool.Exec(ctx, query, path, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, path)
	}
	return nil
}

// missOrConflict distingue por que un update condicional no afecto filas.
func (s *PgDocumentStore) missOrConflict(ctx context.Context, path string) error {
	const query = `SELECT EXISTS (SELECT 1 FROM documents WHERE path = $1)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, path).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}
