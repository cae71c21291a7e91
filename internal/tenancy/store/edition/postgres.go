package edition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
	"stratus/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists the edition catalog.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, edition *models.Edition) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO editions (id, name, display_name, created_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.UUID(edition.ID), edition.Name, edition.DisplayName, edition.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert edition: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, editionID id.EditionID) (*models.Edition, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, display_name, created_at FROM editions WHERE id = $1`,
		uuid.UUID(editionID),
	)
	return scanEdition(row)
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Edition, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, display_name, created_at FROM editions WHERE lower(name) = lower($1)`,
		name,
	)
	return scanEdition(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Edition, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, display_name, created_at FROM editions ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list editions: %w", err)
	}
	defer rows.Close()

	var out []*models.Edition
	for rows.Next() {
		edition, err := scanEdition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, edition)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEdition(row rowScanner) (*models.Edition, error) {
	var (
		edition models.Edition
		rawID   uuid.UUID
	)
	err := row.Scan(&rawID, &edition.Name, &edition.DisplayName, &edition.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan edition: %w", err)
	}
	edition.ID = id.EditionID(rawID)
	return &edition, nil
}
