package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mediavault/internal/asset"
	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/dbx"
	"github.com/dmitrijs2005/mediavault/internal/store/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStore persists asset records in PostgreSQL. IDs are the
// deterministic document IDs, so ON CONFLICT DO NOTHING gives the
// idempotent create the identical-content race relies on.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens dsn with the pgx stdlib driver and runs the
// embedded migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.runMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// NewPostgresStoreWithDB wraps an existing handle without migrating.
// Intended for tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// Close closes the underlying handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const selectColumns = `id, asset_type, fingerprint, extension, mime_type, size, original_filename, width, height, aspect_ratio`

func scanRecord(row *sql.Row) (*asset.Record, error) {
	var rec asset.Record
	var origName sql.NullString
	var width, height sql.NullInt64
	var aspect sql.NullFloat64

	err := row.Scan(&rec.ID, &rec.Type, &rec.Fingerprint, &rec.Extension,
		&rec.MimeType, &rec.Size, &origName, &width, &height, &aspect)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rec.OriginalFilename = origName.String
	if width.Valid && height.Valid {
		rec.Dimensions = &asset.Dimensions{
			Width:       int(width.Int64),
			Height:      int(height.Int64),
			AspectRatio: aspect.Float64,
		}
	}
	return &rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*asset.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM asset_records WHERE id=$1`
	return scanRecord(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) Create(ctx context.Context, rec *asset.Record) (*asset.Record, error) {
	var out *asset.Record

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
		INSERT INTO asset_records (id, asset_type, fingerprint, extension, mime_type, size, original_filename, width, height, aspect_ratio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING;
	`
		var origName sql.NullString
		if rec.OriginalFilename != "" {
			origName = sql.NullString{String: rec.OriginalFilename, Valid: true}
		}
		var width, height sql.NullInt64
		var aspect sql.NullFloat64
		if rec.Dimensions != nil {
			width = sql.NullInt64{Int64: int64(rec.Dimensions.Width), Valid: true}
			height = sql.NullInt64{Int64: int64(rec.Dimensions.Height), Valid: true}
			aspect = sql.NullFloat64{Float64: rec.Dimensions.AspectRatio, Valid: true}
		}

		_, err := tx.ExecContext(ctx, query,
			rec.ID, rec.Type, rec.Fingerprint, rec.Extension, rec.MimeType, rec.Size,
			origName, width, height, aspect)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		stored, err := scanRecordTx(ctx, tx, rec.ID)
		if err != nil {
			return err
		}
		out = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanRecordTx(ctx context.Context, tx dbx.DBTX, id string) (*asset.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM asset_records WHERE id=$1`
	return scanRecord(tx.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM asset_records WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (s *PostgresStore) ExistingFingerprints(ctx context.Context, fingerprints []string) (map[string]bool, error) {
	if len(fingerprints) == 0 {
		return map[string]bool{}, nil
	}

	query := `SELECT DISTINCT fingerprint FROM asset_records WHERE fingerprint = ANY($1)`
	rows, err := s.db.QueryContext(ctx, query, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool, len(fingerprints))
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out[fp] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
