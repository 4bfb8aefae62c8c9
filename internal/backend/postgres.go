package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	// Registers the "postgres" driver with database/sql.
	_ "github.com/lib/pq"

	"github.com/vkuksa/supermarkets/internal/model"
)

// Connection pool settings.
const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// schema bootstraps the supermarkets table on startup. Schema evolution
// beyond this is handled outside the application.
const schema = `
CREATE TABLE IF NOT EXISTS supermarkets (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	owner_id   UUID NOT NULL,
	name       TEXT NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	logo_url   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS supermarkets_owner_id_idx ON supermarkets (owner_id);
`

// PostgresQuerier implements Querier on top of a PostgreSQL database.
type PostgresQuerier struct {
	db *sql.DB
}

// NewPostgresQuerier opens a connection pool for the given DSN, verifies
// connectivity and ensures the supermarkets table exists.
func NewPostgresQuerier(dsn string) (*PostgresQuerier, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &PostgresQuerier{db: db}, nil
}

// Close releases the connection pool.
func (q *PostgresQuerier) Close() error {
	return q.db.Close()
}

// selectColumns is the column list shared by all row-returning queries.
const selectColumns = "id, owner_id, name, location, logo_url, created_at, updated_at"

// scanRow scans a single supermarket row.
func scanRow(row *sql.Row) (*model.Supermarket, error) {
	var s model.Supermarket
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Location, &s.LogoURL, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning supermarket: %w", err)
	}
	return &s, nil
}

// SelectAll returns the current user's supermarkets ordered by name ascending.
func (q *PostgresQuerier) SelectAll(ctx context.Context) ([]model.Supermarket, error) {
	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + selectColumns + " FROM supermarkets WHERE owner_id = $1 ORDER BY name ASC"

	rows, err := q.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("selecting supermarkets: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]model.Supermarket, 0)
	for rows.Next() {
		var s model.Supermarket
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Location, &s.LogoURL, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning supermarket: %w", err)
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating supermarkets: %w", err)
	}

	return result, nil
}

// SelectOne returns exactly one supermarket matching the ID.
func (q *PostgresQuerier) SelectOne(ctx context.Context, id string) (*model.Supermarket, error) {
	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	query := "SELECT " + selectColumns + " FROM supermarkets WHERE owner_id = $1 AND id = $2"

	return scanRow(q.db.QueryRowContext(ctx, query, ownerID, id))
}

// Insert stores a new supermarket and returns the created row with its
// database-assigned ID and timestamps.
func (q *PostgresQuerier) Insert(ctx context.Context, s *model.Supermarket) (*model.Supermarket, error) {
	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}

	if s == nil {
		return nil, ErrNilInput
	}

	query := `INSERT INTO supermarkets (owner_id, name, location, logo_url)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + selectColumns

	return scanRow(q.db.QueryRowContext(ctx, query, ownerID, s.Name, s.Location, s.LogoURL))
}

// Update applies a partial field set and returns the updated row.
func (q *PostgresQuerier) Update(ctx context.Context, id string, in *model.UpdateSupermarketInput) (*model.Supermarket, error) {
	ownerID, err := owner(ctx)
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, ErrInvalidID
	}

	if in == nil {
		return nil, ErrNilInput
	}

	set := "updated_at = now()"
	args := []any{ownerID, id}

	appendSet := func(column string, value string) {
		args = append(args, value)
		set += ", " + column + " = $" + strconv.Itoa(len(args))
	}

	if in.Name != nil {
		appendSet("name", *in.Name)
	}
	if in.Location != nil {
		appendSet("location", *in.Location)
	}
	if in.LogoURL != nil {
		appendSet("logo_url", *in.LogoURL)
	}

	query := "UPDATE supermarkets SET " + set +
		" WHERE owner_id = $1 AND id = $2 RETURNING " + selectColumns

	return scanRow(q.db.QueryRowContext(ctx, query, args...))
}

// Delete removes the supermarket matching the ID. Zero rows affected is
// not an error.
func (q *PostgresQuerier) Delete(ctx context.Context, id string) error {
	ownerID, err := owner(ctx)
	if err != nil {
		return err
	}

	if id == "" {
		return ErrInvalidID
	}

	query := "DELETE FROM supermarkets WHERE owner_id = $1 AND id = $2"

	if _, err := q.db.ExecContext(ctx, query, ownerID, id); err != nil {
		return fmt.Errorf("deleting supermarket: %w", err)
	}

	return nil
}
