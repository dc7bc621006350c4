package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Models maps each collection to a constructor for its read model type.
// Rows are decoded into a fresh value from the constructor.
type Models map[string]func() any

const schema = `
CREATE TABLE IF NOT EXISTS read_models (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (collection, id)
)`

// PostgresReadStore implements ReadStoreInterface using PostgreSQL.
// Every collection shares one JSONB table keyed by (collection, id).
type PostgresReadStore struct {
	db     *sql.DB
	models Models
}

// NewPostgresReadStore creates a new PostgreSQL-based read store
func NewPostgresReadStore(db *sql.DB, models Models) *PostgresReadStore {
	return &PostgresReadStore{db: db, models: models}
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the read model table if it does not exist
func (rs *PostgresReadStore) EnsureSchema() error {
	if _, err := rs.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create read_models table: %w", err)
	}
	return nil
}

func (rs *PostgresReadStore) decode(collection string, raw []byte) (any, error) {
	newModel, ok := rs.models[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	v := newModel()
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}
	return v, nil
}

func (rs *PostgresReadStore) encode(collection string, data any) ([]byte, error) {
	if _, ok := rs.models[collection]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", collection, err)
	}
	return raw, nil
}

// Set stores a read model
func (rs *PostgresReadStore) Set(collection, id string, data any) error {
	raw, err := rs.encode(collection, data)
	if err != nil {
		return err
	}
	_, err = rs.db.Exec(`
		INSERT INTO read_models (collection, id, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, collection, id, raw, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get retrieves a read model by id
func (rs *PostgresReadStore) Get(collection, id string) (any, bool, error) {
	var raw []byte
	err := rs.db.QueryRow(`
		SELECT data FROM read_models WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	v, err := rs.decode(collection, raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// GetAll retrieves all items in a collection
func (rs *PostgresReadStore) GetAll(collection string) ([]any, error) {
	rows, err := rs.db.Query(`
		SELECT data FROM read_models WHERE collection = $1 ORDER BY id
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	items := []any{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}
		v, err := rs.decode(collection, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// Delete removes a read model
func (rs *PostgresReadStore) Delete(collection, id string) error {
	_, err := rs.db.Exec(`DELETE FROM read_models WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update modifies a read model using an update function. The row is locked
// for the duration so concurrent updates of one id serialize.
func (rs *PostgresReadStore) Update(collection, id string, updateFn func(current any) any) (bool, error) {
	tx, err := rs.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin update: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRow(`
		SELECT data FROM read_models WHERE collection = $1 AND id = $2 FOR UPDATE
	`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock %s/%s: %w", collection, id, err)
	}

	current, err := rs.decode(collection, raw)
	if err != nil {
		return false, err
	}
	updated, err := rs.encode(collection, updateFn(current))
	if err != nil {
		return false, err
	}

	if _, err := tx.Exec(`
		UPDATE read_models SET data = $3, updated_at = $4 WHERE collection = $1 AND id = $2
	`, collection, id, updated, time.Now()); err != nil {
		return false, fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit update: %w", err)
	}
	return true, nil
}
