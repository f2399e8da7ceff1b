package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/prasenjit/go-mockapi/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collections (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS endpoints (
	id TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL DEFAULT '',
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_endpoints_collection ON endpoints(collection_id);
`

// SQLiteStorage implements Storage interface on a SQLite database.
// Endpoints are stored as JSON documents next to their lookup columns.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates the database at path
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// CreateCollection stores a collection and its endpoints in one transaction
func (s *SQLiteStorage) CreateCollection(c *models.Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}
	stampCollection(c)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if exists, err := rowExists(tx, "SELECT 1 FROM collections WHERE id = ?", c.ID); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("collection %s: %w", c.ID, ErrAlreadyExists)
	}

	_, err = tx.Exec(
		"INSERT INTO collections (id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.Name, c.Description, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}

	for _, ep := range c.Endpoints {
		ep.CollectionID = c.ID
		if err := insertEndpoint(tx, ep); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetCollection retrieves a collection by ID with its endpoints
func (s *SQLiteStorage) GetCollection(id string) (*models.Collection, error) {
	row := s.db.QueryRow("SELECT id, name, description, created_at, updated_at FROM collections WHERE id = ?", id)
	c, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	c.Endpoints, err = s.queryEndpoints("SELECT data FROM endpoints WHERE collection_id = ? ORDER BY path, method", id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetAllCollections retrieves all collections, without endpoints, sorted by name
func (s *SQLiteStorage) GetAllCollections() ([]*models.Collection, error) {
	rows, err := s.db.Query("SELECT id, name, description, created_at, updated_at FROM collections ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collections := make([]*models.Collection, 0)
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// CreateEndpoint stores an endpoint. Its collection must exist when set.
func (s *SQLiteStorage) CreateEndpoint(ep *models.Endpoint) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if ep.CollectionID != "" {
		exists, err := rowExists(tx, "SELECT 1 FROM collections WHERE id = ?", ep.CollectionID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("collection %s: %w", ep.CollectionID, ErrNotFound)
		}
	}
	if err := ep.Validate(); err != nil {
		return err
	}
	if err := insertEndpoint(tx, ep); err != nil {
		return err
	}

	return tx.Commit()
}

// GetEndpoint retrieves an endpoint by ID
func (s *SQLiteStorage) GetEndpoint(id string) (*models.Endpoint, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM endpoints WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("endpoint %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decodeEndpoint(data)
}

// GetEndpointsByCollection retrieves all endpoints of a collection
func (s *SQLiteStorage) GetEndpointsByCollection(collectionID string) ([]*models.Endpoint, error) {
	exists, err := rowExists(s.db, "SELECT 1 FROM collections WHERE id = ?", collectionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection %s: %w", collectionID, ErrNotFound)
	}
	return s.queryEndpoints("SELECT data FROM endpoints WHERE collection_id = ? ORDER BY path, method", collectionID)
}

// GetAllEndpoints retrieves all endpoints
func (s *SQLiteStorage) GetAllEndpoints() ([]*models.Endpoint, error) {
	return s.queryEndpoints("SELECT data FROM endpoints ORDER BY path, method")
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func rowExists(q queryer, query string, args ...interface{}) (bool, error) {
	var one int
	err := q.QueryRow(query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func insertEndpoint(tx *sql.Tx, ep *models.Endpoint) error {
	if exists, err := rowExists(tx, "SELECT 1 FROM endpoints WHERE id = ?", ep.ID); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("endpoint %s: %w", ep.ID, ErrAlreadyExists)
	}

	stampEndpoint(ep)
	data, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("failed to encode endpoint %s: %w", ep.ID, err)
	}

	_, err = tx.Exec(
		"INSERT INTO endpoints (id, collection_id, method, path, data) VALUES (?, ?, ?, ?, ?)",
		ep.ID, ep.CollectionID, ep.Method, ep.Path, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert endpoint %s: %w", ep.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) queryEndpoints(query string, args ...interface{}) ([]*models.Endpoint, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	eps := make([]*models.Endpoint, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		ep, err := decodeEndpoint(data)
		if err != nil {
			return nil, err
		}
		eps = append(eps, ep)
	}
	return eps, rows.Err()
}

func decodeEndpoint(data string) (*models.Endpoint, error) {
	var ep models.Endpoint
	if err := json.Unmarshal([]byte(data), &ep); err != nil {
		return nil, fmt.Errorf("failed to decode endpoint: %w", err)
	}
	return &ep, nil
}

func scanCollection(row scanner) (*models.Collection, error) {
	var c models.Collection
	var created, updated string
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &created, &updated); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
