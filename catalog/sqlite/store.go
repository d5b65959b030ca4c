// Package sqlite is a SQLite implementation of catalog.Store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dealscout/dealscout/catalog"
)

// Store is a SQLite implementation of catalog.Store.
type Store struct {
	db *sql.DB
}

var _ catalog.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		asking_price REAL NOT NULL,
		condition TEXT,
		extras TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Put inserts or replaces a listing.
func (s *Store) Put(ctx context.Context, l catalog.Listing) error {
	extras, err := json.Marshal(l.Extras)
	if err != nil {
		return fmt.Errorf("failed to encode extras: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO listings (id, seller_id, title, description, asking_price, condition, extras)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			seller_id=excluded.seller_id, title=excluded.title, description=excluded.description,
			asking_price=excluded.asking_price, condition=excluded.condition, extras=excluded.extras`,
		l.ID, l.SellerID, l.Title, l.Description, l.AskingPrice, l.Condition, string(extras))
	if err != nil {
		return fmt.Errorf("failed to store listing: %w", err)
	}
	return nil
}

// Get returns the listing with the given id or catalog.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (catalog.Listing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, seller_id, title, description, asking_price, condition, extras
		FROM listings WHERE id = ?`, id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Listing{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Listing{}, fmt.Errorf("failed to load listing: %w", err)
	}
	return l, nil
}

// Search returns listings matching the query in insertion order.
func (s *Store) Search(ctx context.Context, q catalog.Query) ([]catalog.Listing, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = catalog.DefaultSearchLimit
	}
	maxPrice := q.MaxPrice
	if maxPrice <= 0 {
		maxPrice = 1e12
	}
	pattern := "%" + q.Text + "%"

	rows, err := s.db.QueryContext(ctx, `SELECT id, seller_id, title, description, asking_price, condition, extras
		FROM listings
		WHERE (title LIKE ? OR description LIKE ?) AND asking_price <= ?
		ORDER BY created_at, id
		LIMIT ?`, pattern, pattern, maxPrice, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	defer rows.Close()

	var results []catalog.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		results = append(results, l)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (catalog.Listing, error) {
	var l catalog.Listing
	var description, condition, extras sql.NullString
	if err := row.Scan(&l.ID, &l.SellerID, &l.Title, &description, &l.AskingPrice, &condition, &extras); err != nil {
		return catalog.Listing{}, err
	}
	l.Description = description.String
	l.Condition = condition.String
	if extras.Valid && extras.String != "" {
		if err := json.Unmarshal([]byte(extras.String), &l.Extras); err != nil {
			return catalog.Listing{}, fmt.Errorf("failed to decode extras: %w", err)
		}
	}
	return l, nil
}
