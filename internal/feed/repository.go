// Package feed manages media feed items and their persistence.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Item represents a single feed entry. ObjectKey is the internal storage
// key and is never serialized: every item leaving the service carries a
// freshly presigned download URL in URL instead.
type Item struct {
	ID        int64     `json:"id"`
	Caption   string    `json:"caption"`
	ObjectKey string    `json:"-"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch carries the optional fields of a partial update. Nil means
// "leave untouched".
type Patch struct {
	Caption   *string
	ObjectKey *string
}

// ErrNotFound is returned when no item matches the requested id.
var ErrNotFound = errors.New("item not found")

// Repository is the persistence contract for feed items.
type Repository interface {
	// Find returns the item with the given id, or ErrNotFound.
	Find(ctx context.Context, id int64) (*Item, error)
	// FindAllOrdered returns every item ordered by id descending.
	FindAllOrdered(ctx context.Context) ([]Item, error)
	// Create inserts a new item and returns the stored record.
	Create(ctx context.Context, caption, objectKey string) (*Item, error)
	// Update overwrites caption and object key for id and returns the
	// stored record, or ErrNotFound.
	Update(ctx context.Context, id int64, caption, objectKey string) (*Item, error)
}

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewRepository creates a PostgresRepository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Find fetches an item by id.
func (r *PostgresRepository) Find(ctx context.Context, id int64) (*Item, error) {
	it := &Item{}
	err := r.db.QueryRow(ctx,
		`SELECT id, caption, object_key, created_at, updated_at
		 FROM feed_items WHERE id = $1`,
		id,
	).Scan(&it.ID, &it.Caption, &it.ObjectKey, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return it, nil
}

// FindAllOrdered fetches all items, most recently created first.
func (r *PostgresRepository) FindAllOrdered(ctx context.Context) ([]Item, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, caption, object_key, created_at, updated_at
		 FROM feed_items ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Caption, &it.ObjectKey, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Create inserts a new item and returns the stored record.
func (r *PostgresRepository) Create(ctx context.Context, caption, objectKey string) (*Item, error) {
	it := &Item{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO feed_items (caption, object_key)
		 VALUES ($1, $2)
		 RETURNING id, caption, object_key, created_at, updated_at`,
		caption, objectKey,
	).Scan(&it.ID, &it.Caption, &it.ObjectKey, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return it, nil
}

// Update overwrites caption and object key for id. Concurrent updates to the
// same row are last-write-wins.
func (r *PostgresRepository) Update(ctx context.Context, id int64, caption, objectKey string) (*Item, error) {
	it := &Item{}
	err := r.db.QueryRow(ctx,
		`UPDATE feed_items
		 SET caption = $2, object_key = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING id, caption, object_key, created_at, updated_at`,
		id, caption, objectKey,
	).Scan(&it.ID, &it.Caption, &it.ObjectKey, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return it, nil
}
