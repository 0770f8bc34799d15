package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pizza-platform/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a row does not exist. Callers that can
// degrade (missing catalog entries during pricing) test for it with
// errors.Is.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetPizzaByID retrieves a catalog pizza with its size variants.
func (s *Store) GetPizzaByID(ctx context.Context, id int64) (*models.Pizza, error) {
	var pizza models.Pizza
	err := s.db.GetContext(ctx, &pizza, "SELECT * FROM pizzas WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pizza %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachSizes(ctx, []*models.Pizza{&pizza}); err != nil {
		return nil, err
	}
	return &pizza, nil
}

// GetPizzasByIDs retrieves multiple pizzas by id. Missing ids are simply
// absent from the result; the caller decides whether that is fatal.
func (s *Store) GetPizzasByIDs(ctx context.Context, ids []int64) (map[int64]*models.Pizza, error) {
	if len(ids) == 0 {
		return map[int64]*models.Pizza{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM pizzas WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var pizzas []models.Pizza
	if err := s.db.SelectContext(ctx, &pizzas, query, args...); err != nil {
		return nil, err
	}

	refs := make([]*models.Pizza, len(pizzas))
	result := make(map[int64]*models.Pizza, len(pizzas))
	for i := range pizzas {
		refs[i] = &pizzas[i]
		result[pizzas[i].ID] = &pizzas[i]
	}
	if err := s.attachSizes(ctx, refs); err != nil {
		return nil, err
	}
	return result, nil
}

// attachSizes loads size variants for the given pizzas in one query.
func (s *Store) attachSizes(ctx context.Context, pizzas []*models.Pizza) error {
	if len(pizzas) == 0 {
		return nil
	}

	ids := make([]int64, len(pizzas))
	byID := make(map[int64]*models.Pizza, len(pizzas))
	for i, p := range pizzas {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	query, args, err := sqlx.In("SELECT * FROM pizza_sizes WHERE pizza_id IN (?) ORDER BY pizza_id", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var sizes []models.SizeVariant
	if err := s.db.SelectContext(ctx, &sizes, query, args...); err != nil {
		return err
	}

	for _, sz := range sizes {
		if p, ok := byID[sz.PizzaID]; ok {
			p.Sizes = append(p.Sizes, sz)
		}
	}
	return nil
}

// GetUserByID retrieves a user. Roles must always be read from here at the
// moment of an authorization decision, never taken from the client.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
