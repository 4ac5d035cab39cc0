// Package postgres implements the order store on PostgreSQL, the backend the
// storefront originally ran on.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imrishuroy/shop-orderflow/internal/orders"
)

// DB is the part of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `CREATE TABLE IF NOT EXISTS orders (
	id               BIGSERIAL PRIMARY KEY,
	customer_name    TEXT NOT NULL,
	customer_phone   TEXT NOT NULL,
	customer_address TEXT NOT NULL,
	customer_comment TEXT NOT NULL DEFAULT '',
	items            JSONB NOT NULL,
	total            NUMERIC NOT NULL,
	status           TEXT NOT NULL DEFAULT 'new',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const columns = `id, customer_name, customer_phone, customer_address, customer_comment, items, total::float8, status, created_at`

// Store is an orders.Repository backed by a Postgres table.
type Store struct {
	db      DB
	nowFunc func() time.Time
}

var _ orders.Repository = (*Store)(nil)

// Open creates a connection pool for databaseURL. Connections are made on
// first use.
func Open(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	return pool, nil
}

// Connect is Open followed by a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := Open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewStore returns a Store using db.
func NewStore(db DB) *Store {
	return &Store{db: db, nowFunc: time.Now}
}

// EnsureSchema creates the orders table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	return nil
}

// Insert stores a new order and returns it with the generated id.
func (s *Store) Insert(ctx context.Context, in orders.NewOrder) (*orders.Order, error) {
	items, err := json.Marshal(in.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	row := s.db.QueryRow(ctx,
		`INSERT INTO orders (customer_name, customer_phone, customer_address, customer_comment, items, total, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+columns,
		in.CustomerName, in.CustomerPhone, in.CustomerAddress, in.CustomerComment,
		items, in.Total, string(orders.StatusNew), s.nowFunc().UTC())

	o, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// List returns all orders ordered by creation time, newest first.
func (s *Store) List(ctx context.Context) ([]orders.Order, error) {
	rows, err := s.db.Query(ctx, `SELECT `+columns+` FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var result []orders.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

// UpdateStatus sets the status and returns the updated row.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status orders.Status) (*orders.Order, error) {
	if !status.Valid() {
		return nil, orders.ErrInvalidStatus
	}
	row := s.db.QueryRow(ctx, `UPDATE orders SET status = $1 WHERE id = $2 RETURNING `+columns, string(status), id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return o, nil
}

// Delete removes the order with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*orders.Order, error) {
	var (
		o      orders.Order
		items  []byte
		status string
	)
	err := row.Scan(
		&o.ID,
		&o.CustomerName,
		&o.CustomerPhone,
		&o.CustomerAddress,
		&o.CustomerComment,
		&items,
		&o.Total,
		&status,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	o.Status = orders.Status(status)
	return &o, nil
}
