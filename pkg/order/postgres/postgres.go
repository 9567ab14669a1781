// Package postgres persists orders in PostgreSQL. Line items and customer
// details are stored as JSONB so an order reads back exactly as written.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"coffeeshop/pkg/order"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id              TEXT PRIMARY KEY,
	order_number    TEXT NOT NULL UNIQUE,
	session_id      TEXT NOT NULL,
	items           JSONB NOT NULL,
	customer_info   JSONB NOT NULL,
	subtotal        NUMERIC(12,2) NOT NULL,
	tax             NUMERIC(12,2) NOT NULL,
	shipping        NUMERIC(12,2) NOT NULL,
	total           NUMERIC(12,2) NOT NULL,
	status          TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	tracking_number TEXT
);
CREATE INDEX IF NOT EXISTS orders_session_created_idx ON orders (session_id, created_at DESC);`

const (
	insertQuery = `INSERT INTO orders (id,order_number,session_id,items,customer_info,subtotal,tax,shipping,total,status,created_at,tracking_number) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	selectCols  = `SELECT id,order_number,session_id,items,customer_info,subtotal,tax,shipping,total,status,created_at,tracking_number FROM orders`
	getQuery    = selectCols + ` WHERE id=$1`
	listQuery   = selectCols + ` WHERE session_id=$1 ORDER BY created_at DESC`
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the orders table if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating orders: %w", err)
	}
	return nil
}

// Create inserts a new order.
func (r *Repository) Create(ctx context.Context, o order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}
	customer, err := json.Marshal(o.CustomerInfo)
	if err != nil {
		return fmt.Errorf("encoding customer: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertQuery,
		o.ID, o.OrderNumber, o.SessionID, items, customer,
		o.Subtotal, o.Tax, o.Shipping, o.Total,
		string(o.Status), o.CreatedAt, o.TrackingNumber,
	)
	return err
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, getQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, order.ErrNotFound
	}
	return o, err
}

// ListBySession fetches the session's orders, newest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx, listQuery, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (order.Order, error) {
	var (
		o        order.Order
		items    []byte
		customer []byte
		status   string
		tracking sql.NullString
	)
	err := s.Scan(&o.ID, &o.OrderNumber, &o.SessionID, &items, &customer,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.Total,
		&status, &o.CreatedAt, &tracking)
	if err != nil {
		return order.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("decoding items: %w", err)
	}
	if err := json.Unmarshal(customer, &o.CustomerInfo); err != nil {
		return order.Order{}, fmt.Errorf("decoding customer: %w", err)
	}
	o.Status = order.Status(status)
	o.CreatedAt = o.CreatedAt.UTC()
	if tracking.Valid {
		o.TrackingNumber = &tracking.String
	}
	return o, nil
}
