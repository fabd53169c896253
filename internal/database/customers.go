package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertCustomerOnOrder = `
INSERT INTO customers (name, phone, order_count, last_ordered)
VALUES ($1, $2, 1, now())
ON CONFLICT (name) DO UPDATE
SET phone = COALESCE(EXCLUDED.phone, customers.phone),
    last_ordered = EXCLUDED.last_ordered,
    order_count = customers.order_count + 1,
    updated_at = now()
RETURNING id, name, phone, order_count, last_ordered, created_at, updated_at
`

type UpsertCustomerOnOrderParams struct {
	Name  string
	Phone pgtype.Text
}

// UpsertCustomerOnOrder matches by exact name: on conflict a provided
// phone overwrites the stored one (a NULL phone leaves it untouched),
// last_ordered is refreshed and order_count incremented in a single
// atomic statement.
func (q *Queries) UpsertCustomerOnOrder(ctx context.Context, arg UpsertCustomerOnOrderParams) (Customer, error) {
	row := q.db.QueryRow(ctx, upsertCustomerOnOrder, arg.Name, arg.Phone)
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.OrderCount, &c.LastOrdered, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listCustomers = `
SELECT id, name, phone, order_count, last_ordered, created_at, updated_at
FROM customers
ORDER BY last_ordered DESC NULLS LAST
`

func (q *Queries) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.OrderCount, &c.LastOrdered, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

const searchCustomers = `
SELECT id, name, phone, order_count, last_ordered, created_at, updated_at
FROM customers
WHERE name ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%'
LIMIT 10
`

func (q *Queries) SearchCustomers(ctx context.Context, term string) ([]Customer, error) {
	rows, err := q.db.Query(ctx, searchCustomers, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.OrderCount, &c.LastOrdered, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}
