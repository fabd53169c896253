package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, order_date, customer_id, customer_name, customer_phone,
payment_mode, total_amount, status, notes, inventory_deducted, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.OrderDate, &o.CustomerID, &o.CustomerName,
		&o.CustomerPhone, &o.PaymentMode, &o.TotalAmount, &o.Status, &o.Notes,
		&o.InventoryDeducted, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const nextOrderNumber = `
SELECT COALESCE(MAX(order_number), 0) + 1
FROM orders
WHERE order_date = $1
`

// NextOrderNumber derives the next day-scoped sequence value: 1 for the
// first order of the day, last + 1 after that. Concurrent submissions
// can read the same value; the UNIQUE(order_date, order_number)
// constraint rejects the loser, which retries.
func (q *Queries) NextOrderNumber(ctx context.Context, day pgtype.Date) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, nextOrderNumber, day).Scan(&n)
	return n, err
}

const createOrder = `
INSERT INTO orders (order_number, order_date, customer_id, customer_name, customer_phone,
                    payment_mode, total_amount, status, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber   int32
	OrderDate     pgtype.Date
	CustomerID    pgtype.UUID
	CustomerName  pgtype.Text
	CustomerPhone pgtype.Text
	PaymentMode   string
	TotalAmount   pgtype.Numeric
	Status        string
	Notes         pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.OrderNumber, arg.OrderDate, arg.CustomerID,
		arg.CustomerName, arg.CustomerPhone, arg.PaymentMode, arg.TotalAmount, arg.Status, arg.Notes)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, name, price, quantity)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, name, price, quantity
`

type CreateOrderItemParams struct {
	OrderID  uuid.UUID
	Name     string
	Price    pgtype.Numeric
	Quantity int32
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.Name, arg.Price, arg.Quantity)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.Name, &i.Price, &i.Quantity)
	return i, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, name, price, quantity
FROM order_items
WHERE order_id = $1
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.Name, &i.Price, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listActiveOrdersByDate = `
SELECT ` + orderColumns + `
FROM orders
WHERE order_date = $1 AND status = 'active'
ORDER BY created_at DESC
`

// ListActiveOrdersByDate feeds the live-orders screen: today's open
// orders, newest first. Clients poll this.
func (q *Queries) ListActiveOrdersByDate(ctx context.Context, day pgtype.Date) ([]Order, error) {
	rows, err := q.db.Query(ctx, listActiveOrdersByDate, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

// UpdateOrderStatus writes the status unconditionally. Terminal states
// are overwritten silently; callers wanting stricter transitions must
// check first.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const setOrderInventoryDeducted = `
UPDATE orders
SET inventory_deducted = true, updated_at = now()
WHERE id = $1
`

func (q *Queries) SetOrderInventoryDeducted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, setOrderInventoryDeducted, id)
	return err
}

const listDeliveredOrdersBetween = `
SELECT ` + orderColumns + `
FROM orders
WHERE status = 'delivered' AND created_at >= $1 AND created_at <= $2
ORDER BY created_at
`

type ListDeliveredOrdersBetweenParams struct {
	Start pgtype.Timestamptz
	End   pgtype.Timestamptz
}

func (q *Queries) ListDeliveredOrdersBetween(ctx context.Context, arg ListDeliveredOrdersBetweenParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listDeliveredOrdersBetween, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
