package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const createInventoryItem = `
INSERT INTO inventory_items (name, unit, quantity_in_stock, average_cost)
VALUES ($1, $2, $3, $4)
RETURNING id, name, unit, quantity_in_stock, average_cost, created_at, updated_at
`

type CreateInventoryItemParams struct {
	Name            string
	Unit            string
	QuantityInStock pgtype.Numeric
	AverageCost     pgtype.Numeric
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, createInventoryItem, arg.Name, arg.Unit, arg.QuantityInStock, arg.AverageCost)
	var i InventoryItem
	err := row.Scan(&i.ID, &i.Name, &i.Unit, &i.QuantityInStock, &i.AverageCost, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getInventoryItem = `
SELECT id, name, unit, quantity_in_stock, average_cost, created_at, updated_at
FROM inventory_items
WHERE id = $1
`

func (q *Queries) GetInventoryItem(ctx context.Context, id uuid.UUID) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, getInventoryItem, id)
	var i InventoryItem
	err := row.Scan(&i.ID, &i.Name, &i.Unit, &i.QuantityInStock, &i.AverageCost, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listInventoryItems = `
SELECT id, name, unit, quantity_in_stock, average_cost, created_at, updated_at
FROM inventory_items
ORDER BY name
`

func (q *Queries) ListInventoryItems(ctx context.Context) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listInventoryItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryItem
	for rows.Next() {
		var i InventoryItem
		if err := rows.Scan(&i.ID, &i.Name, &i.Unit, &i.QuantityInStock, &i.AverageCost, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const refillInventoryItemGuarded = `
UPDATE inventory_items
SET quantity_in_stock = $2, average_cost = $3, updated_at = now()
WHERE id = $1 AND quantity_in_stock = $4 AND average_cost = $5
RETURNING id, name, unit, quantity_in_stock, average_cost, created_at, updated_at
`

type RefillInventoryItemGuardedParams struct {
	ID              uuid.UUID
	QuantityInStock pgtype.Numeric
	AverageCost     pgtype.Numeric
	PrevQuantity    pgtype.Numeric
	PrevCost        pgtype.Numeric
}

// RefillInventoryItemGuarded applies a precomputed refill only if the
// row still holds the quantity and cost the caller read. Returns
// pgx.ErrNoRows when a concurrent writer got there first; the caller
// re-reads and retries.
func (q *Queries) RefillInventoryItemGuarded(ctx context.Context, arg RefillInventoryItemGuardedParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, refillInventoryItemGuarded,
		arg.ID, arg.QuantityInStock, arg.AverageCost, arg.PrevQuantity, arg.PrevCost)
	var i InventoryItem
	err := row.Scan(&i.ID, &i.Name, &i.Unit, &i.QuantityInStock, &i.AverageCost, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const deductInventoryStock = `
UPDATE inventory_items
SET quantity_in_stock = quantity_in_stock - $2, updated_at = now()
WHERE id = $1
`

type DeductInventoryStockParams struct {
	ID       uuid.UUID
	Quantity pgtype.Numeric
}

// DeductInventoryStock decrements stock atomically in a single
// statement. Stock is allowed to go negative; an order never blocks on
// insufficient inventory.
func (q *Queries) DeductInventoryStock(ctx context.Context, arg DeductInventoryStockParams) error {
	tag, err := q.db.Exec(ctx, deductInventoryStock, arg.ID, arg.Quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
