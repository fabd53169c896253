package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createMenuItem = `
INSERT INTO menu_items (category, name)
VALUES ($1, $2)
RETURNING id, category, name, created_at, updated_at
`

type CreateMenuItemParams struct {
	Category string
	Name     string
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem, arg.Category, arg.Name)
	var i MenuItem
	err := row.Scan(&i.ID, &i.Category, &i.Name, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const updateMenuItem = `
UPDATE menu_items
SET category = $2, name = $3, updated_at = now()
WHERE id = $1
RETURNING id, category, name, created_at, updated_at
`

type UpdateMenuItemParams struct {
	ID       uuid.UUID
	Category string
	Name     string
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem, arg.ID, arg.Category, arg.Name)
	var i MenuItem
	err := row.Scan(&i.ID, &i.Category, &i.Name, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const deleteMenuItem = `
DELETE FROM menu_items WHERE id = $1
`

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteMenuItem, id)
	return err
}

const listMenuItems = `
SELECT id, category, name, created_at, updated_at
FROM menu_items
ORDER BY category, name
`

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		var i MenuItem
		if err := rows.Scan(&i.ID, &i.Category, &i.Name, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getMenuItemByName = `
SELECT id, category, name, created_at, updated_at
FROM menu_items
WHERE LOWER(name) = LOWER($1)
LIMIT 1
`

// GetMenuItemByName resolves a line-item base name (size suffix already
// stripped) to its catalog entry, case-insensitively. Name uniqueness is
// enforced by the schema, so at most one row matches.
func (q *Queries) GetMenuItemByName(ctx context.Context, name string) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItemByName, name)
	var i MenuItem
	err := row.Scan(&i.ID, &i.Category, &i.Name, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getMenuItemForCosting = `
SELECT mi.id, mi.category, mi.name, mi.created_at, mi.updated_at
FROM menu_items mi
JOIN price_variants pv ON pv.menu_item_id = mi.id
WHERE LOWER(mi.name) = LOWER($1) AND pv.current_price = $2
LIMIT 1
`

type GetMenuItemForCostingParams struct {
	Name  string
	Price pgtype.Numeric
}

// GetMenuItemForCosting resolves a sold line item for COGS: the base
// name must match case-insensitively AND the snapshotted price must
// equal one of the item's current price variants.
func (q *Queries) GetMenuItemForCosting(ctx context.Context, arg GetMenuItemForCostingParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItemForCosting, arg.Name, arg.Price)
	var i MenuItem
	err := row.Scan(&i.ID, &i.Category, &i.Name, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createPriceVariant = `
INSERT INTO price_variants (menu_item_id, size, base_price, current_price)
VALUES ($1, $2, $3, $4)
RETURNING id, menu_item_id, size, base_price, current_price
`

type CreatePriceVariantParams struct {
	MenuItemID   uuid.UUID
	Size         string
	BasePrice    pgtype.Numeric
	CurrentPrice pgtype.Numeric
}

func (q *Queries) CreatePriceVariant(ctx context.Context, arg CreatePriceVariantParams) (PriceVariant, error) {
	row := q.db.QueryRow(ctx, createPriceVariant, arg.MenuItemID, arg.Size, arg.BasePrice, arg.CurrentPrice)
	var v PriceVariant
	err := row.Scan(&v.ID, &v.MenuItemID, &v.Size, &v.BasePrice, &v.CurrentPrice)
	return v, err
}

const deletePriceVariantsByMenuItem = `
DELETE FROM price_variants WHERE menu_item_id = $1
`

func (q *Queries) DeletePriceVariantsByMenuItem(ctx context.Context, menuItemID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePriceVariantsByMenuItem, menuItemID)
	return err
}

const listPriceVariantsByMenuItem = `
SELECT id, menu_item_id, size, base_price, current_price
FROM price_variants
WHERE menu_item_id = $1
ORDER BY base_price
`

func (q *Queries) ListPriceVariantsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]PriceVariant, error) {
	rows, err := q.db.Query(ctx, listPriceVariantsByMenuItem, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var variants []PriceVariant
	for rows.Next() {
		var v PriceVariant
		if err := rows.Scan(&v.ID, &v.MenuItemID, &v.Size, &v.BasePrice, &v.CurrentPrice); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

const adjustCurrentPrices = `
UPDATE price_variants
SET current_price = ROUND(current_price * $1)
`

// AdjustCurrentPrices multiplies every variant's current price by the
// given factor, rounding to the nearest whole currency unit. A single
// statement, so readers never see a half-revised catalog.
func (q *Queries) AdjustCurrentPrices(ctx context.Context, multiplier pgtype.Numeric) (int64, error) {
	tag, err := q.db.Exec(ctx, adjustCurrentPrices, multiplier)
	return tag.RowsAffected(), err
}

const resetCurrentPrices = `
UPDATE price_variants
SET current_price = base_price
`

func (q *Queries) ResetCurrentPrices(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, resetCurrentPrices)
	return tag.RowsAffected(), err
}
