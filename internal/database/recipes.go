package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const upsertRecipe = `
INSERT INTO recipes (menu_item_id)
VALUES ($1)
ON CONFLICT (menu_item_id) DO UPDATE SET menu_item_id = EXCLUDED.menu_item_id
RETURNING id, menu_item_id
`

// UpsertRecipe returns the recipe row for the menu item, creating it if
// absent. At most one recipe exists per menu item.
func (q *Queries) UpsertRecipe(ctx context.Context, menuItemID uuid.UUID) (Recipe, error) {
	row := q.db.QueryRow(ctx, upsertRecipe, menuItemID)
	var r Recipe
	err := row.Scan(&r.ID, &r.MenuItemID)
	return r, err
}

const getRecipeByMenuItem = `
SELECT id, menu_item_id
FROM recipes
WHERE menu_item_id = $1
`

func (q *Queries) GetRecipeByMenuItem(ctx context.Context, menuItemID uuid.UUID) (Recipe, error) {
	row := q.db.QueryRow(ctx, getRecipeByMenuItem, menuItemID)
	var r Recipe
	err := row.Scan(&r.ID, &r.MenuItemID)
	return r, err
}

const deleteRecipeIngredients = `
DELETE FROM recipe_ingredients WHERE recipe_id = $1
`

func (q *Queries) DeleteRecipeIngredients(ctx context.Context, recipeID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteRecipeIngredients, recipeID)
	return err
}

const createRecipeIngredient = `
INSERT INTO recipe_ingredients (recipe_id, inventory_item_id, quantity)
VALUES ($1, $2, $3)
RETURNING id, recipe_id, inventory_item_id, quantity
`

type CreateRecipeIngredientParams struct {
	RecipeID        uuid.UUID
	InventoryItemID uuid.UUID
	Quantity        pgtype.Numeric
}

func (q *Queries) CreateRecipeIngredient(ctx context.Context, arg CreateRecipeIngredientParams) (RecipeIngredient, error) {
	row := q.db.QueryRow(ctx, createRecipeIngredient, arg.RecipeID, arg.InventoryItemID, arg.Quantity)
	var ri RecipeIngredient
	err := row.Scan(&ri.ID, &ri.RecipeID, &ri.InventoryItemID, &ri.Quantity)
	return ri, err
}

const listRecipeIngredients = `
SELECT id, recipe_id, inventory_item_id, quantity
FROM recipe_ingredients
WHERE recipe_id = $1
`

func (q *Queries) ListRecipeIngredients(ctx context.Context, recipeID uuid.UUID) ([]RecipeIngredient, error) {
	rows, err := q.db.Query(ctx, listRecipeIngredients, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ingredients []RecipeIngredient
	for rows.Next() {
		var ri RecipeIngredient
		if err := rows.Scan(&ri.ID, &ri.RecipeID, &ri.InventoryItemID, &ri.Quantity); err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ri)
	}
	return ingredients, rows.Err()
}

const listRecipeIngredientCosts = `
SELECT ri.inventory_item_id, ii.name, ii.unit, ri.quantity, ii.average_cost
FROM recipe_ingredients ri
JOIN inventory_items ii ON ii.id = ri.inventory_item_id
WHERE ri.recipe_id = $1
`

type ListRecipeIngredientCostsRow struct {
	InventoryItemID uuid.UUID
	Name            string
	Unit            string
	Quantity        pgtype.Numeric
	AverageCost     pgtype.Numeric
}

// ListRecipeIngredientCosts joins each ingredient with its current
// weighted-average cost. COGS is evaluated against current cost, not
// cost at time of sale.
func (q *Queries) ListRecipeIngredientCosts(ctx context.Context, recipeID uuid.UUID) ([]ListRecipeIngredientCostsRow, error) {
	rows, err := q.db.Query(ctx, listRecipeIngredientCosts, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var costs []ListRecipeIngredientCostsRow
	for rows.Next() {
		var r ListRecipeIngredientCostsRow
		if err := rows.Scan(&r.InventoryItemID, &r.Name, &r.Unit, &r.Quantity, &r.AverageCost); err != nil {
			return nil, err
		}
		costs = append(costs, r)
	}
	return costs, rows.Err()
}
