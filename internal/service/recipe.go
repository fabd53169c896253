package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/dcb-pos/api/internal/database"
)

// Errors returned by the recipe service.
var (
	ErrMissingIngredients = errors.New("at least one ingredient is required")
	ErrInvalidIngredient  = errors.New("ingredient quantity must be > 0")
	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrRecipeMenuItemGone = errors.New("menu item does not exist")
)

// RecipeStore defines the DB methods for recipe management. Satisfied
// by *database.Queries.
type RecipeStore interface {
	UpsertRecipe(ctx context.Context, menuItemID uuid.UUID) (database.Recipe, error)
	GetRecipeByMenuItem(ctx context.Context, menuItemID uuid.UUID) (database.Recipe, error)
	DeleteRecipeIngredients(ctx context.Context, recipeID uuid.UUID) error
	CreateRecipeIngredient(ctx context.Context, arg database.CreateRecipeIngredientParams) (database.RecipeIngredient, error)
	ListRecipeIngredientCosts(ctx context.Context, recipeID uuid.UUID) ([]database.ListRecipeIngredientCostsRow, error)
}

// NewRecipeStore creates a RecipeStore from a DBTX (pool or tx).
type NewRecipeStore func(db database.DBTX) RecipeStore

// RecipeIngredientRequest binds an inventory item to a per-unit
// quantity consumed when one unit of the dish is sold.
type RecipeIngredientRequest struct {
	InventoryItemID uuid.UUID
	Quantity        string
}

// RecipeDetail is a recipe with its costed ingredient list.
type RecipeDetail struct {
	Recipe      database.Recipe
	Ingredients []database.ListRecipeIngredientCostsRow
	UnitCost    decimal.Decimal
}

// RecipeService manages the mapping from menu items to ingredient
// consumption.
type RecipeService struct {
	pool     TxBeginner
	newStore NewRecipeStore
	store    RecipeStore
}

// NewRecipeService creates a new RecipeService. store must be
// pool-bound.
func NewRecipeService(pool TxBeginner, newStore NewRecipeStore, store RecipeStore) *RecipeService {
	return &RecipeService{pool: pool, newStore: newStore, store: store}
}

// SaveRecipe creates or fully replaces the recipe for a menu item. The
// ingredient list is the unit of replacement: partial edits resubmit
// the whole list.
func (s *RecipeService) SaveRecipe(ctx context.Context, menuItemID uuid.UUID, ingredients []RecipeIngredientRequest) (*RecipeDetail, error) {
	if len(ingredients) == 0 {
		return nil, ErrMissingIngredients
	}
	quantities := make([]decimal.Decimal, len(ingredients))
	for i, ing := range ingredients {
		qty, err := decimal.NewFromString(ing.Quantity)
		if err != nil || !qty.IsPositive() {
			return nil, fmt.Errorf("ingredients[%d]: %w", i, ErrInvalidIngredient)
		}
		quantities[i] = qty
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	recipe, err := store.UpsertRecipe(ctx, menuItemID)
	if isForeignKeyViolation(err) {
		return nil, ErrRecipeMenuItemGone
	}
	if err != nil {
		return nil, fmt.Errorf("upsert recipe: %w", err)
	}

	if err := store.DeleteRecipeIngredients(ctx, recipe.ID); err != nil {
		return nil, fmt.Errorf("delete recipe ingredients: %w", err)
	}
	for i, ing := range ingredients {
		_, err := store.CreateRecipeIngredient(ctx, database.CreateRecipeIngredientParams{
			RecipeID:        recipe.ID,
			InventoryItemID: ing.InventoryItemID,
			Quantity:        decimalToNumeric(quantities[i]),
		})
		if err != nil {
			return nil, fmt.Errorf("create recipe ingredient: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetRecipe(ctx, menuItemID)
}

// GetRecipe returns the recipe for a menu item with each ingredient's
// current average cost and the summed per-unit cost of the dish.
func (s *RecipeService) GetRecipe(ctx context.Context, menuItemID uuid.UUID) (*RecipeDetail, error) {
	recipe, err := s.store.GetRecipeByMenuItem(ctx, menuItemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	ingredients, err := s.store.ListRecipeIngredientCosts(ctx, recipe.ID)
	if err != nil {
		return nil, fmt.Errorf("list recipe ingredients: %w", err)
	}

	unitCost := decimal.Zero
	for _, ing := range ingredients {
		unitCost = unitCost.Add(numericToDecimal(ing.Quantity).Mul(numericToDecimal(ing.AverageCost)))
	}

	return &RecipeDetail{Recipe: recipe, Ingredients: ingredients, UnitCost: unitCost}, nil
}

// isForeignKeyViolation checks for pgconn error code 23503, raised when
// the referenced menu item was deleted between lookup and write.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
