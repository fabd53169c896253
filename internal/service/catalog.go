package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dcb-pos/api/internal/database"
	"github.com/dcb-pos/api/internal/enum"
)

// Errors returned by the catalog service.
var (
	ErrMissingMenuName   = errors.New("name is required")
	ErrMissingCategory   = errors.New("category is required")
	ErrMissingPrices     = errors.New("at least one price is required")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrDuplicateMenuName = errors.New("a menu item with this name already exists")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrMissingPercentage = errors.New("percentage is required")
	ErrInvalidPercentage = errors.New("percentage must be > 0")
	ErrInvalidDirection  = errors.New("direction must be increase or decrease")
)

// CatalogStore defines the DB methods for menu and price management.
// Satisfied by *database.Queries.
type CatalogStore interface {
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) error
	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
	CreatePriceVariant(ctx context.Context, arg database.CreatePriceVariantParams) (database.PriceVariant, error)
	DeletePriceVariantsByMenuItem(ctx context.Context, menuItemID uuid.UUID) error
	ListPriceVariantsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.PriceVariant, error)
	AdjustCurrentPrices(ctx context.Context, multiplier pgtype.Numeric) (int64, error)
	ResetCurrentPrices(ctx context.Context) (int64, error)
}

// NewCatalogStore creates a CatalogStore from a DBTX (pool or tx).
type NewCatalogStore func(db database.DBTX) CatalogStore

// MenuItemRequest is the validated input for creating or replacing a
// menu item. Prices are keyed by size label; each is a whole or
// fractional currency amount as a string.
type MenuItemRequest struct {
	Name     string
	Category string
	Prices   map[string]string
}

// MenuItemDetail is a menu item with its price variants.
type MenuItemDetail struct {
	Item     database.MenuItem
	Variants []database.PriceVariant
}

// CatalogService manages the menu catalog and bulk price revisions.
type CatalogService struct {
	pool     TxBeginner
	newStore NewCatalogStore
	store    CatalogStore
}

// NewCatalogService creates a new CatalogService. store must be
// pool-bound.
func NewCatalogService(pool TxBeginner, newStore NewCatalogStore, store CatalogStore) *CatalogService {
	return &CatalogService{pool: pool, newStore: newStore, store: store}
}

// parsedPrice is a validated size/amount pair ready for insertion.
type parsedPrice struct {
	size   string
	amount decimal.Decimal
}

func parsePrices(prices map[string]string) ([]parsedPrice, error) {
	if len(prices) == 0 {
		return nil, ErrMissingPrices
	}
	parsed := make([]parsedPrice, 0, len(prices))
	for size, raw := range prices {
		amount, err := decimal.NewFromString(raw)
		if err != nil || amount.IsNegative() {
			return nil, fmt.Errorf("price %q: %w", size, ErrInvalidPrice)
		}
		if size == "" {
			size = enum.SizeStandard
		}
		parsed = append(parsed, parsedPrice{size: size, amount: amount})
	}
	return parsed, nil
}

// CreateMenuItem inserts a menu item with one price variant per size.
// Every variant starts with base price equal to current price; bulk
// revisions later move current away from base.
func (s *CatalogService) CreateMenuItem(ctx context.Context, req MenuItemRequest) (*MenuItemDetail, error) {
	if req.Name == "" {
		return nil, ErrMissingMenuName
	}
	if req.Category == "" {
		return nil, ErrMissingCategory
	}
	prices, err := parsePrices(req.Prices)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.CreateMenuItem(ctx, database.CreateMenuItemParams{
		Category: req.Category,
		Name:     req.Name,
	})
	if isMenuNameConflict(err) {
		return nil, ErrDuplicateMenuName
	}
	if err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}

	variants, err := createVariants(ctx, store, item.ID, prices)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &MenuItemDetail{Item: item, Variants: variants}, nil
}

// UpdateMenuItem replaces a menu item's name, category and full variant
// set. Replacement re-anchors every base price to the submitted amount,
// so a later reset lands on the edited prices.
func (s *CatalogService) UpdateMenuItem(ctx context.Context, id uuid.UUID, req MenuItemRequest) (*MenuItemDetail, error) {
	if req.Name == "" {
		return nil, ErrMissingMenuName
	}
	if req.Category == "" {
		return nil, ErrMissingCategory
	}
	prices, err := parsePrices(req.Prices)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.UpdateMenuItem(ctx, database.UpdateMenuItemParams{
		ID:       id,
		Category: req.Category,
		Name:     req.Name,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMenuItemNotFound
	}
	if isMenuNameConflict(err) {
		return nil, ErrDuplicateMenuName
	}
	if err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}

	if err := store.DeletePriceVariantsByMenuItem(ctx, id); err != nil {
		return nil, fmt.Errorf("delete price variants: %w", err)
	}
	variants, err := createVariants(ctx, store, id, prices)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &MenuItemDetail{Item: item, Variants: variants}, nil
}

func createVariants(ctx context.Context, store CatalogStore, menuItemID uuid.UUID, prices []parsedPrice) ([]database.PriceVariant, error) {
	variants := make([]database.PriceVariant, len(prices))
	for i, p := range prices {
		v, err := store.CreatePriceVariant(ctx, database.CreatePriceVariantParams{
			MenuItemID:   menuItemID,
			Size:         p.size,
			BasePrice:    decimalToNumeric(p.amount),
			CurrentPrice: decimalToNumeric(p.amount),
		})
		if err != nil {
			return nil, fmt.Errorf("create price variant %q: %w", p.size, err)
		}
		variants[i] = v
	}
	return variants, nil
}

// DeleteMenuItem removes a menu item and, via cascade, its variants and
// recipe. Deleting an unknown id is a no-op.
func (s *CatalogService) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteMenuItem(ctx, id); err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	return nil
}

// ListMenu returns the full catalog with price variants, grouped by
// category then name.
func (s *CatalogService) ListMenu(ctx context.Context) ([]MenuItemDetail, error) {
	items, err := s.store.ListMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	details := make([]MenuItemDetail, len(items))
	for i, item := range items {
		variants, err := s.store.ListPriceVariantsByMenuItem(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("list price variants: %w", err)
		}
		details[i] = MenuItemDetail{Item: item, Variants: variants}
	}
	return details, nil
}

// BulkAdjustPrices revises every current price by the given percentage
// in one statement, rounding each result to the nearest whole currency
// unit. Base prices are untouched so ResetPrices can undo the revision.
// Returns the number of variants revised.
func (s *CatalogService) BulkAdjustPrices(ctx context.Context, percentage string, direction string) (int64, error) {
	if percentage == "" {
		return 0, ErrMissingPercentage
	}
	pct, err := decimal.NewFromString(percentage)
	if err != nil || !pct.IsPositive() {
		return 0, ErrInvalidPercentage
	}

	fraction := pct.Div(decimal.NewFromInt(100))
	var multiplier decimal.Decimal
	switch direction {
	case enum.PriceDirectionIncrease:
		multiplier = decimal.NewFromInt(1).Add(fraction)
	case enum.PriceDirectionDecrease:
		multiplier = decimal.NewFromInt(1).Sub(fraction)
	default:
		return 0, ErrInvalidDirection
	}

	updated, err := s.store.AdjustCurrentPrices(ctx, decimalToNumeric(multiplier))
	if err != nil {
		return 0, fmt.Errorf("adjust prices: %w", err)
	}
	return updated, nil
}

// ResetPrices restores every current price to its base price. Returns
// the number of variants touched.
func (s *CatalogService) ResetPrices(ctx context.Context) (int64, error) {
	updated, err := s.store.ResetCurrentPrices(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset prices: %w", err)
	}
	return updated, nil
}

// isMenuNameConflict checks for a unique violation on the lowercased
// menu item name index.
func isMenuNameConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "menu_items_lower_name_key"
	}
	return false
}
