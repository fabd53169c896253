package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dcb-pos/api/internal/database"
)

const maxRefillRetries = 3

// Errors returned by the inventory service.
var (
	ErrMissingItemName     = errors.New("name is required")
	ErrMissingUnit         = errors.New("unit is required")
	ErrInvalidQuantityAdd  = errors.New("quantity_added must be > 0")
	ErrInvalidLotCost      = errors.New("total_cost must be >= 0")
	ErrInvalidStartingCost = errors.New("invalid starting quantity or cost")
	ErrInventoryNotFound   = errors.New("inventory item not found")
	ErrRefillConflict      = errors.New("refill conflicted with a concurrent update")
)

// InventoryStore defines the DB methods for stock tracking. Satisfied
// by *database.Queries.
type InventoryStore interface {
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id uuid.UUID) (database.InventoryItem, error)
	ListInventoryItems(ctx context.Context) ([]database.InventoryItem, error)
	RefillInventoryItemGuarded(ctx context.Context, arg database.RefillInventoryItemGuardedParams) (database.InventoryItem, error)
}

// CreateInventoryItemRequest is the validated input for registering a
// tracked ingredient.
type CreateInventoryItemRequest struct {
	Name            string
	Unit            string
	QuantityInStock string
	AverageCost     string
}

// RefillRequest is a purchase lot: how much was added and what the
// whole lot cost.
type RefillRequest struct {
	QuantityAdded string
	TotalCost     string
}

// InventoryService manages ingredient stock and weighted-average costs.
type InventoryService struct {
	store InventoryStore
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(store InventoryStore) *InventoryService {
	return &InventoryService{store: store}
}

// CreateItem registers a new tracked ingredient. Starting quantity and
// cost default to zero when omitted.
func (s *InventoryService) CreateItem(ctx context.Context, req CreateInventoryItemRequest) (database.InventoryItem, error) {
	if req.Name == "" {
		return database.InventoryItem{}, ErrMissingItemName
	}
	if req.Unit == "" {
		return database.InventoryItem{}, ErrMissingUnit
	}

	quantity := decimal.Zero
	if req.QuantityInStock != "" {
		var err error
		quantity, err = decimal.NewFromString(req.QuantityInStock)
		if err != nil || quantity.IsNegative() {
			return database.InventoryItem{}, ErrInvalidStartingCost
		}
	}
	cost := decimal.Zero
	if req.AverageCost != "" {
		var err error
		cost, err = decimal.NewFromString(req.AverageCost)
		if err != nil || cost.IsNegative() {
			return database.InventoryItem{}, ErrInvalidStartingCost
		}
	}

	item, err := s.store.CreateInventoryItem(ctx, database.CreateInventoryItemParams{
		Name:            req.Name,
		Unit:            req.Unit,
		QuantityInStock: decimalToNumeric(quantity),
		AverageCost:     decimalToNumeric(cost),
	})
	if err != nil {
		return database.InventoryItem{}, fmt.Errorf("create inventory item: %w", err)
	}
	return item, nil
}

// ListItems returns every tracked ingredient, sorted by name.
func (s *InventoryService) ListItems(ctx context.Context) ([]database.InventoryItem, error) {
	items, err := s.store.ListInventoryItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory items: %w", err)
	}
	return items, nil
}

// Refill records a purchase lot against an ingredient: stock rises by
// the added quantity and the average cost is folded forward as
// (avg*qty + lotCost) / (qty + added). The write is guarded against the
// values read, and retried up to maxRefillRetries times when a
// concurrent deduction or refill moves them underneath us.
func (s *InventoryService) Refill(ctx context.Context, id uuid.UUID, req RefillRequest) (database.InventoryItem, error) {
	added, err := decimal.NewFromString(req.QuantityAdded)
	if err != nil || !added.IsPositive() {
		return database.InventoryItem{}, ErrInvalidQuantityAdd
	}
	lotCost, err := decimal.NewFromString(req.TotalCost)
	if err != nil || lotCost.IsNegative() {
		return database.InventoryItem{}, ErrInvalidLotCost
	}

	for attempt := 0; attempt < maxRefillRetries; attempt++ {
		current, err := s.store.GetInventoryItem(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return database.InventoryItem{}, ErrInventoryNotFound
		}
		if err != nil {
			return database.InventoryItem{}, fmt.Errorf("get inventory item: %w", err)
		}

		prevQty := numericToDecimal(current.QuantityInStock)
		prevCost := numericToDecimal(current.AverageCost)

		newQty := prevQty.Add(added)
		// Weighted average over the combined stock. A non-positive
		// starting quantity contributes no prior value, so the lot's own
		// unit cost becomes the new average.
		var newCost decimal.Decimal
		if prevQty.IsPositive() {
			newCost = prevQty.Mul(prevCost).Add(lotCost).Div(newQty)
		} else {
			newCost = lotCost.Div(added)
		}

		item, err := s.store.RefillInventoryItemGuarded(ctx, database.RefillInventoryItemGuardedParams{
			ID:              id,
			QuantityInStock: decimalToNumeric(newQty),
			AverageCost:     decimalToNumeric(newCost.Round(4)),
			PrevQuantity:    current.QuantityInStock,
			PrevCost:        current.AverageCost,
		})
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return database.InventoryItem{}, fmt.Errorf("refill inventory item: %w", err)
		}
		return item, nil
	}
	return database.InventoryItem{}, ErrRefillConflict
}
