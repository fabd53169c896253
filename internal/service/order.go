package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dcb-pos/api/internal/database"
	"github.com/dcb-pos/api/internal/enum"
)

const maxOrderNumberRetries = 3

// Errors returned by the fulfillment service.
var (
	ErrMissingTotalAmount = errors.New("total_amount is required")
	ErrInvalidTotalAmount = errors.New("invalid total_amount")
	ErrMissingPaymentMode = errors.New("payment_mode is required")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrInvalidItemPrice   = errors.New("invalid item price")
	ErrOrderNotFound      = errors.New("order not found")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// FulfillmentStore defines the DB methods needed to submit and track
// orders. Satisfied by *database.Queries (and its WithTx variant).
type FulfillmentStore interface {
	UpsertCustomerOnOrder(ctx context.Context, arg database.UpsertCustomerOnOrderParams) (database.Customer, error)
	NextOrderNumber(ctx context.Context, day pgtype.Date) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetMenuItemByName(ctx context.Context, name string) (database.MenuItem, error)
	GetRecipeByMenuItem(ctx context.Context, menuItemID uuid.UUID) (database.Recipe, error)
	ListRecipeIngredients(ctx context.Context, recipeID uuid.UUID) ([]database.RecipeIngredient, error)
	DeductInventoryStock(ctx context.Context, arg database.DeductInventoryStockParams) error
	SetOrderInventoryDeducted(ctx context.Context, id uuid.UUID) error
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListActiveOrdersByDate(ctx context.Context, day pgtype.Date) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// NewFulfillmentStore creates a FulfillmentStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewFulfillmentStore func(db database.DBTX) FulfillmentStore

// SubmitOrderRequest is the validated input for submitting an order.
// Line items arrive as snapshots: name (with an optional " (<size>)"
// suffix), unit price and quantity, frozen at submission time.
type SubmitOrderRequest struct {
	CustomerName  string
	CustomerPhone string
	PaymentMode   string
	TotalAmount   string
	Notes         string
	Items         []SubmitOrderItemRequest
}

// SubmitOrderItemRequest is a single line item in the order.
type SubmitOrderItemRequest struct {
	Name     string
	Price    string
	Quantity int32
}

// SubmitOrderResult is the persisted order with its line items.
type SubmitOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// FulfillmentService handles order submission, inventory deduction and
// status transitions.
type FulfillmentService struct {
	pool     TxBeginner
	newStore NewFulfillmentStore
	store    FulfillmentStore
	loc      *time.Location
	now      func() time.Time
}

// NewFulfillmentService creates a new FulfillmentService. store must be
// pool-bound (it is used outside transactions); loc fixes the calendar
// day used for order numbering.
func NewFulfillmentService(pool TxBeginner, newStore NewFulfillmentStore, store FulfillmentStore, loc *time.Location) *FulfillmentService {
	return &FulfillmentService{
		pool:     pool,
		newStore: newStore,
		store:    store,
		loc:      loc,
		now:      time.Now,
	}
}

// processedItem holds a parsed line item ready for insertion.
type processedItem struct {
	name     string
	price    decimal.Decimal
	quantity int32
}

// SubmitOrder validates the raw order, upserts the customer, assigns a
// day-scoped order number and persists the order atomically, then
// deducts inventory best-effort before returning. Retries up to
// maxOrderNumberRetries times on order_number unique constraint
// violations (race condition where concurrent submissions get the same
// MAX).
func (s *FulfillmentService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	// --- Validate required fields before any mutation ---
	if req.TotalAmount == "" {
		return nil, ErrMissingTotalAmount
	}
	totalAmount, err := decimal.NewFromString(req.TotalAmount)
	if err != nil || totalAmount.IsNegative() {
		return nil, ErrInvalidTotalAmount
	}
	if req.PaymentMode == "" {
		return nil, ErrMissingPaymentMode
	}

	items := make([]processedItem, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidItemPrice)
		}
		items[i] = processedItem{name: item.Name, price: price, quantity: item.Quantity}
	}

	// Retry loop: handles the order_number unique constraint race.
	var result *SubmitOrderResult
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err = s.submitOrderTx(ctx, req, totalAmount, items)
		if err == nil {
			lastErr = nil
			break
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}

	// Deduction is best-effort and runs after the order is committed: a
	// failed decrement never invalidates the order, but it completes
	// before the caller gets the response.
	s.deductInventory(ctx, result.Order.ID, items)

	return result, nil
}

// isOrderNumberConflict checks if the error is a unique constraint
// violation on the per-day order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_date_order_number_key"
	}
	return false
}

// submitOrderTx executes customer upsert, order numbering and order
// insertion in a single transaction.
func (s *FulfillmentService) submitOrderTx(ctx context.Context, req SubmitOrderRequest, totalAmount decimal.Decimal, items []processedItem) (*SubmitOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Upsert customer by name ---
	customerID := pgtype.UUID{}
	customerName := pgtype.Text{}
	customerPhone := pgtype.Text{}
	if req.CustomerName != "" {
		phone := pgtype.Text{}
		if req.CustomerPhone != "" {
			phone = pgtype.Text{String: req.CustomerPhone, Valid: true}
		}
		customer, err := store.UpsertCustomerOnOrder(ctx, database.UpsertCustomerOnOrderParams{
			Name:  req.CustomerName,
			Phone: phone,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert customer: %w", err)
		}
		customerID = pgtype.UUID{Bytes: customer.ID, Valid: true}
		customerName = pgtype.Text{String: req.CustomerName, Valid: true}
		customerPhone = phone
	}

	// --- Assign day-scoped order number ---
	day := s.orderDate(s.now())
	orderNumber, err := store.NextOrderNumber(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:   orderNumber,
		OrderDate:     day,
		CustomerID:    customerID,
		CustomerName:  customerName,
		CustomerPhone: customerPhone,
		PaymentMode:   req.PaymentMode,
		TotalAmount:   decimalToNumeric(totalAmount),
		Status:        enum.OrderStatusActive,
		Notes:         notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert line-item snapshots verbatim ---
	itemRows := make([]database.OrderItem, len(items))
	for i, item := range items {
		row, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:  order.ID,
			Name:     item.name,
			Price:    decimalToNumeric(item.price),
			Quantity: item.quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		itemRows[i] = row
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &SubmitOrderResult{Order: order, Items: itemRows}, nil
}

// deductInventory walks each line item back to its recipe and
// decrements ingredient stock by recipe quantity times line quantity.
// Missing menu items or recipes are skipped silently; individual
// failures are logged and do not stop the loop or undo the order. The
// order is flagged inventory_deducted only when nothing failed.
func (s *FulfillmentService) deductInventory(ctx context.Context, orderID uuid.UUID, items []processedItem) {
	deducted := true
	for _, item := range items {
		menuItem, err := s.store.GetMenuItemByName(ctx, baseItemName(item.name))
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			log.Printf("ERROR: deduct inventory: lookup menu item %q: %v", item.name, err)
			deducted = false
			continue
		}

		recipe, err := s.store.GetRecipeByMenuItem(ctx, menuItem.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			log.Printf("ERROR: deduct inventory: lookup recipe for %q: %v", menuItem.Name, err)
			deducted = false
			continue
		}

		ingredients, err := s.store.ListRecipeIngredients(ctx, recipe.ID)
		if err != nil {
			log.Printf("ERROR: deduct inventory: list ingredients for %q: %v", menuItem.Name, err)
			deducted = false
			continue
		}

		lineQty := decimal.NewFromInt32(item.quantity)
		for _, ing := range ingredients {
			consumed := numericToDecimal(ing.Quantity).Mul(lineQty)
			err := s.store.DeductInventoryStock(ctx, database.DeductInventoryStockParams{
				ID:       ing.InventoryItemID,
				Quantity: decimalToNumeric(consumed),
			})
			if err != nil {
				log.Printf("ERROR: deduct inventory: ingredient %s for %q: %v", ing.InventoryItemID, menuItem.Name, err)
				deducted = false
			}
		}
	}

	if deducted {
		if err := s.store.SetOrderInventoryDeducted(ctx, orderID); err != nil {
			log.Printf("ERROR: mark order %s inventory_deducted: %v", orderID, err)
		}
	}
}

// MarkDelivered sets the order status to delivered. The write is
// unconditional: a terminal status is silently overwritten, matching
// the historical behavior the front end depends on.
func (s *FulfillmentService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	return s.setStatus(ctx, orderID, enum.OrderStatusDelivered)
}

// MarkCanceled sets the order status to canceled. Same overwrite
// semantics as MarkDelivered.
func (s *FulfillmentService) MarkCanceled(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	return s.setStatus(ctx, orderID, enum.OrderStatusCanceled)
}

func (s *FulfillmentService) setStatus(ctx context.Context, orderID uuid.UUID, status string) (database.Order, error) {
	order, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:     orderID,
		Status: status,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return order, nil
}

// ListTodayActive returns today's open orders with their items, newest
// first. This is the polling feed for the live-orders screen.
func (s *FulfillmentService) ListTodayActive(ctx context.Context) ([]SubmitOrderResult, error) {
	orders, err := s.store.ListActiveOrdersByDate(ctx, s.orderDate(s.now()))
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	results := make([]SubmitOrderResult, len(orders))
	for i, o := range orders {
		items, err := s.store.ListOrderItemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		results[i] = SubmitOrderResult{Order: o, Items: items}
	}
	return results, nil
}

// orderDate buckets a timestamp into its calendar day in the configured
// timezone. Order numbering restarts at this boundary.
func (s *FulfillmentService) orderDate(t time.Time) pgtype.Date {
	local := t.In(s.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return pgtype.Date{Time: day, Valid: true}
}

// baseItemName strips a trailing " (<size>)" suffix from a line-item
// name, leaving the catalog name. "Juicy Chicken Kebab (Full)" resolves
// to "Juicy Chicken Kebab"; a suffix-free name passes through.
func baseItemName(name string) string {
	if idx := strings.Index(name, " ("); idx >= 0 {
		return name[:idx]
	}
	return name
}
