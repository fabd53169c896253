package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dcb-pos/api/internal/database"
	"github.com/dcb-pos/api/internal/enum"
)

// mockCatalogStore implements CatalogStore with configurable behavior.
type mockCatalogStore struct {
	createMenuItemFn func(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	updateMenuItemFn func(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	deleteMenuItemFn func(ctx context.Context, id uuid.UUID) error
	listMenuItemsFn  func(ctx context.Context) ([]database.MenuItem, error)
	createVariantFn  func(ctx context.Context, arg database.CreatePriceVariantParams) (database.PriceVariant, error)
	deleteVariantsFn func(ctx context.Context, menuItemID uuid.UUID) error
	listVariantsFn   func(ctx context.Context, menuItemID uuid.UUID) ([]database.PriceVariant, error)
	adjustPricesFn   func(ctx context.Context, multiplier pgtype.Numeric) (int64, error)
	resetPricesFn    func(ctx context.Context) (int64, error)
}

func (m *mockCatalogStore) CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	return m.createMenuItemFn(ctx, arg)
}
func (m *mockCatalogStore) UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
	return m.updateMenuItemFn(ctx, arg)
}
func (m *mockCatalogStore) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	return m.deleteMenuItemFn(ctx, id)
}
func (m *mockCatalogStore) ListMenuItems(ctx context.Context) ([]database.MenuItem, error) {
	return m.listMenuItemsFn(ctx)
}
func (m *mockCatalogStore) CreatePriceVariant(ctx context.Context, arg database.CreatePriceVariantParams) (database.PriceVariant, error) {
	return m.createVariantFn(ctx, arg)
}
func (m *mockCatalogStore) DeletePriceVariantsByMenuItem(ctx context.Context, menuItemID uuid.UUID) error {
	return m.deleteVariantsFn(ctx, menuItemID)
}
func (m *mockCatalogStore) ListPriceVariantsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.PriceVariant, error) {
	return m.listVariantsFn(ctx, menuItemID)
}
func (m *mockCatalogStore) AdjustCurrentPrices(ctx context.Context, multiplier pgtype.Numeric) (int64, error) {
	return m.adjustPricesFn(ctx, multiplier)
}
func (m *mockCatalogStore) ResetCurrentPrices(ctx context.Context) (int64, error) {
	return m.resetPricesFn(ctx)
}

func defaultCatalogStore() *mockCatalogStore {
	return &mockCatalogStore{
		createMenuItemFn: func(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
			return database.MenuItem{ID: uuid.New(), Category: arg.Category, Name: arg.Name}, nil
		},
		updateMenuItemFn: func(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
			return database.MenuItem{ID: arg.ID, Category: arg.Category, Name: arg.Name}, nil
		},
		deleteMenuItemFn: func(ctx context.Context, id uuid.UUID) error { return nil },
		listMenuItemsFn:  func(ctx context.Context) ([]database.MenuItem, error) { return nil, nil },
		createVariantFn: func(ctx context.Context, arg database.CreatePriceVariantParams) (database.PriceVariant, error) {
			return database.PriceVariant{
				ID:           uuid.New(),
				MenuItemID:   arg.MenuItemID,
				Size:         arg.Size,
				BasePrice:    arg.BasePrice,
				CurrentPrice: arg.CurrentPrice,
			}, nil
		},
		deleteVariantsFn: func(ctx context.Context, menuItemID uuid.UUID) error { return nil },
		listVariantsFn: func(ctx context.Context, menuItemID uuid.UUID) ([]database.PriceVariant, error) {
			return nil, nil
		},
		adjustPricesFn: func(ctx context.Context, multiplier pgtype.Numeric) (int64, error) { return 0, nil },
		resetPricesFn:  func(ctx context.Context) (int64, error) { return 0, nil },
	}
}

func newTestCatalog(store *mockCatalogStore) *CatalogService {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) CatalogStore { return store }
	return NewCatalogService(pool, newStore, store)
}

// =====================
// Menu CRUD tests
// =====================

func TestCreateMenuItem_MissingName(t *testing.T) {
	svc := newTestCatalog(defaultCatalogStore())

	_, err := svc.CreateMenuItem(context.Background(), MenuItemRequest{
		Category: "Starters",
		Prices:   map[string]string{"Full": "180"},
	})
	if !errors.Is(err, ErrMissingMenuName) {
		t.Fatalf("expected ErrMissingMenuName, got: %v", err)
	}
}

func TestCreateMenuItem_NoPrices(t *testing.T) {
	svc := newTestCatalog(defaultCatalogStore())

	_, err := svc.CreateMenuItem(context.Background(), MenuItemRequest{
		Name:     "Juicy Chicken Kebab",
		Category: "Starters",
	})
	if !errors.Is(err, ErrMissingPrices) {
		t.Fatalf("expected ErrMissingPrices, got: %v", err)
	}
}

func TestCreateMenuItem_BasePriceAnchoredToCurrent(t *testing.T) {
	store := defaultCatalogStore()

	var captured []database.CreatePriceVariantParams
	store.createVariantFn = func(ctx context.Context, arg database.CreatePriceVariantParams) (database.PriceVariant, error) {
		captured = append(captured, arg)
		return database.PriceVariant{ID: uuid.New(), MenuItemID: arg.MenuItemID, Size: arg.Size, BasePrice: arg.BasePrice, CurrentPrice: arg.CurrentPrice}, nil
	}

	svc := newTestCatalog(store)
	detail, err := svc.CreateMenuItem(context.Background(), MenuItemRequest{
		Name:     "Juicy Chicken Kebab",
		Category: "Starters",
		Prices:   map[string]string{"Half": "100", "Full": "180"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detail.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(detail.Variants))
	}
	for _, arg := range captured {
		if !numericToDecimal(arg.BasePrice).Equal(numericToDecimal(arg.CurrentPrice)) {
			t.Errorf("variant %q: base %v != current %v", arg.Size, numericToDecimal(arg.BasePrice), numericToDecimal(arg.CurrentPrice))
		}
	}
}

func TestCreateMenuItem_DuplicateName(t *testing.T) {
	store := defaultCatalogStore()
	store.createMenuItemFn = func(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
		return database.MenuItem{}, &pgconn.PgError{Code: "23505", ConstraintName: "menu_items_lower_name_key"}
	}

	svc := newTestCatalog(store)
	_, err := svc.CreateMenuItem(context.Background(), MenuItemRequest{
		Name:     "juicy chicken kebab",
		Category: "Starters",
		Prices:   map[string]string{"Full": "180"},
	})
	if !errors.Is(err, ErrDuplicateMenuName) {
		t.Fatalf("expected ErrDuplicateMenuName, got: %v", err)
	}
}

func TestUpdateMenuItem_ReplacesVariants(t *testing.T) {
	store := defaultCatalogStore()
	menuItemID := uuid.New()

	deleteCalled := false
	store.deleteVariantsFn = func(ctx context.Context, id uuid.UUID) error {
		deleteCalled = true
		if id != menuItemID {
			t.Errorf("deleted variants for wrong item: %v", id)
		}
		return nil
	}
	created := 0
	store.createVariantFn = func(ctx context.Context, arg database.CreatePriceVariantParams) (database.PriceVariant, error) {
		created++
		return database.PriceVariant{ID: uuid.New(), MenuItemID: arg.MenuItemID, Size: arg.Size, BasePrice: arg.BasePrice, CurrentPrice: arg.CurrentPrice}, nil
	}

	svc := newTestCatalog(store)
	_, err := svc.UpdateMenuItem(context.Background(), menuItemID, MenuItemRequest{
		Name:     "Juicy Chicken Kebab",
		Category: "Starters",
		Prices:   map[string]string{"Full": "200"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleteCalled {
		t.Error("existing variants should be deleted before re-creation")
	}
	if created != 1 {
		t.Errorf("expected 1 new variant, got %d", created)
	}
}

// =====================
// Bulk price revision tests
// =====================

func TestBulkAdjustPrices_IncreaseMultiplier(t *testing.T) {
	store := defaultCatalogStore()

	var captured pgtype.Numeric
	store.adjustPricesFn = func(ctx context.Context, multiplier pgtype.Numeric) (int64, error) {
		captured = multiplier
		return 17, nil
	}

	svc := newTestCatalog(store)
	updated, err := svc.BulkAdjustPrices(context.Background(), "10", enum.PriceDirectionIncrease)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != 17 {
		t.Errorf("updated count: got %d, want 17", updated)
	}
	if !numericEquals(captured, "1.1") {
		t.Errorf("multiplier: got %v, want 1.1", numericToDecimal(captured))
	}
}

func TestBulkAdjustPrices_DecreaseMultiplier(t *testing.T) {
	store := defaultCatalogStore()

	var captured pgtype.Numeric
	store.adjustPricesFn = func(ctx context.Context, multiplier pgtype.Numeric) (int64, error) {
		captured = multiplier
		return 17, nil
	}

	svc := newTestCatalog(store)
	_, err := svc.BulkAdjustPrices(context.Background(), "12.5", enum.PriceDirectionDecrease)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(captured, "0.875") {
		t.Errorf("multiplier: got %v, want 0.875", numericToDecimal(captured))
	}
}

func TestBulkAdjustPrices_Validation(t *testing.T) {
	svc := newTestCatalog(defaultCatalogStore())

	if _, err := svc.BulkAdjustPrices(context.Background(), "", enum.PriceDirectionIncrease); !errors.Is(err, ErrMissingPercentage) {
		t.Errorf("empty percentage: expected ErrMissingPercentage, got %v", err)
	}
	if _, err := svc.BulkAdjustPrices(context.Background(), "-5", enum.PriceDirectionIncrease); !errors.Is(err, ErrInvalidPercentage) {
		t.Errorf("negative percentage: expected ErrInvalidPercentage, got %v", err)
	}
	if _, err := svc.BulkAdjustPrices(context.Background(), "10", "sideways"); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("bad direction: expected ErrInvalidDirection, got %v", err)
	}
}

func TestResetPrices(t *testing.T) {
	store := defaultCatalogStore()
	store.resetPricesFn = func(ctx context.Context) (int64, error) { return 34, nil }

	svc := newTestCatalog(store)
	updated, err := svc.ResetPrices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != 34 {
		t.Errorf("updated count: got %d, want 34", updated)
	}
}
