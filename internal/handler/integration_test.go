//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dcb-pos/api/internal/config"
	"github.com/dcb-pos/api/internal/database"
	"github.com/dcb-pos/api/internal/router"
)

// TestIntegrationFlow exercises the full API lifecycle against a real
// PostgreSQL database: catalog setup, recipe costing, order submission
// with day-scoped numbering and stock deduction, delivery, reporting,
// bulk pricing, refill, and the customer directory.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	// Run migrations
	runMigrations(t, connStr)

	// Create pgxpool connection
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	// UTC keeps date assertions below independent of the host timezone.
	cfg := &config.Config{
		Port:        "3005",
		DatabaseURL: connStr,
		Timezone:    "UTC",
	}
	queries := database.New(pool)

	r := router.New(cfg, queries, pool, time.UTC)
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Create a menu item with two price variants ---
	menuResp := httpPostJSON(t, server, "/api/menu", map[string]interface{}{
		"name":     "Juicy Chicken Kebab",
		"category": "Tandoori Menu",
		"prices":   map[string]string{"Half": "79", "Full": "149"},
	})
	menuItemID := uuid.MustParse(menuResp["id"].(string))
	if prices := menuResp["prices"].([]interface{}); len(prices) != 2 {
		t.Fatalf("menu item prices: got %d variants, want 2", len(prices))
	}

	// --- 2. Create tracked ingredients ---
	chickenResp := httpPostJSON(t, server, "/api/inventory", map[string]interface{}{
		"name": "Chicken", "unit": "kg", "quantity_in_stock": "10", "average_cost": "240",
	})
	chickenID := uuid.MustParse(chickenResp["id"].(string))

	curdResp := httpPostJSON(t, server, "/api/inventory", map[string]interface{}{
		"name": "Curd", "unit": "kg", "quantity_in_stock": "20", "average_cost": "80",
	})
	curdID := uuid.MustParse(curdResp["id"].(string))

	// --- 3. Save the recipe and verify its unit cost ---
	// 0.25 kg chicken at 240 plus 0.05 kg curd at 80 = 64 per plate.
	recipeResp := httpPostJSON(t, server, "/api/recipes", map[string]interface{}{
		"menu_item_id": menuItemID.String(),
		"ingredients": []map[string]interface{}{
			{"inventory_item_id": chickenID.String(), "quantity": "0.25"},
			{"inventory_item_id": curdID.String(), "quantity": "0.05"},
		},
	})
	if unitCost := recipeResp["unit_cost"].(string); unitCost != "64.00" {
		t.Fatalf("recipe unit_cost: got %s, want 64.00", unitCost)
	}

	// --- 4. Submit an order for a named customer ---
	order1Resp := httpPostJSON(t, server, "/api/orders", map[string]interface{}{
		"customer_name":  "John Doe",
		"customer_phone": "9876543210",
		"payment_mode":   "Cash",
		"total_amount":   "298.00",
		"items": []map[string]interface{}{
			{"name": "Juicy Chicken Kebab (Full)", "price": "149.00", "quantity": 2},
		},
	})
	order1ID := uuid.MustParse(order1Resp["id"].(string))
	if n := order1Resp["order_number"].(float64); n != 1 {
		t.Fatalf("first order_number: got %v, want 1", n)
	}
	if status := order1Resp["status"].(string); status != "active" {
		t.Fatalf("order status: got %s, want active", status)
	}

	// --- 5. Second order (anonymous) takes the next number ---
	order2Resp := httpPostJSON(t, server, "/api/orders", map[string]interface{}{
		"payment_mode": "UPI",
		"total_amount": "149.00",
		"items": []map[string]interface{}{
			{"name": "Juicy Chicken Kebab (Full)", "price": "149.00", "quantity": 1},
		},
	})
	order2ID := uuid.MustParse(order2Resp["id"].(string))
	if n := order2Resp["order_number"].(float64); n != 2 {
		t.Fatalf("second order_number: got %v, want 2", n)
	}

	// --- 6. Today's board shows both active orders ---
	today := httpGetJSONList(t, server, "/api/orders/today")
	if len(today) != 2 {
		t.Fatalf("today's orders: got %d, want 2", len(today))
	}

	// --- 7. Stock was deducted by recipe quantity times line quantity ---
	// Three plates total: chicken 10 - 0.75, curd 20 - 0.15.
	verifyStock(t, server, "Chicken", "9.25")
	verifyStock(t, server, "Curd", "19.85")

	// --- 8. Deliver both orders ---
	deliver1 := httpPatchJSON(t, server, fmt.Sprintf("/api/orders/%s/deliver", order1ID))
	if status := deliver1["status"].(string); status != "delivered" {
		t.Fatalf("delivered status: got %s, want delivered", status)
	}
	httpPatchJSON(t, server, fmt.Sprintf("/api/orders/%s/deliver", order2ID))

	// Status writes are unconditional: a delivered order can still be
	// canceled, and a canceled one delivered again.
	cancel2 := httpPatchJSON(t, server, fmt.Sprintf("/api/orders/%s/cancel", order2ID))
	if status := cancel2["status"].(string); status != "canceled" {
		t.Fatalf("cancel after deliver: got %s, want canceled", status)
	}
	redeliver2 := httpPatchJSON(t, server, fmt.Sprintf("/api/orders/%s/deliver", order2ID))
	if status := redeliver2["status"].(string); status != "delivered" {
		t.Fatalf("deliver after cancel: got %s, want delivered", status)
	}

	// --- 9. Report for today: revenue, breakdown, COGS, profit ---
	// Revenue 298 + 149 = 447; COGS 3 plates at 64 = 192; profit 255.
	day := time.Now().UTC().Format("2006-01-02")
	report := httpGetJSON(t, server, fmt.Sprintf("/api/reports?startDate=%s&endDate=%s", day, day))
	if rev := report["total_revenue"].(string); rev != "447.00" {
		t.Fatalf("report total_revenue: got %s, want 447.00", rev)
	}
	if count := report["order_count"].(float64); count != 2 {
		t.Fatalf("report order_count: got %v, want 2", count)
	}
	breakdown := report["payment_breakdown"].(map[string]interface{})
	if breakdown["cash"].(string) != "298.00" || breakdown["upi"].(string) != "149.00" {
		t.Fatalf("payment_breakdown: got %v", breakdown)
	}
	if cogs := report["cogs"].(string); cogs != "192.00" {
		t.Fatalf("report cogs: got %s, want 192.00", cogs)
	}
	if profit := report["gross_profit"].(string); profit != "255.00" {
		t.Fatalf("report gross_profit: got %s, want 255.00", profit)
	}

	// --- 10. Bulk price revision and reset ---
	bulkResp := httpPostJSON(t, server, "/api/menu/bulk-update-prices", map[string]interface{}{
		"percentage": "10", "direction": "increase",
	})
	if updated := bulkResp["updated"].(float64); updated != 2 {
		t.Fatalf("bulk update count: got %v, want 2", updated)
	}
	// 149 * 1.1 rounds to 164, 79 * 1.1 rounds to 87.
	verifyCurrentPrice(t, server, "Full", "164.00")
	verifyCurrentPrice(t, server, "Half", "87.00")

	resetResp := httpPostJSON(t, server, "/api/menu/bulk-reset-prices", map[string]interface{}{})
	if updated := resetResp["updated"].(float64); updated != 2 {
		t.Fatalf("bulk reset count: got %v, want 2", updated)
	}
	verifyCurrentPrice(t, server, "Full", "149.00")

	// --- 11. Refill recomputes the weighted average cost ---
	// (9.25 * 240 + 1500) / 15 = 248.
	refillResp := httpPutJSON(t, server, fmt.Sprintf("/api/inventory/%s/refill", chickenID), map[string]interface{}{
		"quantity_added": "5.75", "total_cost": "1500",
	})
	if qty := refillResp["quantity_in_stock"].(string); qty != "15" {
		t.Fatalf("refilled quantity: got %s, want 15", qty)
	}
	if cost := refillResp["average_cost"].(string); cost != "248" {
		t.Fatalf("refilled average_cost: got %s, want 248", cost)
	}

	// --- 12. Repeat order without a phone keeps the stored phone ---
	// The item is off the menu, so no stock moves; only the customer
	// row is touched.
	httpPostJSON(t, server, "/api/orders", map[string]interface{}{
		"customer_name": "John Doe",
		"payment_mode":  "Cash",
		"total_amount":  "12.00",
		"items": []map[string]interface{}{
			{"name": "Roomali (Standard)", "price": "12.00", "quantity": 1},
		},
	})

	// --- 13. Customer directory reflects both upserts for order 1's customer ---
	customers := httpGetJSONList(t, server, "/api/customers")
	if len(customers) != 1 {
		t.Fatalf("customers: got %d, want 1", len(customers))
	}
	customer := customers[0].(map[string]interface{})
	if customer["name"].(string) != "John Doe" {
		t.Fatalf("customer name: got %v, want John Doe", customer["name"])
	}
	if phone := customer["phone"].(string); phone != "9876543210" {
		t.Fatalf("customer phone after phoneless repeat order: got %v, want 9876543210", phone)
	}
	if count := customer["order_count"].(float64); count != 2 {
		t.Fatalf("customer order_count: got %v, want 2", count)
	}

	found := httpGetJSONList(t, server, "/api/customers/search?q=john")
	if len(found) != 1 {
		t.Fatalf("customer search: got %d results, want 1", len(found))
	}

	csvBody := httpGetRaw(t, server, "/api/customers/export")
	if !strings.HasPrefix(csvBody, "name,phone,customer_since,last_ordered,order_count\n") {
		t.Fatalf("customer export missing header: %q", csvBody)
	}
	if !strings.Contains(csvBody, "John Doe,9876543210,") {
		t.Fatalf("customer export missing row: %q", csvBody)
	}

	t.Logf("Integration test passed: container=%s, menu=%s, orders=%s/%s",
		pgContainer.GetContainerID(), menuItemID, order1ID, order2ID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	// Connect with stdlib for migrate
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this test file's package directory.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

// --- Assertion helpers ---

func verifyStock(t *testing.T, server *httptest.Server, name, want string) {
	t.Helper()
	for _, raw := range httpGetJSONList(t, server, "/api/inventory") {
		item := raw.(map[string]interface{})
		if item["name"].(string) != name {
			continue
		}
		if got := item["quantity_in_stock"].(string); got != want {
			t.Fatalf("%s stock: got %s, want %s", name, got, want)
		}
		return
	}
	t.Fatalf("inventory item %q not found", name)
}

func verifyCurrentPrice(t *testing.T, server *httptest.Server, size, want string) {
	t.Helper()
	menu := httpGetJSONList(t, server, "/api/menu")
	if len(menu) == 0 {
		t.Fatalf("menu is empty")
	}
	for _, raw := range menu[0].(map[string]interface{})["prices"].([]interface{}) {
		variant := raw.(map[string]interface{})
		if variant["size"].(string) != size {
			continue
		}
		if got := variant["current_price"].(string); got != want {
			t.Fatalf("%s current_price: got %s, want %s", size, got, want)
		}
		return
	}
	t.Fatalf("price variant %q not found", size)
}

// --- HTTP helpers ---

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	return httpJSON(t, server, "POST", path, body)
}

func httpPutJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	return httpJSON(t, server, "PUT", path, body)
}

func httpPatchJSON(t *testing.T, server *httptest.Server, path string) map[string]interface{} {
	t.Helper()
	return httpJSON(t, server, "PATCH", path, nil)
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string) map[string]interface{} {
	t.Helper()
	return httpJSON(t, server, "GET", path, nil)
}

func httpJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	if err := json.Unmarshal(httpDo(t, server, method, path, body), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func httpGetJSONList(t *testing.T, server *httptest.Server, path string) []interface{} {
	t.Helper()

	var result []interface{}
	if err := json.Unmarshal(httpDo(t, server, "GET", path, nil), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func httpGetRaw(t *testing.T, server *httptest.Server, path string) string {
	t.Helper()
	return string(httpDo(t, server, "GET", path, nil))
}

func httpDo(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}) []byte {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.Fatalf("%s %s: status %d, body: %s", method, path, resp.StatusCode, raw)
	}
	return raw
}
