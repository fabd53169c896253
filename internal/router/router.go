package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dcb-pos/api/internal/config"
	"github.com/dcb-pos/api/internal/database"
	"github.com/dcb-pos/api/internal/handler"
	"github.com/dcb-pos/api/internal/service"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, loc *time.Location) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration. The counter frontend runs on the same LAN as
	// the server, so origins stay permissive.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Menu catalog
		newCatalogStore := func(db database.DBTX) service.CatalogStore {
			return database.New(db)
		}
		catalogService := service.NewCatalogService(pool, newCatalogStore, queries)
		menuHandler := handler.NewMenuHandler(catalogService)
		r.Route("/menu", menuHandler.RegisterRoutes)

		// Inventory
		inventoryService := service.NewInventoryService(queries)
		inventoryHandler := handler.NewInventoryHandler(inventoryService)
		r.Route("/inventory", inventoryHandler.RegisterRoutes)

		// Recipes
		newRecipeStore := func(db database.DBTX) service.RecipeStore {
			return database.New(db)
		}
		recipeService := service.NewRecipeService(pool, newRecipeStore, queries)
		recipeHandler := handler.NewRecipeHandler(recipeService)
		r.Route("/recipes", recipeHandler.RegisterRoutes)

		// Orders
		newFulfillmentStore := func(db database.DBTX) service.FulfillmentStore {
			return database.New(db)
		}
		fulfillmentService := service.NewFulfillmentService(pool, newFulfillmentStore, queries, loc)
		orderHandler := handler.NewOrderHandler(fulfillmentService)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Customers
		customerService := service.NewCustomerService(queries)
		customerHandler := handler.NewCustomerHandler(customerService)
		r.Route("/customers", customerHandler.RegisterRoutes)

		// Reports
		reportService := service.NewReportService(queries, loc)
		reportHandler := handler.NewReportHandler(reportService)
		r.Route("/reports", reportHandler.RegisterRoutes)
	})

	return r
}
