package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dcb-pos/api/internal/service"
)

// RecipeService defines the recipe operations needed by recipe
// handlers. Satisfied by *service.RecipeService.
type RecipeService interface {
	SaveRecipe(ctx context.Context, menuItemID uuid.UUID, ingredients []service.RecipeIngredientRequest) (*service.RecipeDetail, error)
	GetRecipe(ctx context.Context, menuItemID uuid.UUID) (*service.RecipeDetail, error)
}

// RecipeHandler handles recipe endpoints.
type RecipeHandler struct {
	svc RecipeService
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(svc RecipeService) *RecipeHandler {
	return &RecipeHandler{svc: svc}
}

// RegisterRoutes registers recipe endpoints. Mounted at /api/recipes.
func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Save)
	r.Get("/{menuItemId}", h.Get)
}

// --- Request / Response types ---

type recipeIngredientRequest struct {
	InventoryItemID string `json:"inventory_item_id"`
	Quantity        string `json:"quantity"`
}

type saveRecipeRequest struct {
	MenuItemID  string                    `json:"menu_item_id"`
	Ingredients []recipeIngredientRequest `json:"ingredients"`
}

type recipeIngredientResponse struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Name            string    `json:"name"`
	Unit            string    `json:"unit"`
	Quantity        string    `json:"quantity"`
	AverageCost     string    `json:"average_cost"`
}

type recipeResponse struct {
	ID          uuid.UUID                  `json:"id"`
	MenuItemID  uuid.UUID                  `json:"menu_item_id"`
	Ingredients []recipeIngredientResponse `json:"ingredients"`
	UnitCost    string                     `json:"unit_cost"`
}

func toRecipeResponse(d *service.RecipeDetail) recipeResponse {
	ingredients := make([]recipeIngredientResponse, len(d.Ingredients))
	for i, ing := range d.Ingredients {
		ingredients[i] = recipeIngredientResponse{
			InventoryItemID: ing.InventoryItemID,
			Name:            ing.Name,
			Unit:            ing.Unit,
			Quantity:        numericToPlainString(ing.Quantity),
			AverageCost:     numericToPlainString(ing.AverageCost),
		}
	}
	return recipeResponse{
		ID:          d.Recipe.ID,
		MenuItemID:  d.Recipe.MenuItemID,
		Ingredients: ingredients,
		UnitCost:    d.UnitCost.StringFixed(2),
	}
}

// --- Handlers ---

// Save creates or replaces the recipe for a menu item.
func (h *RecipeHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	ingredients := make([]service.RecipeIngredientRequest, len(req.Ingredients))
	for i, ing := range req.Ingredients {
		itemID, err := uuid.Parse(ing.InventoryItemID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory item ID"})
			return
		}
		ingredients[i] = service.RecipeIngredientRequest{InventoryItemID: itemID, Quantity: ing.Quantity}
	}

	detail, err := h.svc.SaveRecipe(r.Context(), menuItemID, ingredients)
	if err != nil {
		writeRecipeError(w, err, "save recipe")
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(detail))
}

// Get returns the costed recipe for a menu item.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	menuItemID, err := uuid.Parse(chi.URLParam(r, "menuItemId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	detail, err := h.svc.GetRecipe(r.Context(), menuItemID)
	if err != nil {
		writeRecipeError(w, err, "get recipe")
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(detail))
}

// writeRecipeError maps recipe sentinel errors onto HTTP statuses.
func writeRecipeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrMissingIngredients),
		errors.Is(err, service.ErrInvalidIngredient),
		errors.Is(err, service.ErrRecipeMenuItemGone):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrRecipeNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "recipe not found"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
