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

// MenuService defines the catalog operations needed by menu handlers.
// Satisfied by *service.CatalogService; narrow interface for testability.
type MenuService interface {
	CreateMenuItem(ctx context.Context, req service.MenuItemRequest) (*service.MenuItemDetail, error)
	UpdateMenuItem(ctx context.Context, id uuid.UUID, req service.MenuItemRequest) (*service.MenuItemDetail, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) error
	ListMenu(ctx context.Context) ([]service.MenuItemDetail, error)
	BulkAdjustPrices(ctx context.Context, percentage string, direction string) (int64, error)
	ResetPrices(ctx context.Context) (int64, error)
}

// MenuHandler handles menu catalog and bulk pricing endpoints.
type MenuHandler struct {
	svc MenuService
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc MenuService) *MenuHandler {
	return &MenuHandler{svc: svc}
}

// RegisterRoutes registers menu endpoints. Mounted at /api/menu.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/bulk-update-prices", h.BulkUpdatePrices)
	r.Post("/bulk-reset-prices", h.BulkResetPrices)
	r.Route("/{id}", func(r chi.Router) {
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Prices   map[string]string `json:"prices"`
}

type priceVariantResponse struct {
	Size         string `json:"size"`
	BasePrice    string `json:"base_price"`
	CurrentPrice string `json:"current_price"`
}

type menuItemResponse struct {
	ID       uuid.UUID              `json:"id"`
	Category string                 `json:"category"`
	Name     string                 `json:"name"`
	Prices   []priceVariantResponse `json:"prices"`
}

type bulkPriceRequest struct {
	Percentage string `json:"percentage"`
	Direction  string `json:"direction"`
}

type bulkPriceResponse struct {
	Updated int64 `json:"updated"`
}

func toMenuItemResponse(d service.MenuItemDetail) menuItemResponse {
	prices := make([]priceVariantResponse, len(d.Variants))
	for i, v := range d.Variants {
		prices[i] = priceVariantResponse{
			Size:         v.Size,
			BasePrice:    numericToString(v.BasePrice),
			CurrentPrice: numericToString(v.CurrentPrice),
		}
	}
	return menuItemResponse{
		ID:       d.Item.ID,
		Category: d.Item.Category,
		Name:     d.Item.Name,
		Prices:   prices,
	}
}

// --- Handlers ---

// List returns the full menu with price variants.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListMenu(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, item := range items {
		resp[i] = toMenuItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new menu item with its per-size prices.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	detail, err := h.svc.CreateMenuItem(r.Context(), service.MenuItemRequest{
		Name:     req.Name,
		Category: req.Category,
		Prices:   req.Prices,
	})
	if err != nil {
		writeMenuError(w, err, "create menu item")
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(*detail))
}

// Update replaces a menu item's name, category and prices.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	detail, err := h.svc.UpdateMenuItem(r.Context(), id, service.MenuItemRequest{
		Name:     req.Name,
		Category: req.Category,
		Prices:   req.Prices,
	})
	if err != nil {
		writeMenuError(w, err, "update menu item")
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(*detail))
}

// Delete removes a menu item and its variants.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	if err := h.svc.DeleteMenuItem(r.Context(), id); err != nil {
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkUpdatePrices revises every current price by a percentage.
func (h *MenuHandler) BulkUpdatePrices(w http.ResponseWriter, r *http.Request) {
	var req bulkPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.svc.BulkAdjustPrices(r.Context(), req.Percentage, req.Direction)
	if err != nil {
		writeMenuError(w, err, "bulk update prices")
		return
	}
	writeJSON(w, http.StatusOK, bulkPriceResponse{Updated: updated})
}

// BulkResetPrices restores every current price to its base price.
func (h *MenuHandler) BulkResetPrices(w http.ResponseWriter, r *http.Request) {
	updated, err := h.svc.ResetPrices(r.Context())
	if err != nil {
		log.Printf("ERROR: reset prices: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, bulkPriceResponse{Updated: updated})
}

// writeMenuError maps catalog sentinel errors onto HTTP statuses.
func writeMenuError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrMissingMenuName),
		errors.Is(err, service.ErrMissingCategory),
		errors.Is(err, service.ErrMissingPrices),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrMissingPercentage),
		errors.Is(err, service.ErrInvalidPercentage),
		errors.Is(err, service.ErrInvalidDirection):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrMenuItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
	case errors.Is(err, service.ErrDuplicateMenuName):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
