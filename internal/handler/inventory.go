package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dcb-pos/api/internal/database"
	"github.com/dcb-pos/api/internal/service"
)

// InventoryService defines the stock operations needed by inventory
// handlers. Satisfied by *service.InventoryService.
type InventoryService interface {
	CreateItem(ctx context.Context, req service.CreateInventoryItemRequest) (database.InventoryItem, error)
	ListItems(ctx context.Context) ([]database.InventoryItem, error)
	Refill(ctx context.Context, id uuid.UUID, req service.RefillRequest) (database.InventoryItem, error)
}

// InventoryHandler handles ingredient stock endpoints.
type InventoryHandler struct {
	svc InventoryService
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(svc InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// RegisterRoutes registers inventory endpoints. Mounted at /api/inventory.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}/refill", h.Refill)
}

// --- Request / Response types ---

type createInventoryItemRequest struct {
	Name            string `json:"name"`
	Unit            string `json:"unit"`
	QuantityInStock string `json:"quantity_in_stock"`
	AverageCost     string `json:"average_cost"`
}

type refillRequest struct {
	QuantityAdded string `json:"quantity_added"`
	TotalCost     string `json:"total_cost"`
}

type inventoryItemResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Unit            string    `json:"unit"`
	QuantityInStock string    `json:"quantity_in_stock"`
	AverageCost     string    `json:"average_cost"`
}

func toInventoryItemResponse(i database.InventoryItem) inventoryItemResponse {
	return inventoryItemResponse{
		ID:              i.ID,
		Name:            i.Name,
		Unit:            i.Unit,
		QuantityInStock: numericToPlainString(i.QuantityInStock),
		AverageCost:     numericToPlainString(i.AverageCost),
	}
}

// --- Handlers ---

// List returns every tracked ingredient.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]inventoryItemResponse, len(items))
	for i, item := range items {
		resp[i] = toInventoryItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create registers a new tracked ingredient.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.svc.CreateItem(r.Context(), service.CreateInventoryItemRequest{
		Name:            req.Name,
		Unit:            req.Unit,
		QuantityInStock: req.QuantityInStock,
		AverageCost:     req.AverageCost,
	})
	if err != nil {
		writeInventoryError(w, err, "create inventory item")
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryItemResponse(item))
}

// Refill records a purchase lot: quantity added and its total cost.
func (h *InventoryHandler) Refill(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory item ID"})
		return
	}

	var req refillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.svc.Refill(r.Context(), id, service.RefillRequest{
		QuantityAdded: req.QuantityAdded,
		TotalCost:     req.TotalCost,
	})
	if err != nil {
		writeInventoryError(w, err, "refill inventory item")
		return
	}
	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

// writeInventoryError maps inventory sentinel errors onto HTTP statuses.
func writeInventoryError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrMissingItemName),
		errors.Is(err, service.ErrMissingUnit),
		errors.Is(err, service.ErrInvalidStartingCost),
		errors.Is(err, service.ErrInvalidQuantityAdd),
		errors.Is(err, service.ErrInvalidLotCost):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInventoryNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
	case errors.Is(err, service.ErrRefillConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
