package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dcb-pos/api/internal/database"
	"github.com/dcb-pos/api/internal/service"
)

// OrderService defines the fulfillment operations needed by order
// handlers. Satisfied by *service.FulfillmentService.
type OrderService interface {
	SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (*service.SubmitOrderResult, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (database.Order, error)
	MarkCanceled(ctx context.Context, orderID uuid.UUID) (database.Order, error)
	ListTodayActive(ctx context.Context) ([]service.SubmitOrderResult, error)
}

// OrderHandler handles order submission and tracking endpoints.
type OrderHandler struct {
	svc OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints. Mounted at /api/orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Submit)
	r.Get("/today", h.Today)
	r.Patch("/{id}/deliver", h.Deliver)
	r.Patch("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type submitOrderItemRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int32  `json:"quantity"`
}

type submitOrderRequest struct {
	CustomerName  string                   `json:"customer_name"`
	CustomerPhone string                   `json:"customer_phone"`
	PaymentMode   string                   `json:"payment_mode"`
	TotalAmount   string                   `json:"total_amount"`
	Notes         string                   `json:"notes"`
	Items         []submitOrderItemRequest `json:"items"`
}

type orderItemResponse struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int32  `json:"quantity"`
}

type orderResponse struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       int32               `json:"order_number"`
	OrderDate         string              `json:"order_date"`
	CustomerName      *string             `json:"customer_name"`
	CustomerPhone     *string             `json:"customer_phone"`
	PaymentMode       string              `json:"payment_mode"`
	TotalAmount       string              `json:"total_amount"`
	Status            string              `json:"status"`
	Notes             *string             `json:"notes"`
	InventoryDeducted bool                `json:"inventory_deducted"`
	CreatedAt         time.Time           `json:"created_at"`
	Items             []orderItemResponse `json:"items"`
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		PaymentMode:       o.PaymentMode,
		TotalAmount:       numericToString(o.TotalAmount),
		Status:            o.Status,
		InventoryDeducted: o.InventoryDeducted,
		CreatedAt:         o.CreatedAt,
	}
	if o.OrderDate.Valid {
		resp.OrderDate = o.OrderDate.Time.Format("2006-01-02")
	}
	if o.CustomerName.Valid {
		resp.CustomerName = &o.CustomerName.String
	}
	if o.CustomerPhone.Valid {
		resp.CustomerPhone = &o.CustomerPhone.String
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			Name:     item.Name,
			Price:    numericToString(item.Price),
			Quantity: item.Quantity,
		}
	}
	return resp
}

// --- Handlers ---

// Submit validates and persists a new order, then returns it with its
// day-scoped order number.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.SubmitOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.SubmitOrderItemRequest{Name: item.Name, Price: item.Price, Quantity: item.Quantity}
	}

	result, err := h.svc.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PaymentMode:   req.PaymentMode,
		TotalAmount:   req.TotalAmount,
		Notes:         req.Notes,
		Items:         items,
	})
	if err != nil {
		writeOrderError(w, err, "submit order")
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Items))
}

// Today returns today's active orders, newest first. Front ends poll
// this for the live-orders screen.
func (h *OrderHandler) Today(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.ListTodayActive(r.Context())
	if err != nil {
		log.Printf("ERROR: list today's orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(results))
	for i, res := range results {
		resp[i] = toOrderResponse(res.Order, res.Items)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Deliver marks an order delivered.
func (h *OrderHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.svc.MarkDelivered)
}

// Cancel marks an order canceled.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.svc.MarkCanceled)
}

func (h *OrderHandler) setStatus(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (database.Order, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := fn(r.Context(), id)
	if err != nil {
		writeOrderError(w, err, "update order status")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, nil))
}

// writeOrderError maps fulfillment sentinel errors onto HTTP statuses.
func writeOrderError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrMissingTotalAmount),
		errors.Is(err, service.ErrInvalidTotalAmount),
		errors.Is(err, service.ErrMissingPaymentMode),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidItemPrice):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
