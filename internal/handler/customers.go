package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dcb-pos/api/internal/database"
	"github.com/dcb-pos/api/internal/service"
)

// CustomerService defines the directory operations needed by customer
// handlers. Satisfied by *service.CustomerService.
type CustomerService interface {
	List(ctx context.Context) ([]database.Customer, error)
	Search(ctx context.Context, term string) ([]database.Customer, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

// CustomerHandler handles customer directory endpoints. The directory
// is read-only over HTTP; customers are written through order
// submission.
type CustomerHandler struct {
	svc CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(svc CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

// RegisterRoutes registers customer endpoints. Mounted at /api/customers.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/search", h.Search)
	r.Get("/export", h.Export)
}

// --- Response types ---

type customerResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Phone       *string   `json:"phone"`
	OrderCount  int32     `json:"order_count"`
	LastOrdered *string   `json:"last_ordered"`
}

func toCustomerResponse(c database.Customer) customerResponse {
	resp := customerResponse{
		ID:         c.ID,
		Name:       c.Name,
		OrderCount: c.OrderCount,
	}
	if c.Phone.Valid {
		resp.Phone = &c.Phone.String
	}
	if c.LastOrdered.Valid {
		s := c.LastOrdered.Time.UTC().Format(time.RFC3339)
		resp.LastOrdered = &s
	}
	return resp
}

// --- Handlers ---

// List returns every customer, most recently ordered first.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.List(r.Context())
	if err != nil {
		log.Printf("ERROR: list customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = toCustomerResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search returns up to ten customers matching ?q= against name or phone.
func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if errors.Is(err, service.ErrMissingSearchTerm) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("ERROR: search customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = toCustomerResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Export streams the directory as a CSV download.
func (h *CustomerHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="customers.csv"`)
	if err := h.svc.ExportCSV(r.Context(), w); err != nil {
		// Headers are already gone; all we can do is log.
		log.Printf("ERROR: export customers: %v", err)
	}
}
