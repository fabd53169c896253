package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dcb-pos/api/internal/service"
)

// ReportService defines the reporting operations needed by report
// handlers. Satisfied by *service.ReportService.
type ReportService interface {
	GenerateReport(ctx context.Context, startDate, endDate string) (*service.Report, error)
}

// ReportHandler handles sales report endpoints.
type ReportHandler struct {
	svc ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(svc ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// RegisterRoutes registers report endpoints. Mounted at /api/reports.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Generate)
}

// --- Response types ---

type reportResponse struct {
	TotalRevenue     string            `json:"total_revenue"`
	OrderCount       int               `json:"order_count"`
	PaymentBreakdown map[string]string `json:"payment_breakdown"`
	CostOfGoodsSold  string            `json:"cogs"`
	GrossProfit      string            `json:"gross_profit"`
	Orders           []orderResponse   `json:"orders"`
}

func toReportResponse(rep *service.Report) reportResponse {
	breakdown := make(map[string]string, len(rep.PaymentBreakdown))
	for mode, amount := range rep.PaymentBreakdown {
		breakdown[mode] = amount.StringFixed(2)
	}
	orders := make([]orderResponse, len(rep.Orders))
	for i, o := range rep.Orders {
		orders[i] = toOrderResponse(o.Order, o.Items)
	}
	return reportResponse{
		TotalRevenue:     rep.TotalRevenue.StringFixed(2),
		OrderCount:       rep.OrderCount,
		PaymentBreakdown: breakdown,
		CostOfGoodsSold:  rep.CostOfGoodsSold.StringFixed(2),
		GrossProfit:      rep.GrossProfit.StringFixed(2),
		Orders:           orders,
	}
}

// --- Handlers ---

// Generate builds a costed sales report for ?startDate=&endDate=
// (YYYY-MM-DD). Both empty means today.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GenerateReport(r.Context(),
		r.URL.Query().Get("startDate"),
		r.URL.Query().Get("endDate"))
	if errors.Is(err, service.ErrInvalidReportDate) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("ERROR: generate report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}
