package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dcb-pos/api/internal/database"
)

const reportDateLayout = "2006-01-02"

// Errors returned by the report service.
var (
	// ErrInvalidReportDate is a validation failure: malformed start or
	// end date. Detected before any store access.
	ErrInvalidReportDate = errors.New("invalid report date")

	// ErrReportGeneration wraps every store failure during aggregation.
	// No partial report is ever returned.
	ErrReportGeneration = errors.New("report generation failed")
)

// ReportStore defines the DB methods needed to build a sales report.
// Satisfied by *database.Queries.
type ReportStore interface {
	ListDeliveredOrdersBetween(ctx context.Context, arg database.ListDeliveredOrdersBetweenParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetMenuItemForCosting(ctx context.Context, arg database.GetMenuItemForCostingParams) (database.MenuItem, error)
	GetRecipeByMenuItem(ctx context.Context, menuItemID uuid.UUID) (database.Recipe, error)
	ListRecipeIngredientCosts(ctx context.Context, recipeID uuid.UUID) ([]database.ListRecipeIngredientCostsRow, error)
}

// ReportOrder is a matched order with its line items, for drill-down.
type ReportOrder struct {
	Order database.Order
	Items []database.OrderItem
}

// Report aggregates delivered orders over a reporting window.
type Report struct {
	TotalRevenue     decimal.Decimal
	OrderCount       int
	PaymentBreakdown map[string]decimal.Decimal
	CostOfGoodsSold  decimal.Decimal
	GrossProfit      decimal.Decimal
	Orders           []ReportOrder
}

// ReportService builds costed sales reports.
type ReportService struct {
	store ReportStore
	loc   *time.Location
	now   func() time.Time
}

// NewReportService creates a new ReportService. loc fixes the local
// day boundaries of the reporting window.
func NewReportService(store ReportStore, loc *time.Location) *ReportService {
	return &ReportService{store: store, loc: loc, now: time.Now}
}

// GenerateReport aggregates delivered orders created within the given
// window. Dates are YYYY-MM-DD strings; an empty endDate means the
// window is the single startDate day, and an empty startDate defaults
// the window to today. COGS replays each sold line item against its
// recipe at the ingredients' current average cost, so historical
// reports drift when costs change after the sale.
func (s *ReportService) GenerateReport(ctx context.Context, startDate, endDate string) (*Report, error) {
	start, end, err := s.reportWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}

	orders, err := s.store.ListDeliveredOrdersBetween(ctx, database.ListDeliveredOrdersBetweenParams{
		Start: pgtype.Timestamptz{Time: start, Valid: true},
		End:   pgtype.Timestamptz{Time: end, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list delivered orders: %w", ErrReportGeneration, err)
	}

	report := &Report{
		TotalRevenue:     decimal.Zero,
		OrderCount:       len(orders),
		PaymentBreakdown: make(map[string]decimal.Decimal),
		CostOfGoodsSold:  decimal.Zero,
		Orders:           make([]ReportOrder, 0, len(orders)),
	}

	for _, order := range orders {
		total := numericToDecimal(order.TotalAmount)
		report.TotalRevenue = report.TotalRevenue.Add(total)

		mode := strings.ToLower(order.PaymentMode)
		report.PaymentBreakdown[mode] = report.PaymentBreakdown[mode].Add(total)

		items, err := s.store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: list order items: %w", ErrReportGeneration, err)
		}

		for _, item := range items {
			itemCost, err := s.lineItemCost(ctx, item)
			if err != nil {
				return nil, err
			}
			report.CostOfGoodsSold = report.CostOfGoodsSold.Add(itemCost.Mul(decimal.NewFromInt32(item.Quantity)))
		}

		report.Orders = append(report.Orders, ReportOrder{Order: order, Items: items})
	}

	report.GrossProfit = report.TotalRevenue.Sub(report.CostOfGoodsSold)
	return report, nil
}

// lineItemCost resolves a sold line item to its per-unit ingredient
// cost. The menu item must match both the stripped base name and the
// snapshotted price against a current price variant; a miss anywhere
// along the chain costs zero rather than failing the report.
func (s *ReportService) lineItemCost(ctx context.Context, item database.OrderItem) (decimal.Decimal, error) {
	menuItem, err := s.store.GetMenuItemForCosting(ctx, database.GetMenuItemForCostingParams{
		Name:  baseItemName(item.Name),
		Price: item.Price,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: lookup menu item %q: %w", ErrReportGeneration, item.Name, err)
	}

	recipe, err := s.store.GetRecipeByMenuItem(ctx, menuItem.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: lookup recipe for %q: %w", ErrReportGeneration, menuItem.Name, err)
	}

	ingredients, err := s.store.ListRecipeIngredientCosts(ctx, recipe.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: list ingredient costs for %q: %w", ErrReportGeneration, menuItem.Name, err)
	}

	cost := decimal.Zero
	for _, ing := range ingredients {
		cost = cost.Add(numericToDecimal(ing.Quantity).Mul(numericToDecimal(ing.AverageCost)))
	}
	return cost, nil
}

// reportWindow normalizes the requested dates to local day boundaries:
// start at 00:00:00.000 and end at 23:59:59.999, inclusive.
func (s *ReportService) reportWindow(startDate, endDate string) (time.Time, time.Time, error) {
	var startDay, endDay time.Time

	if startDate == "" {
		now := s.now().In(s.loc)
		startDay = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
		endDay = startDay
	} else {
		var err error
		startDay, err = time.ParseInLocation(reportDateLayout, startDate, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidReportDate, err)
		}
		endDay = startDay
		if endDate != "" {
			endDay, err = time.ParseInLocation(reportDateLayout, endDate, s.loc)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidReportDate, err)
			}
		}
	}

	start := startDay
	end := time.Date(endDay.Year(), endDay.Month(), endDay.Day(), 23, 59, 59, 999_000_000, s.loc)
	return start, end, nil
}
