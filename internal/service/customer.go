package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dcb-pos/api/internal/database"
)

// ErrMissingSearchTerm is returned when a customer search has no term.
var ErrMissingSearchTerm = errors.New("search term is required")

// CustomerStore defines the DB methods for the customer directory.
// Satisfied by *database.Queries.
type CustomerStore interface {
	ListCustomers(ctx context.Context) ([]database.Customer, error)
	SearchCustomers(ctx context.Context, term string) ([]database.Customer, error)
}

// CustomerService reads the customer directory. Writes happen through
// order submission only.
type CustomerService struct {
	store CustomerStore
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(store CustomerStore) *CustomerService {
	return &CustomerService{store: store}
}

// List returns every customer, most recently ordered first.
func (s *CustomerService) List(ctx context.Context) ([]database.Customer, error) {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// likeEscaper neutralizes LIKE pattern metacharacters so a search term
// always matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns up to ten customers whose name or phone contains the
// term, case-insensitively.
func (s *CustomerService) Search(ctx context.Context, term string) ([]database.Customer, error) {
	if term == "" {
		return nil, ErrMissingSearchTerm
	}
	customers, err := s.store.SearchCustomers(ctx, likeEscaper.Replace(term))
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	return customers, nil
}

// ExportCSV streams the full directory as CSV with a header row.
// Timestamp columns are RFC 3339, blank when unset.
func (s *CustomerService) ExportCSV(ctx context.Context, w io.Writer) error {
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return fmt.Errorf("list customers: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "phone", "customer_since", "last_ordered", "order_count"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range customers {
		phone := ""
		if c.Phone.Valid {
			phone = c.Phone.String
		}
		since := c.CreatedAt.UTC().Format(time.RFC3339)
		lastOrdered := ""
		if c.LastOrdered.Valid {
			lastOrdered = c.LastOrdered.Time.UTC().Format(time.RFC3339)
		}
		record := []string{c.Name, phone, since, lastOrdered, strconv.Itoa(int(c.OrderCount))}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
