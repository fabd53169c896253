package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type MenuItem struct {
	ID        uuid.UUID
	Category  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PriceVariant struct {
	ID           uuid.UUID
	MenuItemID   uuid.UUID
	Size         string
	BasePrice    pgtype.Numeric
	CurrentPrice pgtype.Numeric
}

type InventoryItem struct {
	ID              uuid.UUID
	Name            string
	Unit            string
	QuantityInStock pgtype.Numeric
	AverageCost     pgtype.Numeric
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Recipe struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
}

type RecipeIngredient struct {
	ID              uuid.UUID
	RecipeID        uuid.UUID
	InventoryItemID uuid.UUID
	Quantity        pgtype.Numeric
}

type Customer struct {
	ID          uuid.UUID
	Name        string
	Phone       pgtype.Text
	OrderCount  int32
	LastOrdered pgtype.Timestamptz
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID                 uuid.UUID
	OrderNumber        int32
	OrderDate          pgtype.Date
	CustomerID         pgtype.UUID
	CustomerName       pgtype.Text
	CustomerPhone      pgtype.Text
	PaymentMode        string
	TotalAmount        pgtype.Numeric
	Status             string
	Notes              pgtype.Text
	InventoryDeducted  bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type OrderItem struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	Name     string
	Price    pgtype.Numeric
	Quantity int32
}
