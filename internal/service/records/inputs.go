package records

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farmops/internal/domain/models"
)

// EggsInput is the egg collection form. Crates and pieces are always derived
// from TotalEggs, so the form does not carry them.
type EggsInput struct {
	Date           models.Date `json:"date" validate:"required"`
	Shed           string      `json:"shed" validate:"required,max=50"`
	CollectionTime string      `json:"collection_time" validate:"max=20"`
	TotalEggs      int         `json:"total_eggs" validate:"gte=0"`
	BrokenEggs     int         `json:"broken_eggs" validate:"gte=0"`
}

// MortalityInput is the mortality form.
type MortalityInput struct {
	Date  models.Date `json:"date" validate:"required"`
	Shed  string      `json:"shed" validate:"required,max=50"`
	Count int         `json:"count" validate:"gte=1"`
	Cause string      `json:"cause" validate:"max=200"`
}

// FeedAllocationInput is the feed allocation form.
type FeedAllocationInput struct {
	Date              models.Date     `json:"date" validate:"required"`
	Shed              string          `json:"shed" validate:"required,max=50"`
	FeedType          string          `json:"feed_type" validate:"required,max=100"`
	QuantityAllocated float64         `json:"quantity_allocated" validate:"gt=0"`
	Unit              models.FeedUnit `json:"unit" validate:"required,oneof=bags kg"`
}

// FeedStockInput is the feed delivery form.
type FeedStockInput struct {
	Date     models.Date     `json:"date" validate:"required"`
	FeedType string          `json:"feed_type" validate:"required,max=100"`
	Quantity float64         `json:"quantity" validate:"gt=0"`
	Unit     models.FeedUnit `json:"unit" validate:"required,oneof=bags kg"`
	Supplier string          `json:"supplier" validate:"max=100"`
	Cost     float64         `json:"cost" validate:"gte=0"`
}

// SaleInput is the sales form. A client-computed total is ignored.
type SaleInput struct {
	Date         models.Date     `json:"date" validate:"required"`
	ItemSold     string          `json:"item_sold" validate:"required,max=100"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit         string          `json:"unit" validate:"required,max=20"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"gte=0"`
	CustomerName string          `json:"customer_name" validate:"max=100"`
}

// TaskInput is the task form. An empty status defaults to Pending.
type TaskInput struct {
	Description string            `json:"description" validate:"required,max=500"`
	AssignedTo  string            `json:"assigned_to" validate:"required"`
	DueDate     models.Date       `json:"due_date" validate:"required"`
	Status      models.TaskStatus `json:"status" validate:"task_status"`
	Notes       string            `json:"notes" validate:"max=1000"`
}

// TaskStatusInput moves a task through its lifecycle.
type TaskStatusInput struct {
	Status models.TaskStatus `json:"status" validate:"task_status"`
	Notes  *string           `json:"notes" validate:"omitempty,max=1000"`
}

// ListFilter narrows a record listing. Zero fields do not filter.
type ListFilter struct {
	From models.Date
	To   models.Date
	Shed string
}

// IsZero reports whether the filter selects everything.
func (f ListFilter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() && f.Shed == ""
}
