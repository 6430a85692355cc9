package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale captures one sales transaction. TotalPrice is always Quantity × UnitPrice.
type Sale struct {
	ID           string          `json:"id" gorm:"column:id;primaryKey"`
	Date         Date            `json:"date" gorm:"column:date"`
	ItemSold     string          `json:"item_sold" gorm:"column:item_sold"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"column:quantity;type:numeric"`
	Unit         string          `json:"unit" gorm:"column:unit"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"column:unit_price;type:numeric"`
	TotalPrice   decimal.Decimal `json:"total_price" gorm:"column:total_price;type:numeric"`
	CustomerName string          `json:"customer_name" gorm:"column:customer_name"`
	RecordedBy   string          `json:"recorded_by" gorm:"column:recorded_by"`
	CreatedAt    time.Time       `json:"created_at" gorm:"column:created_at"`
}

func (Sale) TableName() string { return TableSales }

// SaleTotal is the authoritative price of a sale line.
func SaleTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}
