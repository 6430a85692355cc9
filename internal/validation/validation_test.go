package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmops/internal/domain/models"
)

type form struct {
	Date     models.Date     `json:"date" validate:"required"`
	Shed     string          `json:"shed" validate:"required,max=10"`
	Count    int             `json:"count" validate:"gte=1"`
	Unit     string          `json:"unit" validate:"oneof=bags kg"`
	Price    decimal.Decimal `json:"unit_price" validate:"gt=0"`
	Role     string          `json:"role" validate:"role"`
	Status   string          `json:"status" validate:"task_status"`
	Customer string          `json:"customer_name"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	v := New()

	err := v.Struct(form{Shed: "Shed Number Twelve", Unit: "tons", Price: decimal.Zero, Role: "Owner", Status: "Done"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"date":       "is required",
		"shed":       "must be at most 10 characters",
		"count":      "must be at least 1",
		"unit":       "must be one of: bags, kg",
		"unit_price": "must be greater than 0",
		"role":       "must be one of: Manager, Worker, Sales Rep",
		"status":     "must be one of: Pending, In Progress, Completed, Blocked",
	}, verr.Fields)
	assert.Contains(t, err.Error(), "validation failed: count must be at least 1; date is required")
}

func TestStructAcceptsValidInput(t *testing.T) {
	v := New()
	err := v.Struct(form{
		Date:   models.MustDate("2024-03-01"),
		Shed:   "Shed A",
		Count:  2,
		Unit:   "kg",
		Price:  decimal.RequireFromString("1.5"),
		Role:   string(models.RoleSalesRep),
		Status: string(models.TaskInProgress),
	})
	assert.NoError(t, err)
}

func TestField(t *testing.T) {
	err := Field("broken_eggs", "must not exceed total_eggs")
	assert.EqualError(t, err, "validation failed: broken_eggs must not exceed total_eggs")
}
