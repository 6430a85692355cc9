package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
)

func seedMortality(t *testing.T, b *Backend) repository.Table[models.Mortality] {
	t.Helper()
	table := repository.NewTable[models.Mortality](b, models.TableMortality)
	ctx := context.Background()
	for _, m := range []models.Mortality{
		{ID: "m1", Date: models.MustDate("2024-03-01"), Shed: "Shed A", Count: 2},
		{ID: "m2", Date: models.MustDate("2024-03-05"), Shed: "Shed B", Count: 1},
		{ID: "m3", Date: models.MustDate("2024-03-03"), Shed: "Shed A", Count: 4},
	} {
		m := m
		require.NoError(t, table.Insert(ctx, &m))
	}
	return table
}

func TestSelectFiltersAndOrders(t *testing.T) {
	b := New()
	table := seedMortality(t, b)
	ctx := context.Background()

	rows, err := table.List(ctx, repository.Query{}.Where("shed", "Shed A").OrderBy("date", true))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "m3", rows[0].ID)
	assert.Equal(t, "m1", rows[1].ID)

	rows, err = table.List(ctx, repository.Query{}.
		Since("date", models.MustDate("2024-03-02")).
		Until("date", models.MustDate("2024-03-05")).
		OrderBy("date", false))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"m3", "m2"}, []string{rows[0].ID, rows[1].ID})

	rows, err = table.List(ctx, repository.Query{}.Since("count", 2).OrderBy("count", true).Take(1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].Count)
}

func TestUpdateDeleteAndGet(t *testing.T) {
	b := New()
	table := seedMortality(t, b)
	ctx := context.Background()

	require.NoError(t, table.Update(ctx, "m2", map[string]any{"cause": "heat stress", "count": 3}))
	got, err := table.Get(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, "heat stress", got.Cause)
	assert.Equal(t, 3, got.Count)

	require.NoError(t, table.Delete(ctx, "m2"))
	_, err = table.Get(ctx, "m2")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.Equal(t, 2, b.Len(models.TableMortality))

	assert.ErrorIs(t, table.Delete(ctx, "missing"), repository.ErrNotFound)
	assert.ErrorIs(t, table.Update(ctx, "missing", map[string]any{"count": 1}), repository.ErrNotFound)
}

func TestInsertRejectsDuplicates(t *testing.T) {
	b := New()
	table := seedMortality(t, b)

	err := table.Insert(context.Background(), &models.Mortality{ID: "m1"})
	require.Error(t, err)
	assert.Contains(t, repository.Message(err), "duplicate key")
}

func TestFailOn(t *testing.T) {
	b := New()
	b.FailOn[models.TableSales] = errors.New("connection refused")

	_, err := repository.NewTable[models.Sale](b, models.TableSales).List(context.Background(), repository.Query{})
	assert.EqualError(t, err, "select sales: connection refused")
}
