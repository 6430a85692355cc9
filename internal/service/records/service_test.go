package records

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/cache"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
	"github.com/mamadbah2/farmops/internal/repository/memory"
	"github.com/mamadbah2/farmops/internal/validation"
)

var (
	manager = auth.Identity{UserID: "mgr", FullName: "Mariama Bah", Role: models.RoleManager}
	worker  = auth.Identity{UserID: "wrk", FullName: "Ousmane Camara", Role: models.RoleWorker, AssignedShed: "Shed A"}
	seller  = auth.Identity{UserID: "rep", Email: "rep@farm.test", Role: models.RoleSalesRep}
	day     = models.MustDate("2024-03-14")
)

func newTestService(t *testing.T) (*Service, *memory.Backend, *cache.Views) {
	t.Helper()
	b := memory.New()
	views := cache.NewViews(0)
	s := NewService(b, views, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC) }
	n := 0
	s.newID = func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}
	for _, p := range []models.Profile{
		{ID: "mgr", FullName: "Mariama Bah", Role: models.RoleManager, Status: models.StatusActive},
		{ID: "wrk", FullName: "Ousmane Camara", Role: models.RoleWorker, AssignedShed: "Shed A", Status: models.StatusActive},
	} {
		require.NoError(t, b.Insert(context.Background(), models.TableProfiles, p))
	}
	return s, b, views
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *validation.Error
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	return verr.Fields
}

func TestRecordEggsWorkerShedOverride(t *testing.T) {
	s, _, _ := newTestService(t)

	row, err := s.RecordEggs(context.Background(), worker, EggsInput{Date: day, Shed: "Shed Z", TotalEggs: 95, BrokenEggs: 3})
	require.NoError(t, err)
	assert.Equal(t, "Shed A", row.Shed)
	assert.Equal(t, "Ousmane Camara", row.CollectedBy)

	stored, err := s.eggs.Get(context.Background(), row.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shed A", stored.Shed)
	assert.Equal(t, 3, stored.Crates)
	assert.Equal(t, 5, stored.Pieces)
}

func TestRecordEggsManagerKeepsShed(t *testing.T) {
	s, _, _ := newTestService(t)

	row, err := s.RecordEggs(context.Background(), manager, EggsInput{Date: day, Shed: "Shed Z", TotalEggs: 30})
	require.NoError(t, err)
	assert.Equal(t, "Shed Z", row.Shed)
	assert.Equal(t, 1, row.Crates)
	assert.Zero(t, row.Pieces)
}

func TestRecordEggsValidation(t *testing.T) {
	s, b, _ := newTestService(t)

	_, err := s.RecordEggs(context.Background(), manager, EggsInput{Shed: "Shed A", TotalEggs: -1})
	fields := fieldErrors(t, err)
	assert.Equal(t, "is required", fields["date"])
	assert.Equal(t, "must be at least 0", fields["total_eggs"])

	_, err = s.RecordEggs(context.Background(), manager, EggsInput{Date: day, Shed: "Shed A", TotalEggs: 10, BrokenEggs: 11})
	assert.Equal(t, "must not exceed total_eggs", fieldErrors(t, err)["broken_eggs"])

	assert.Zero(t, b.Len(models.TableEggCollection))
}

func TestWritesInvalidateRoutes(t *testing.T) {
	s, _, views := newTestService(t)
	ctx := context.Background()
	for _, r := range []string{cache.RouteEggs, cache.RouteDashboard, cache.RouteSales, cache.RouteSalesDashboard, cache.RouteTasks} {
		views.Set(r, "stale")
	}

	_, err := s.RecordMortality(ctx, worker, MortalityInput{Date: day, Shed: "Shed A", Count: 2, Cause: "heat"})
	require.NoError(t, err)

	_, ok := views.Get(cache.RouteDashboard)
	assert.False(t, ok)
	_, ok = views.Get(cache.RouteSales)
	assert.True(t, ok)

	_, err = s.RecordSale(ctx, seller, SaleInput{Date: day, ItemSold: "Eggs (crate)", Quantity: decimal.NewFromInt(2), Unit: "crate", UnitPrice: decimal.RequireFromString("45")})
	require.NoError(t, err)
	_, ok = views.Get(cache.RouteSalesDashboard)
	assert.False(t, ok)
	_, ok = views.Get(cache.RouteTasks)
	assert.True(t, ok)
}

func TestRecordMortalityWorkerShedOverride(t *testing.T) {
	s, _, _ := newTestService(t)

	row, err := s.RecordMortality(context.Background(), worker, MortalityInput{Date: day, Shed: "Shed Z", Count: 2, Cause: "heat"})
	require.NoError(t, err)
	assert.Equal(t, "Shed A", row.Shed)

	stored, err := s.mortality.Get(context.Background(), row.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shed A", stored.Shed)
}

func TestWorkerWithoutShedIsRejected(t *testing.T) {
	s, b, _ := newTestService(t)
	ctx := context.Background()
	unassigned := auth.Identity{UserID: "new", FullName: "New Hand", Role: models.RoleWorker, Status: models.StatusActive}

	_, err := s.RecordEggs(ctx, unassigned, EggsInput{Date: day, Shed: "Shed B", TotalEggs: 10})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.RecordMortality(ctx, unassigned, MortalityInput{Date: day, Shed: "Shed B", Count: 1})
	assert.ErrorIs(t, err, ErrNoShed)
	_, err = s.AllocateFeed(ctx, unassigned, FeedAllocationInput{Date: day, Shed: "Shed B", FeedType: "Layer Mash", QuantityAllocated: 1, Unit: models.UnitBags})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Zero(t, b.Len(models.TableEggCollection))
	assert.Zero(t, b.Len(models.TableMortality))

	_, err = s.ListEggs(ctx, unassigned, ListFilter{Shed: "Shed B"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.ListMortality(ctx, unassigned, ListFilter{})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.ListFeedAllocations(ctx, unassigned, ListFilter{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRecordMortalityRequiresPositiveCount(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.RecordMortality(context.Background(), worker, MortalityInput{Date: day, Count: 0})
	assert.Equal(t, "must be at least 1", fieldErrors(t, err)["count"])
}

func TestAllocateFeed(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	row, err := s.AllocateFeed(ctx, worker, FeedAllocationInput{Date: day, Shed: "", FeedType: "Layer Mash", QuantityAllocated: 1.5, Unit: models.UnitBags})
	require.NoError(t, err)
	assert.Equal(t, "Shed A", row.Shed)
	assert.Equal(t, "Ousmane Camara", row.AllocatedBy)

	_, err = s.AllocateFeed(ctx, manager, FeedAllocationInput{Date: day, Shed: "Shed B", FeedType: "Layer Mash", QuantityAllocated: 0, Unit: "tons"})
	fields := fieldErrors(t, err)
	assert.Equal(t, "must be greater than 0", fields["quantity_allocated"])
	assert.Equal(t, "must be one of: bags, kg", fields["unit"])
}

func TestAddFeedStockManagerOnly(t *testing.T) {
	s, _, _ := newTestService(t)
	in := FeedStockInput{Date: day, FeedType: "Layer Mash", Quantity: 40, Unit: models.UnitBags, Supplier: "Agro Conakry", Cost: 1200}

	_, err := s.AddFeedStock(context.Background(), worker, in)
	assert.ErrorIs(t, err, ErrForbidden)

	row, err := s.AddFeedStock(context.Background(), manager, in)
	require.NoError(t, err)
	assert.Equal(t, 40.0, row.Quantity)
}

func TestRecordSaleRecomputesTotal(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	row, err := s.RecordSale(ctx, seller, SaleInput{
		Date:      day,
		ItemSold:  "Eggs (crate)",
		Quantity:  decimal.NewFromInt(12),
		Unit:      "crate",
		UnitPrice: decimal.RequireFromString("2.755"),
	})
	require.NoError(t, err)
	assert.Equal(t, "33.06", row.TotalPrice.StringFixed(2))
	assert.Equal(t, "rep@farm.test", row.RecordedBy)

	updated, err := s.UpdateSale(ctx, manager, row.ID, SaleInput{
		Date:      day,
		ItemSold:  "Eggs (crate)",
		Quantity:  decimal.NewFromInt(10),
		Unit:      "crate",
		UnitPrice: decimal.RequireFromString("3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "30", updated.TotalPrice.String())

	_, err = s.UpdateSale(ctx, seller, row.ID, SaleInput{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateAndDeleteEggs(t *testing.T) {
	s, b, _ := newTestService(t)
	ctx := context.Background()

	row, err := s.RecordEggs(ctx, manager, EggsInput{Date: day, Shed: "Shed A", TotalEggs: 30})
	require.NoError(t, err)

	updated, err := s.UpdateEggs(ctx, manager, row.ID, EggsInput{Date: day, Shed: "Shed A", TotalEggs: 61})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Crates)
	assert.Equal(t, 1, updated.Pieces)
	assert.Equal(t, "Mariama Bah", updated.CollectedBy)

	_, err = s.UpdateEggs(ctx, manager, "missing", EggsInput{Date: day, Shed: "Shed A", TotalEggs: 1})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, s.DeleteEggs(ctx, worker, row.ID), ErrForbidden)
	require.NoError(t, s.DeleteEggs(ctx, manager, row.ID))
	assert.Zero(t, b.Len(models.TableEggCollection))
	assert.ErrorIs(t, s.DeleteEggs(ctx, manager, row.ID), repository.ErrNotFound)
}

func TestBackendErrorIsPreserved(t *testing.T) {
	s, b, _ := newTestService(t)
	b.FailOn[models.TableMortality] = &repository.BackendError{Status: 409, Message: "new row violates row-level security policy"}

	_, err := s.RecordMortality(context.Background(), manager, MortalityInput{Date: day, Shed: "Shed A", Count: 1})
	require.Error(t, err)
	assert.Equal(t, "new row violates row-level security policy", repository.Message(err))
}

func TestListScopesWorkersToTheirShed(t *testing.T) {
	s, _, views := newTestService(t)
	ctx := context.Background()
	for _, shed := range []string{"Shed A", "Shed B"} {
		_, err := s.RecordEggs(ctx, manager, EggsInput{Date: day, Shed: shed, TotalEggs: 10})
		require.NoError(t, err)
	}

	rows, err := s.ListEggs(ctx, worker, ListFilter{Shed: "Shed B"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Shed A", rows[0].Shed)

	all, err := s.ListEggs(ctx, manager, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	_, cached := views.Get(cache.RouteEggs)
	assert.True(t, cached)

	ranged, err := s.ListEggs(ctx, manager, ListFilter{From: day.AddDays(1)})
	require.NoError(t, err)
	assert.Empty(t, ranged)
}

func TestTaskLifecycle(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, manager, TaskInput{Description: "Clean drinkers", AssignedTo: "ghost", DueDate: day})
	assert.Equal(t, "is not a known user", fieldErrors(t, err)["assigned_to"])

	_, err = s.CreateTask(ctx, worker, TaskInput{Description: "Clean drinkers", AssignedTo: "wrk", DueDate: day})
	assert.ErrorIs(t, err, ErrForbidden)

	task, err := s.CreateTask(ctx, manager, TaskInput{Description: "Clean drinkers", AssignedTo: "wrk", DueDate: day})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, task.Status)

	_, err = s.UpdateTaskStatus(ctx, seller, task.ID, TaskStatusInput{Status: models.TaskCompleted})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = s.UpdateTaskStatus(ctx, worker, task.ID, TaskStatusInput{Status: "Done"})
	assert.Contains(t, fieldErrors(t, err), "status")

	notes := "all four drinkers scrubbed"
	moved, err := s.UpdateTaskStatus(ctx, worker, task.ID, TaskStatusInput{Status: models.TaskCompleted, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, moved.Status)
	assert.Equal(t, notes, moved.Notes)

	mine, err := s.ListTasks(ctx, worker)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := s.ListTasks(ctx, seller)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	require.NoError(t, s.DeleteTask(ctx, manager, task.ID))
	_, err = s.UpdateTaskStatus(ctx, manager, task.ID, TaskStatusInput{Status: models.TaskBlocked})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
