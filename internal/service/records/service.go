// Package records implements the per-form mutation routines and listings for
// every farm record table.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/cache"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
	"github.com/mamadbah2/farmops/internal/validation"
)

var (
	// ErrForbidden is returned when the caller may not touch the record.
	ErrForbidden = errors.New("not allowed to modify this record")
	// ErrNoShed is returned for workers without an assigned shed. It matches ErrForbidden.
	ErrNoShed = fmt.Errorf("%w: worker has no assigned shed", ErrForbidden)
)

// Service owns every record write and listing.
type Service struct {
	eggs        repository.Table[models.EggCollection]
	mortality   repository.Table[models.Mortality]
	allocations repository.Table[models.FeedAllocation]
	stock       repository.Table[models.FeedStock]
	sales       repository.Table[models.Sale]
	tasks       repository.Table[models.Task]
	profiles    repository.Table[models.Profile]

	validator *validation.Validator
	views     cache.Store
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewService wires the records service. A nil views store disables caching.
func NewService(backend repository.Backend, views cache.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if views == nil {
		views = cache.Nop{}
	}
	return &Service{
		eggs:        repository.NewTable[models.EggCollection](backend, models.TableEggCollection),
		mortality:   repository.NewTable[models.Mortality](backend, models.TableMortality),
		allocations: repository.NewTable[models.FeedAllocation](backend, models.TableFeedAllocation),
		stock:       repository.NewTable[models.FeedStock](backend, models.TableFeedStock),
		sales:       repository.NewTable[models.Sale](backend, models.TableSales),
		tasks:       repository.NewTable[models.Task](backend, models.TableTasks),
		profiles:    repository.NewTable[models.Profile](backend, models.TableProfiles),
		validator:   validation.New(),
		views:       views,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Routes each table's writes invalidate.
var (
	eggsRoutes       = []string{cache.RouteEggs, cache.RouteDashboard}
	mortalityRoutes  = []string{cache.RouteMortality, cache.RouteDashboard}
	allocationRoutes = []string{cache.RouteFeedAllocations, cache.RouteDashboard}
	stockRoutes      = []string{cache.RouteFeedStock, cache.RouteDashboard}
	salesRoutes      = []string{cache.RouteSales, cache.RouteSalesDashboard}
	taskRoutes       = []string{cache.RouteTasks}
)

// shedFor applies the worker shed override: a worker always records against
// their assigned shed, whatever the form says.
func shedFor(id auth.Identity, submitted string) (string, error) {
	if id.Role != models.RoleWorker {
		return submitted, nil
	}
	if id.AssignedShed == "" {
		return "", ErrNoShed
	}
	return id.AssignedShed, nil
}

func requireManager(id auth.Identity) error {
	if !id.Is(models.RoleManager) {
		return ErrForbidden
	}
	return nil
}

func insertRow[T any](ctx context.Context, s *Service, table repository.Table[T], row *T, routes []string) error {
	if err := table.Insert(ctx, row); err != nil {
		s.logger.Error("record insert failed", zap.String("table", table.Name()), zap.Error(err))
		return err
	}
	s.views.Invalidate(routes...)
	return nil
}

func updateRow[T any](ctx context.Context, s *Service, table repository.Table[T], id string, patch map[string]any, routes []string) (T, error) {
	var zero T
	if err := table.Update(ctx, id, patch); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("record update failed", zap.String("table", table.Name()), zap.String("id", id), zap.Error(err))
		}
		return zero, err
	}
	s.views.Invalidate(routes...)
	return table.Get(ctx, id)
}

func deleteRow[T any](ctx context.Context, s *Service, table repository.Table[T], id string, routes []string) error {
	if err := table.Delete(ctx, id); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("record delete failed", zap.String("table", table.Name()), zap.String("id", id), zap.Error(err))
		}
		return err
	}
	s.views.Invalidate(routes...)
	return nil
}

// RecordEggs stores one egg collection.
func (s *Service) RecordEggs(ctx context.Context, id auth.Identity, in EggsInput) (models.EggCollection, error) {
	shed, err := shedFor(id, in.Shed)
	if err != nil {
		return models.EggCollection{}, err
	}
	in.Shed = shed
	if err := s.validateEggs(in); err != nil {
		return models.EggCollection{}, err
	}

	crates, pieces := models.SplitCrates(in.TotalEggs)
	row := models.EggCollection{
		ID:             s.newID(),
		Date:           in.Date,
		Shed:           in.Shed,
		CollectionTime: in.CollectionTime,
		TotalEggs:      in.TotalEggs,
		BrokenEggs:     in.BrokenEggs,
		Crates:         crates,
		Pieces:         pieces,
		CollectedBy:    id.DisplayName(),
		CreatedAt:      s.now().UTC(),
	}
	if err := insertRow(ctx, s, s.eggs, &row, eggsRoutes); err != nil {
		return models.EggCollection{}, err
	}
	return row, nil
}

// UpdateEggs rewrites an egg collection. Crates and pieces are recomputed.
func (s *Service) UpdateEggs(ctx context.Context, id auth.Identity, recordID string, in EggsInput) (models.EggCollection, error) {
	if err := requireManager(id); err != nil {
		return models.EggCollection{}, err
	}
	if err := s.validateEggs(in); err != nil {
		return models.EggCollection{}, err
	}

	crates, pieces := models.SplitCrates(in.TotalEggs)
	return updateRow(ctx, s, s.eggs, recordID, map[string]any{
		"date":            in.Date,
		"shed":            in.Shed,
		"collection_time": in.CollectionTime,
		"total_eggs":      in.TotalEggs,
		"broken_eggs":     in.BrokenEggs,
		"crates":          crates,
		"pieces":          pieces,
	}, eggsRoutes)
}

func (s *Service) validateEggs(in EggsInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	if in.BrokenEggs > in.TotalEggs {
		return validation.Field("broken_eggs", "must not exceed total_eggs")
	}
	return nil
}

// DeleteEggs removes an egg collection.
func (s *Service) DeleteEggs(ctx context.Context, id auth.Identity, recordID string) error {
	if err := requireManager(id); err != nil {
		return err
	}
	return deleteRow(ctx, s, s.eggs, recordID, eggsRoutes)
}

// RecordMortality stores one mortality report.
func (s *Service) RecordMortality(ctx context.Context, id auth.Identity, in MortalityInput) (models.Mortality, error) {
	shed, err := shedFor(id, in.Shed)
	if err != nil {
		return models.Mortality{}, err
	}
	in.Shed = shed
	if err := s.validator.Struct(in); err != nil {
		return models.Mortality{}, err
	}

	row := models.Mortality{
		ID:         s.newID(),
		Date:       in.Date,
		Shed:       in.Shed,
		Count:      in.Count,
		Cause:      in.Cause,
		RecordedBy: id.DisplayName(),
		CreatedAt:  s.now().UTC(),
	}
	if err := insertRow(ctx, s, s.mortality, &row, mortalityRoutes); err != nil {
		return models.Mortality{}, err
	}
	return row, nil
}

// UpdateMortality rewrites a mortality report.
func (s *Service) UpdateMortality(ctx context.Context, id auth.Identity, recordID string, in MortalityInput) (models.Mortality, error) {
	if err := requireManager(id); err != nil {
		return models.Mortality{}, err
	}
	if err := s.validator.Struct(in); err != nil {
		return models.Mortality{}, err
	}
	return updateRow(ctx, s, s.mortality, recordID, map[string]any{
		"date":  in.Date,
		"shed":  in.Shed,
		"count": in.Count,
		"cause": in.Cause,
	}, mortalityRoutes)
}

// DeleteMortality removes a mortality report.
func (s *Service) DeleteMortality(ctx context.Context, id auth.Identity, recordID string) error {
	if err := requireManager(id); err != nil {
		return err
	}
	return deleteRow(ctx, s, s.mortality, recordID, mortalityRoutes)
}

// AllocateFeed stores feed handed out to a shed.
func (s *Service) AllocateFeed(ctx context.Context, id auth.Identity, in FeedAllocationInput) (models.FeedAllocation, error) {
	shed, err := shedFor(id, in.Shed)
	if err != nil {
		return models.FeedAllocation{}, err
	}
	in.Shed = shed
	if err := s.validator.Struct(in); err != nil {
		return models.FeedAllocation{}, err
	}

	row := models.FeedAllocation{
		ID:                s.newID(),
		Date:              in.Date,
		Shed:              in.Shed,
		FeedType:          in.FeedType,
		QuantityAllocated: in.QuantityAllocated,
		Unit:              in.Unit,
		AllocatedBy:       id.DisplayName(),
		CreatedAt:         s.now().UTC(),
	}
	if err := insertRow(ctx, s, s.allocations, &row, allocationRoutes); err != nil {
		return models.FeedAllocation{}, err
	}
	return row, nil
}

// DeleteFeedAllocation removes a feed allocation.
func (s *Service) DeleteFeedAllocation(ctx context.Context, id auth.Identity, recordID string) error {
	if err := requireManager(id); err != nil {
		return err
	}
	return deleteRow(ctx, s, s.allocations, recordID, allocationRoutes)
}

// AddFeedStock stores a feed delivery.
func (s *Service) AddFeedStock(ctx context.Context, id auth.Identity, in FeedStockInput) (models.FeedStock, error) {
	if err := requireManager(id); err != nil {
		return models.FeedStock{}, err
	}
	if err := s.validator.Struct(in); err != nil {
		return models.FeedStock{}, err
	}

	row := models.FeedStock{
		ID:        s.newID(),
		Date:      in.Date,
		FeedType:  in.FeedType,
		Quantity:  in.Quantity,
		Unit:      in.Unit,
		Supplier:  in.Supplier,
		Cost:      in.Cost,
		CreatedAt: s.now().UTC(),
	}
	if err := insertRow(ctx, s, s.stock, &row, stockRoutes); err != nil {
		return models.FeedStock{}, err
	}
	return row, nil
}

// DeleteFeedStock removes a feed delivery.
func (s *Service) DeleteFeedStock(ctx context.Context, id auth.Identity, recordID string) error {
	if err := requireManager(id); err != nil {
		return err
	}
	return deleteRow(ctx, s, s.stock, recordID, stockRoutes)
}

// RecordSale stores a sale. TotalPrice is recomputed from quantity and unit price.
func (s *Service) RecordSale(ctx context.Context, id auth.Identity, in SaleInput) (models.Sale, error) {
	if err := s.validator.Struct(in); err != nil {
		return models.Sale{}, err
	}

	row := models.Sale{
		ID:           s.newID(),
		Date:         in.Date,
		ItemSold:     in.ItemSold,
		Quantity:     in.Quantity,
		Unit:         in.Unit,
		UnitPrice:    in.UnitPrice,
		TotalPrice:   models.SaleTotal(in.Quantity, in.UnitPrice),
		CustomerName: in.CustomerName,
		RecordedBy:   id.DisplayName(),
		CreatedAt:    s.now().UTC(),
	}
	if err := insertRow(ctx, s, s.sales, &row, salesRoutes); err != nil {
		return models.Sale{}, err
	}
	return row, nil
}

// UpdateSale rewrites a sale and its total.
func (s *Service) UpdateSale(ctx context.Context, id auth.Identity, recordID string, in SaleInput) (models.Sale, error) {
	if err := requireManager(id); err != nil {
		return models.Sale{}, err
	}
	if err := s.validator.Struct(in); err != nil {
		return models.Sale{}, err
	}
	return updateRow(ctx, s, s.sales, recordID, map[string]any{
		"date":          in.Date,
		"item_sold":     in.ItemSold,
		"quantity":      in.Quantity,
		"unit":          in.Unit,
		"unit_price":    in.UnitPrice,
		"total_price":   models.SaleTotal(in.Quantity, in.UnitPrice),
		"customer_name": in.CustomerName,
	}, salesRoutes)
}

// DeleteSale removes a sale.
func (s *Service) DeleteSale(ctx context.Context, id auth.Identity, recordID string) error {
	if err := requireManager(id); err != nil {
		return err
	}
	return deleteRow(ctx, s, s.sales, recordID, salesRoutes)
}
