package records

import (
	"context"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/cache"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
)

// query turns a filter into a date-ordered, newest-first query.
func (f ListFilter) query(withShed bool) repository.Query {
	q := repository.Query{}.OrderBy("date", true)
	if !f.From.IsZero() {
		q = q.Since("date", f.From.String())
	}
	if !f.To.IsZero() {
		q = q.Until("date", f.To.String())
	}
	if withShed && f.Shed != "" {
		q = q.Where("shed", f.Shed)
	}
	return q
}

// scope restricts workers to their own shed.
func scope(id auth.Identity, f ListFilter) (ListFilter, error) {
	shed, err := shedFor(id, f.Shed)
	if err != nil {
		return ListFilter{}, err
	}
	f.Shed = shed
	return f, nil
}

// cachedList serves unfiltered listings from the view cache; anything filtered
// goes straight to the backend.
func cachedList[T any](ctx context.Context, s *Service, route string, cacheable bool, table repository.Table[T], q repository.Query) ([]T, error) {
	var gen uint64
	if cacheable {
		if v, ok := s.views.Get(route); ok {
			if rows, ok := v.([]T); ok {
				return rows, nil
			}
		}
		gen = s.views.Generation(route)
	}
	rows, err := table.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}
	if cacheable {
		s.views.SetIfCurrent(route, gen, rows)
	}
	return rows, nil
}

// ListEggs lists egg collections; workers only see their shed.
func (s *Service) ListEggs(ctx context.Context, id auth.Identity, f ListFilter) ([]models.EggCollection, error) {
	f, err := scope(id, f)
	if err != nil {
		return nil, err
	}
	return cachedList(ctx, s, cache.RouteEggs, f.IsZero(), s.eggs, f.query(true))
}

// ListMortality lists mortality reports; workers only see their shed.
func (s *Service) ListMortality(ctx context.Context, id auth.Identity, f ListFilter) ([]models.Mortality, error) {
	f, err := scope(id, f)
	if err != nil {
		return nil, err
	}
	return cachedList(ctx, s, cache.RouteMortality, f.IsZero(), s.mortality, f.query(true))
}

// ListFeedAllocations lists feed allocations; workers only see their shed.
func (s *Service) ListFeedAllocations(ctx context.Context, id auth.Identity, f ListFilter) ([]models.FeedAllocation, error) {
	f, err := scope(id, f)
	if err != nil {
		return nil, err
	}
	return cachedList(ctx, s, cache.RouteFeedAllocations, f.IsZero(), s.allocations, f.query(true))
}

// ListFeedStock lists feed deliveries. Stock is farm-wide, so Shed is ignored.
func (s *Service) ListFeedStock(ctx context.Context, f ListFilter) ([]models.FeedStock, error) {
	f.Shed = ""
	return cachedList(ctx, s, cache.RouteFeedStock, f.IsZero(), s.stock, f.query(false))
}

// ListSales lists sales. Shed is ignored.
func (s *Service) ListSales(ctx context.Context, f ListFilter) ([]models.Sale, error) {
	f.Shed = ""
	return cachedList(ctx, s, cache.RouteSales, f.IsZero(), s.sales, f.query(false))
}
