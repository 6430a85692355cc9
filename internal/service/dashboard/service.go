// Package dashboard builds the role-specific dashboard views from the farm's
// record tables.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/cache"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
)

const recentSalesLimit = 5

// ViewCache stores rendered views by route. A view is stored only if the
// route was not invalidated while it was being rendered.
type ViewCache interface {
	Get(route string) (any, bool)
	Generation(route string) uint64
	SetIfCurrent(route string, gen uint64, value any) bool
}

// Service fetches dashboard inputs and renders them.
type Service struct {
	eggs        repository.Table[models.EggCollection]
	mortality   repository.Table[models.Mortality]
	allocations repository.Table[models.FeedAllocation]
	stock       repository.Table[models.FeedStock]
	sales       repository.Table[models.Sale]
	tasks       repository.Table[models.Task]

	birdStart int
	views     ViewCache
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a dashboard service. views and loc may be nil.
func NewService(backend repository.Backend, birdStart int, views ViewCache, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		eggs:        repository.NewTable[models.EggCollection](backend, models.TableEggCollection),
		mortality:   repository.NewTable[models.Mortality](backend, models.TableMortality),
		allocations: repository.NewTable[models.FeedAllocation](backend, models.TableFeedAllocation),
		stock:       repository.NewTable[models.FeedStock](backend, models.TableFeedStock),
		sales:       repository.NewTable[models.Sale](backend, models.TableSales),
		tasks:       repository.NewTable[models.Task](backend, models.TableTasks),
		birdStart:   birdStart,
		views:       views,
		loc:         loc,
		logger:      logger,
		now:         time.Now,
	}
}

// Today returns the current farm day.
func (s *Service) Today() models.Date {
	return models.NewDate(s.now().In(s.loc))
}

// Manager returns the manager dashboard. Any failed query yields Unavailable();
// failures are never retried and never cached.
func (s *Service) Manager(ctx context.Context) View {
	var gen uint64
	if s.views != nil {
		if v, ok := s.views.Get(cache.RouteDashboard); ok {
			if view, ok := v.(View); ok {
				return view
			}
		}
		gen = s.views.Generation(cache.RouteDashboard)
	}

	in, err := s.fetchManagerInput(ctx, s.Today())
	if err != nil {
		s.logger.Error("dashboard data unavailable", zap.Error(err))
		return Unavailable()
	}

	view := Aggregate(in)
	if s.views != nil {
		s.views.SetIfCurrent(cache.RouteDashboard, gen, view)
	}
	return view
}

func (s *Service) fetchManagerInput(ctx context.Context, today models.Date) (Input, error) {
	in := Input{Today: today, BirdStartCount: s.birdStart}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.eggs.List(gctx, repository.Query{}.Since("date", EggWindowStart(today).String()))
		in.Eggs = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.mortality.List(gctx, repository.Query{})
		in.Mortality = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.allocations.List(gctx, repository.Query{})
		in.Allocations = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.stock.List(gctx, repository.Query{})
		in.Stock = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return Input{}, fmt.Errorf("fetch dashboard input: %w", err)
	}
	return in, nil
}

// WorkerView is what a worker sees for their own shed.
type WorkerView struct {
	Shed           string        `json:"shed"`
	Date           models.Date   `json:"date"`
	EggsToday      int           `json:"eggs_today"`
	BrokenToday    int           `json:"broken_today"`
	Crates         int           `json:"crates"`
	Pieces         int           `json:"pieces"`
	MortalityToday int           `json:"mortality_today"`
	OpenTasks      []models.Task `json:"open_tasks"`
	Error          string        `json:"error,omitempty"`
}

// Worker returns today's figures for the caller's shed and their open tasks.
func (s *Service) Worker(ctx context.Context, id auth.Identity) WorkerView {
	today := s.Today()
	view := WorkerView{Shed: id.AssignedShed, Date: today, OpenTasks: []models.Task{}}

	var (
		eggs      []models.EggCollection
		mortality []models.Mortality
		tasks     []models.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		eggs, err = s.eggs.List(gctx, repository.Query{}.Where("shed", id.AssignedShed).Where("date", today.String()))
		return err
	})
	g.Go(func() error {
		var err error
		mortality, err = s.mortality.List(gctx, repository.Query{}.Where("shed", id.AssignedShed).Where("date", today.String()))
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = s.tasks.List(gctx, repository.Query{}.Where("assigned_to", id.UserID).OrderBy("due_date", false))
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("worker dashboard unavailable", zap.String("user_id", id.UserID), zap.Error(err))
		view.Error = "dashboard data is unavailable"
		return view
	}

	for _, e := range eggs {
		view.EggsToday += e.TotalEggs
		view.BrokenToday += e.BrokenEggs
	}
	view.Crates, view.Pieces = models.SplitCrates(view.EggsToday)
	for _, m := range mortality {
		view.MortalityToday += m.Count
	}
	for _, t := range tasks {
		if t.Status != models.TaskCompleted {
			view.OpenTasks = append(view.OpenTasks, t)
		}
	}
	return view
}

// ItemRevenue is the month's revenue for one item.
type ItemRevenue struct {
	Item    string          `json:"item"`
	Revenue decimal.Decimal `json:"revenue"`
}

// SalesView is the sales representative's dashboard.
type SalesView struct {
	RevenueToday   decimal.Decimal `json:"revenue_today"`
	RevenueMonth   decimal.Decimal `json:"revenue_month"`
	SalesThisMonth int             `json:"sales_this_month"`
	RevenueByItem  []ItemRevenue   `json:"revenue_by_item"`
	Recent         []models.Sale   `json:"recent"`
	Error          string          `json:"error,omitempty"`
}

// Sales returns revenue figures for today and the current month.
func (s *Service) Sales(ctx context.Context) SalesView {
	var gen uint64
	if s.views != nil {
		if v, ok := s.views.Get(cache.RouteSalesDashboard); ok {
			if view, ok := v.(SalesView); ok {
				return view
			}
		}
		gen = s.views.Generation(cache.RouteSalesDashboard)
	}

	today := s.Today()
	view := SalesView{RevenueByItem: []ItemRevenue{}, Recent: []models.Sale{}}

	var month, recent []models.Sale
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		month, err = s.sales.List(gctx, repository.Query{}.Since("date", MonthStart(today).String()).Until("date", today.String()))
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.sales.List(gctx, repository.Query{}.OrderBy("date", true).Take(recentSalesLimit))
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("sales dashboard unavailable", zap.Error(err))
		view.Error = "sales data is unavailable"
		return view
	}

	byItem := make(map[string]decimal.Decimal)
	for _, sale := range month {
		view.RevenueMonth = view.RevenueMonth.Add(sale.TotalPrice)
		if sale.Date.Equal(today) {
			view.RevenueToday = view.RevenueToday.Add(sale.TotalPrice)
		}
		byItem[sale.ItemSold] = byItem[sale.ItemSold].Add(sale.TotalPrice)
	}
	view.SalesThisMonth = len(month)
	for item, revenue := range byItem {
		view.RevenueByItem = append(view.RevenueByItem, ItemRevenue{Item: item, Revenue: revenue})
	}
	sort.Slice(view.RevenueByItem, func(i, j int) bool {
		if c := view.RevenueByItem[i].Revenue.Cmp(view.RevenueByItem[j].Revenue); c != 0 {
			return c > 0
		}
		return view.RevenueByItem[i].Item < view.RevenueByItem[j].Item
	})
	view.Recent = append(view.Recent, recent...)

	if s.views != nil {
		s.views.SetIfCurrent(cache.RouteSalesDashboard, gen, view)
	}
	return view
}
