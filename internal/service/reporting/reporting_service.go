package reporting

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
	"github.com/mamadbah2/farmops/internal/repository/sheets"
)

// Kind names an exportable report.
type Kind string

const (
	KindEggs            Kind = "eggs"
	KindMortality       Kind = "mortality"
	KindFeedAllocations Kind = "feed-allocations"
	KindFeedStock       Kind = "feed-stock"
	KindSales           Kind = "sales"
)

var (
	// ErrUnknownKind is returned for report kinds that do not exist.
	ErrUnknownKind = errors.New("unknown report kind")
	// ErrForbidden is returned when the caller's role may not read the report.
	ErrForbidden = errors.New("not allowed to read this report")
	// ErrArchiveDisabled is returned when no snapshot archive is configured.
	ErrArchiveDisabled = errors.New("daily report archive is not configured")
)

// Filter bounds a report. Zero fields do not filter.
type Filter struct {
	From models.Date
	To   models.Date
	Shed string
}

// Table is a rendered report.
type Table struct {
	Kind   Kind       `json:"kind"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Archive stores daily snapshots.
type Archive interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
	LatestDailyReports(ctx context.Context, limit int64) ([]models.DailyReport, error)
}

// Sink receives one spreadsheet row per snapshot.
type Sink interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
}

// Service renders record reports and builds daily snapshots.
type Service struct {
	eggs        repository.Table[models.EggCollection]
	mortality   repository.Table[models.Mortality]
	allocations repository.Table[models.FeedAllocation]
	stock       repository.Table[models.FeedStock]
	sales       repository.Table[models.Sale]

	birdStart int
	archive   Archive
	sink      Sink
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a new reporting service instance. archive and sink are optional.
func NewService(backend repository.Backend, birdStart int, archive Archive, sink Sink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		eggs:        repository.NewTable[models.EggCollection](backend, models.TableEggCollection),
		mortality:   repository.NewTable[models.Mortality](backend, models.TableMortality),
		allocations: repository.NewTable[models.FeedAllocation](backend, models.TableFeedAllocation),
		stock:       repository.NewTable[models.FeedStock](backend, models.TableFeedStock),
		sales:       repository.NewTable[models.Sale](backend, models.TableSales),
		birdStart:   birdStart,
		archive:     archive,
		sink:        sink,
		logger:      logger,
		now:         time.Now,
	}
}

func (f Filter) query(withShed bool) repository.Query {
	q := repository.Query{}.OrderBy("date", false)
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

// Report renders one record table. Sales representatives may only read the
// sales report; workers are limited to their own shed.
func (s *Service) Report(ctx context.Context, actor auth.Identity, kind Kind, f Filter) (Table, error) {
	switch {
	case actor.Is(models.RoleSalesRep) && kind != KindSales:
		return Table{}, ErrForbidden
	case actor.Is(models.RoleWorker):
		if kind == KindSales || kind == KindFeedStock {
			return Table{}, ErrForbidden
		}
		if actor.AssignedShed == "" {
			return Table{}, ErrForbidden
		}
		f.Shed = actor.AssignedShed
	}

	table := Table{Kind: kind, Rows: [][]string{}}
	switch kind {
	case KindEggs:
		rows, err := s.eggs.List(ctx, f.query(true))
		if err != nil {
			return Table{}, err
		}
		table.Header = []string{"Date", "Shed", "Collection Time", "Total Eggs", "Broken Eggs", "Crates", "Pieces", "Collected By"}
		for _, r := range rows {
			table.Rows = append(table.Rows, []string{r.Date.String(), r.Shed, r.CollectionTime, itoa(r.TotalEggs), itoa(r.BrokenEggs), itoa(r.Crates), itoa(r.Pieces), r.CollectedBy})
		}
	case KindMortality:
		rows, err := s.mortality.List(ctx, f.query(true))
		if err != nil {
			return Table{}, err
		}
		table.Header = []string{"Date", "Shed", "Count", "Cause", "Recorded By"}
		for _, r := range rows {
			table.Rows = append(table.Rows, []string{r.Date.String(), r.Shed, itoa(r.Count), r.Cause, r.RecordedBy})
		}
	case KindFeedAllocations:
		rows, err := s.allocations.List(ctx, f.query(true))
		if err != nil {
			return Table{}, err
		}
		table.Header = []string{"Date", "Shed", "Feed Type", "Quantity", "Unit", "Allocated By"}
		for _, r := range rows {
			table.Rows = append(table.Rows, []string{r.Date.String(), r.Shed, r.FeedType, ftoa(r.QuantityAllocated), string(r.Unit), r.AllocatedBy})
		}
	case KindFeedStock:
		rows, err := s.stock.List(ctx, f.query(false))
		if err != nil {
			return Table{}, err
		}
		table.Header = []string{"Date", "Feed Type", "Quantity", "Unit", "Supplier", "Cost"}
		for _, r := range rows {
			table.Rows = append(table.Rows, []string{r.Date.String(), r.FeedType, ftoa(r.Quantity), string(r.Unit), r.Supplier, strconv.FormatFloat(r.Cost, 'f', 2, 64)})
		}
	case KindSales:
		rows, err := s.sales.List(ctx, f.query(false))
		if err != nil {
			return Table{}, err
		}
		table.Header = []string{"Date", "Item", "Quantity", "Unit", "Unit Price", "Total Price", "Customer", "Recorded By"}
		for _, r := range rows {
			table.Rows = append(table.Rows, []string{r.Date.String(), r.ItemSold, r.Quantity.String(), r.Unit, r.UnitPrice.StringFixed(2), r.TotalPrice.StringFixed(2), r.CustomerName, r.RecordedBy})
		}
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return table, nil
}

// WriteCSV writes the table as CSV with a header line.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// Snapshot aggregates one day into a DailyReport, archives it and appends it
// to the spreadsheet when those are configured.
func (s *Service) Snapshot(ctx context.Context, day models.Date) (models.DailyReport, error) {
	var (
		eggs        []models.EggCollection
		mortality   []models.Mortality
		allocations []models.FeedAllocation
		sales       []models.Sale
	)
	onDay := repository.Query{}.Where("date", day.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		eggs, err = s.eggs.List(gctx, onDay)
		return err
	})
	g.Go(func() error {
		var err error
		mortality, err = s.mortality.List(gctx, repository.Query{}.Until("date", day.String()))
		return err
	})
	g.Go(func() error {
		var err error
		allocations, err = s.allocations.List(gctx, onDay)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.sales.List(gctx, onDay)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.DailyReport{}, fmt.Errorf("load snapshot data for %s: %w", day, err)
	}

	report := models.DailyReport{Date: day.Time, ActiveBirds: s.birdStart, CreatedAt: s.now().UTC()}
	for _, e := range eggs {
		report.EggsCollected += e.TotalEggs
		report.BrokenEggs += e.BrokenEggs
	}
	report.Crates, report.Pieces = models.SplitCrates(report.EggsCollected)
	for _, m := range mortality {
		report.ActiveBirds -= m.Count
		if m.Date.Equal(day) {
			report.Mortality += m.Count
		}
	}
	for _, a := range allocations {
		report.FeedConsumed += a.QuantityAllocated
	}
	for _, sale := range sales {
		amount, _ := sale.TotalPrice.Float64()
		report.SalesAmount += amount
	}
	report.SalesAmount = math.Round(report.SalesAmount*100) / 100
	if report.ActiveBirds > 0 {
		rate := float64(report.EggsCollected) / float64(report.ActiveBirds) * 100
		report.ProductionRate = math.Round(rate*100) / 100
	}

	var errs []error
	if s.archive != nil {
		if err := s.archive.SaveDailyReport(ctx, report); err != nil {
			s.logger.Error("archive daily report failed", zap.String("date", day.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("archive daily report: %w", err))
		}
	}
	if s.sink != nil {
		if err := s.sink.WriteRow(ctx, sheets.DailyReportRange, sheets.DailyReportRow(report)); err != nil {
			s.logger.Error("append daily report row failed", zap.String("date", day.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("append daily report row: %w", err))
		}
	}

	s.logger.Info("daily snapshot built",
		zap.String("date", day.String()),
		zap.Int("eggs", report.EggsCollected),
		zap.Int("mortality", report.Mortality),
		zap.Float64("production_rate", report.ProductionRate),
	)
	return report, errors.Join(errs...)
}

// History returns the most recent archived snapshots, newest first.
func (s *Service) History(ctx context.Context, limit int64) ([]models.DailyReport, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	reports, err := s.archive.LatestDailyReports(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load daily reports: %w", err)
	}
	if reports == nil {
		reports = []models.DailyReport{}
	}
	return reports, nil
}

// Summary renders a snapshot as a short text message.
func Summary(r models.DailyReport) string {
	return fmt.Sprintf(
		"Farm summary %s: %d eggs (%d crates, %d pieces, %d broken), production rate %.2f%%, %d deaths, %.1f feed allocated, sales %.2f. Active birds: %d.",
		r.Date.Format(models.DateLayout), r.EggsCollected, r.Crates, r.Pieces, r.BrokenEggs,
		r.ProductionRate, r.Mortality, r.FeedConsumed, r.SalesAmount, r.ActiveBirds,
	)
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
