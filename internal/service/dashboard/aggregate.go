package dashboard

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mamadbah2/farmops/internal/domain/models"
)

const (
	seriesBuckets  = 6
	activityLimit  = 3
	rateWindowDays = 30
	notAvailable   = "N/A"
)

// KPI is one dashboard card: a formatted value and its trend delta.
type KPI struct {
	Title string  `json:"title"`
	Value string  `json:"value"`
	Trend string  `json:"trend"`
	Raw   float64 `json:"raw"`
}

// SeriesPoint is one bucket of a time series.
type SeriesPoint struct {
	Label string      `json:"label"`
	Start models.Date `json:"start"`
	Value float64     `json:"value"`
}

// ShedFeed is the total feed allocated to one shed.
type ShedFeed struct {
	Shed     string  `json:"shed"`
	Quantity float64 `json:"quantity"`
}

// Activity is one entry of the recent-activity feed.
type Activity struct {
	Kind        string      `json:"kind"`
	Description string      `json:"description"`
	Date        models.Date `json:"date"`
	By          string      `json:"by,omitempty"`
}

// View is the manager dashboard view model.
type View struct {
	Available        bool          `json:"available"`
	ActiveBirds      int           `json:"active_birds"`
	EggProduction    KPI           `json:"egg_production"`
	FeedConsumption  KPI           `json:"feed_consumption"`
	MortalityRate    KPI           `json:"mortality_rate"`
	BrokenEggs       KPI           `json:"broken_eggs"`
	FeedInventory    KPI           `json:"feed_inventory"`
	WeeklyEggs       []SeriesPoint `json:"weekly_eggs"`
	MonthlyMortality []SeriesPoint `json:"monthly_mortality"`
	FeedByShed       []ShedFeed    `json:"feed_by_shed"`
	Activity         []Activity    `json:"activity"`
}

// Input is everything Aggregate needs. Eggs must cover EggWindowStart(Today)
// through Today; the other sets cover all time.
type Input struct {
	Today          models.Date
	BirdStartCount int
	Eggs           []models.EggCollection
	Mortality      []models.Mortality
	Allocations    []models.FeedAllocation
	Stock          []models.FeedStock
}

const (
	titleProduction = "Egg Production Rate"
	titleFeed       = "Feed Consumption Today"
	titleMortality  = "Mortality Rate (30d)"
	titleBroken     = "Broken Eggs Today"
	titleInventory  = "Feed Inventory"
)

// Unavailable is the view served when any source query fails.
func Unavailable() View {
	na := func(title string) KPI { return KPI{Title: title, Value: notAvailable, Trend: notAvailable} }
	return View{
		EggProduction:    na(titleProduction),
		FeedConsumption:  na(titleFeed),
		MortalityRate:    na(titleMortality),
		BrokenEggs:       na(titleBroken),
		FeedInventory:    na(titleInventory),
		WeeklyEggs:       []SeriesPoint{},
		MonthlyMortality: []SeriesPoint{},
		FeedByShed:       []ShedFeed{},
		Activity:         []Activity{},
	}
}

// WeekStart returns the Monday on or before d.
func WeekStart(d models.Date) models.Date {
	return d.AddDays(-((int(d.Weekday()) + 6) % 7))
}

// MonthStart returns the first day of d's month.
func MonthStart(d models.Date) models.Date {
	return models.Date{Time: time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)}
}

// EggWindowStart is the first day the weekly egg series needs.
func EggWindowStart(today models.Date) models.Date {
	return WeekStart(today).AddDays(-7 * seriesBuckets)
}

// ActiveBirds is the starting flock minus every recorded death.
func ActiveBirds(start int, mortality []models.Mortality) int {
	active := start
	for _, m := range mortality {
		active -= m.Count
	}
	return active
}

// Aggregate turns raw rows into the dashboard view. It is a pure function of its input.
func Aggregate(in Input) View {
	today := in.Today
	yesterday := today.AddDays(-1)
	active := ActiveBirds(in.BirdStartCount, in.Mortality)

	view := View{Available: true, ActiveBirds: active}

	eggsToday, brokenToday := eggsOn(in.Eggs, today)
	eggsYesterday, brokenYesterday := eggsOn(in.Eggs, yesterday)

	rateToday := percent(float64(eggsToday), float64(active), active)
	rateYesterday := percent(float64(eggsYesterday), float64(active), active)
	view.EggProduction = KPI{
		Title: titleProduction,
		Value: fmt.Sprintf("%.1f%%", rateToday),
		Trend: fmt.Sprintf("%+.1f%% from yesterday", delta(rateToday, rateYesterday)),
		Raw:   rateToday,
	}

	feedToday := allocatedOn(in.Allocations, today, "")
	feedYesterday := allocatedOn(in.Allocations, yesterday, "")
	view.FeedConsumption = KPI{
		Title: titleFeed,
		Value: fmt.Sprintf("%.1f", feedToday),
		Trend: fmt.Sprintf("%+.1f from yesterday", delta(feedToday, feedYesterday)),
		Raw:   feedToday,
	}

	currentDeaths := deathsBetween(in.Mortality, today.AddDays(-rateWindowDays), today)
	priorDeaths := deathsBetween(in.Mortality, today.AddDays(-2*rateWindowDays), today.AddDays(-rateWindowDays))
	// Each window's rate is taken over the flock alive when that window opened.
	currentRate := percent(float64(currentDeaths), float64(active+currentDeaths), active)
	priorRate := percent(float64(priorDeaths), float64(active+currentDeaths+priorDeaths), active)
	view.MortalityRate = KPI{
		Title: titleMortality,
		Value: fmt.Sprintf("%.1f%%", currentRate),
		Trend: fmt.Sprintf("%+.1f%% from last month", delta(currentRate, priorRate)),
		Raw:   currentRate,
	}

	view.BrokenEggs = KPI{
		Title: titleBroken,
		Value: fmt.Sprintf("%d", brokenToday),
		Trend: fmt.Sprintf("%+d from yesterday", brokenToday-brokenYesterday),
		Raw:   float64(brokenToday),
	}

	inventory := FeedInventory(in.Stock, in.Allocations)
	movement := stockedOn(in.Stock, today) - allocatedOn(in.Allocations, today, models.UnitBags)
	view.FeedInventory = KPI{
		Title: titleInventory,
		Value: fmt.Sprintf("%.1f bags", inventory),
		Trend: fmt.Sprintf("%+.1f bags today", round1(movement)),
		Raw:   inventory,
	}

	view.WeeklyEggs = weeklyEggs(in.Eggs, today)
	view.MonthlyMortality = monthlyMortality(in.Mortality, today)
	view.FeedByShed = feedByShed(in.Allocations)
	view.Activity = activityFeed(in.Allocations, in.Mortality, in.Stock)

	return view
}

// FeedInventory is bags received minus bags allocated, over all time.
func FeedInventory(stock []models.FeedStock, allocations []models.FeedAllocation) float64 {
	var total float64
	for _, s := range stock {
		if s.Unit == models.UnitBags {
			total += s.Quantity
		}
	}
	for _, a := range allocations {
		if a.Unit == models.UnitBags {
			total -= a.QuantityAllocated
		}
	}
	return total
}

func percent(part, whole float64, active int) float64 {
	if active <= 0 || whole <= 0 {
		return 0
	}
	return part / whole * 100
}

// delta rounds to the displayed precision so that "-0.0" never shows.
func delta(current, previous float64) float64 {
	return round1(current - previous)
}

func round1(v float64) float64 {
	r := math.Round(v*10) / 10
	if r == 0 {
		return 0
	}
	return r
}

func eggsOn(rows []models.EggCollection, day models.Date) (total, broken int) {
	for _, r := range rows {
		if r.Date.Equal(day) {
			total += r.TotalEggs
			broken += r.BrokenEggs
		}
	}
	return total, broken
}

// allocatedOn sums allocations on day; an empty unit matches every unit.
func allocatedOn(rows []models.FeedAllocation, day models.Date, unit models.FeedUnit) float64 {
	var total float64
	for _, r := range rows {
		if r.Date.Equal(day) && (unit == "" || r.Unit == unit) {
			total += r.QuantityAllocated
		}
	}
	return total
}

func stockedOn(rows []models.FeedStock, day models.Date) float64 {
	var total float64
	for _, r := range rows {
		if r.Date.Equal(day) && r.Unit == models.UnitBags {
			total += r.Quantity
		}
	}
	return total
}

// deathsBetween sums mortality with after < date <= through.
func deathsBetween(rows []models.Mortality, after, through models.Date) int {
	var total int
	for _, r := range rows {
		if r.Date.After(after.Time) && !r.Date.After(through.Time) {
			total += r.Count
		}
	}
	return total
}

func inRange(d, start, end models.Date) bool {
	return !d.Before(start.Time) && d.Before(end.Time)
}

func weeklyEggs(rows []models.EggCollection, today models.Date) []SeriesPoint {
	current := WeekStart(today)
	points := make([]SeriesPoint, 0, seriesBuckets)
	for k := seriesBuckets; k >= 1; k-- {
		start := current.AddDays(-7 * k)
		end := start.AddDays(7)
		var total int
		for _, r := range rows {
			if inRange(r.Date, start, end) {
				total += r.TotalEggs
			}
		}
		points = append(points, SeriesPoint{Label: start.Format("Jan 2"), Start: start, Value: float64(total)})
	}
	return points
}

func monthlyMortality(rows []models.Mortality, today models.Date) []SeriesPoint {
	current := MonthStart(today)
	points := make([]SeriesPoint, 0, seriesBuckets)
	for k := seriesBuckets; k >= 1; k-- {
		start := models.Date{Time: current.AddDate(0, -k, 0)}
		end := models.Date{Time: start.AddDate(0, 1, 0)}
		var total int
		for _, r := range rows {
			if inRange(r.Date, start, end) {
				total += r.Count
			}
		}
		points = append(points, SeriesPoint{Label: start.Format("Jan 2006"), Start: start, Value: float64(total)})
	}
	return points
}

func feedByShed(rows []models.FeedAllocation) []ShedFeed {
	totals := make(map[string]float64)
	for _, r := range rows {
		totals[r.Shed] += r.QuantityAllocated
	}
	out := make([]ShedFeed, 0, len(totals))
	for shed, qty := range totals {
		out = append(out, ShedFeed{Shed: shed, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Shed < out[j].Shed })
	return out
}

func newestFirst[T any](rows []T, date func(T) models.Date) []T {
	sorted := append([]T(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return date(sorted[i]).After(date(sorted[j]).Time) })
	if len(sorted) > activityLimit {
		sorted = sorted[:activityLimit]
	}
	return sorted
}

func activityFeed(allocations []models.FeedAllocation, mortality []models.Mortality, stock []models.FeedStock) []Activity {
	feed := make([]Activity, 0, 3*activityLimit)

	for _, a := range newestFirst(allocations, func(r models.FeedAllocation) models.Date { return r.Date }) {
		feed = append(feed, Activity{
			Kind:        models.TableFeedAllocation,
			Description: fmt.Sprintf("%.1f %s of %s allocated to %s", a.QuantityAllocated, a.Unit, a.FeedType, a.Shed),
			Date:        a.Date,
			By:          a.AllocatedBy,
		})
	}
	for _, m := range newestFirst(mortality, func(r models.Mortality) models.Date { return r.Date }) {
		desc := fmt.Sprintf("%d birds lost in %s", m.Count, m.Shed)
		if m.Cause != "" {
			desc += " (" + m.Cause + ")"
		}
		feed = append(feed, Activity{Kind: models.TableMortality, Description: desc, Date: m.Date, By: m.RecordedBy})
	}
	for _, s := range newestFirst(stock, func(r models.FeedStock) models.Date { return r.Date }) {
		desc := fmt.Sprintf("%.1f %s of %s received", s.Quantity, s.Unit, s.FeedType)
		if s.Supplier != "" {
			desc += " from " + s.Supplier
		}
		feed = append(feed, Activity{Kind: models.TableFeedStock, Description: desc, Date: s.Date})
	}

	sort.SliceStable(feed, func(i, j int) bool { return feed[i].Date.After(feed[j].Date.Time) })
	if len(feed) > activityLimit {
		feed = feed[:activityLimit]
	}
	return feed
}
