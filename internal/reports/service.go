package reports

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jinzhu/now"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-tours/internal/bookings"
	"github.com/odyssey-erp/odyssey-tours/internal/fx"
)

// Report names used in cache keys and metrics.
const (
	ReportMonthlyPL   = "monthly_pl"
	ReportCashFlow    = "cash_flow"
	ReportSales       = "sales"
	ReportOutstanding = "outstanding"
)

// Recorder receives cache hit and miss counts.
type Recorder interface {
	ReportCacheLookup(report string, hit bool)
}

type Service struct {
	repo    Repository
	fx      bookings.ConverterProvider
	cache   *Cache
	group   singleflight.Group
	metrics Recorder
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithMetrics(m Recorder) Option { return func(s *Service) { s.metrics = m } }

func WithClock(clock func() time.Time) Option { return func(s *Service) { s.now = clock } }

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService wires the report queries with currency conversion and the
// versioned cache. A nil cache computes every report on demand.
func NewService(repo Repository, converter bookings.ConverterProvider, cache *Cache, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		fx:     converter,
		cache:  cache,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the reference date for as-of reports.
func (s *Service) Today() time.Time {
	return now.With(s.now().UTC()).BeginningOfDay()
}

// cached resolves a report through Redis. Identical concurrent requests share
// one computation.
func cached[T any](ctx context.Context, s *Service, report string, parts []string, load func(context.Context, *fx.Converter) (T, error)) (T, error) {
	var zero T
	loader := func(ctx context.Context) (any, error) {
		conv, err := s.fx.Converter(ctx)
		if err != nil {
			return nil, fmt.Errorf("load fx rates: %w", err)
		}
		return load(ctx, conv)
	}
	key, err := s.cache.BuildKey(ctx, append([]string{report}, parts...)...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.String("report", report), slog.Any("error", err))
		value, err := loader(ctx)
		if err != nil {
			return zero, err
		}
		return value.(T), nil
	}
	value, err, _ := s.group.Do(key, func() (any, error) {
		var out T
		hit, err := s.cache.FetchJSON(ctx, key, &out, loader)
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.ReportCacheLookup(report, hit)
		}
		return out, nil
	})
	if err != nil {
		return zero, err
	}
	return value.(T), nil
}

// MonthlyPL reports revenue and cost by travel month. Cancelled bookings are excluded.
func (s *Service) MonthlyPL(ctx context.Context, rng MonthRange) (PLReport, error) {
	return cached(ctx, s, ReportMonthlyPL, []string{rng.token()}, func(ctx context.Context, conv *fx.Converter) (PLReport, error) {
		var revenue, expenses []AmountRow
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			revenue, err = s.repo.Revenue(gctx, rng.Start(), rng.End())
			return err
		})
		g.Go(func() (err error) {
			expenses, err = s.repo.Expenses(gctx, rng.Start(), rng.End())
			return err
		})
		if err := g.Wait(); err != nil {
			return PLReport{}, fmt.Errorf("monthly p&l: %w", err)
		}
		return buildPL(conv, rng, revenue, expenses)
	})
}

func buildPL(conv *fx.Converter, rng MonthRange, revenue, expenses []AmountRow) (PLReport, error) {
	periods := rng.Periods()
	months := make(map[string]*MonthlyPL, len(periods))
	report := PLReport{BaseCurrency: conv.Table().Base, Months: make([]MonthlyPL, len(periods))}
	for i, p := range periods {
		report.Months[i].Period = p
		months[p] = &report.Months[i]
	}
	for _, row := range revenue {
		m, ok := months[row.Period]
		if !ok {
			continue
		}
		sell, cost, err := amountsToBase(conv, row)
		if err != nil {
			return PLReport{}, err
		}
		m.Bookings += row.Count
		m.Revenue += sell
		m.CostOfSales += cost
	}
	for _, row := range expenses {
		m, ok := months[row.Period]
		if !ok {
			continue
		}
		amount, err := conv.ToBase(row.Sell, row.Currency)
		if err != nil {
			return PLReport{}, err
		}
		m.OperatingExpenses += amount
	}
	report.Total.Period = rng.From.Format("2006-01") + ".." + rng.To.Format("2006-01")
	for i := range report.Months {
		m := &report.Months[i]
		m.finish()
		report.Total.Bookings += m.Bookings
		report.Total.Revenue += m.Revenue
		report.Total.CostOfSales += m.CostOfSales
		report.Total.OperatingExpenses += m.OperatingExpenses
	}
	report.Total.finish()
	return report, nil
}

func (m *MonthlyPL) finish() {
	m.Revenue = fx.Round(m.Revenue)
	m.CostOfSales = fx.Round(m.CostOfSales)
	m.OperatingExpenses = fx.Round(m.OperatingExpenses)
	m.GrossProfit = fx.Round(m.Revenue - m.CostOfSales)
	m.NetProfit = fx.Round(m.GrossProfit - m.OperatingExpenses)
}

// CashFlow reports money received from clients against money paid to
// suppliers and for operating expenses, by payment month.
func (s *Service) CashFlow(ctx context.Context, rng MonthRange) (CashFlowReport, error) {
	return cached(ctx, s, ReportCashFlow, []string{rng.token()}, func(ctx context.Context, conv *fx.Converter) (CashFlowReport, error) {
		var before, movements []CashRow
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			before, err = s.repo.CashBefore(gctx, rng.Start())
			return err
		})
		g.Go(func() (err error) {
			movements, err = s.repo.CashMovements(gctx, rng.Start(), rng.End())
			return err
		})
		if err := g.Wait(); err != nil {
			return CashFlowReport{}, fmt.Errorf("cash flow: %w", err)
		}
		return buildCashFlow(conv, rng, before, movements)
	})
}

func buildCashFlow(conv *fx.Converter, rng MonthRange, before, movements []CashRow) (CashFlowReport, error) {
	report := CashFlowReport{BaseCurrency: conv.Table().Base}
	for _, row := range before {
		in, out, err := cashToBase(conv, row)
		if err != nil {
			return CashFlowReport{}, err
		}
		report.OpeningBalance += in - out
	}
	report.OpeningBalance = fx.Round(report.OpeningBalance)

	periods := rng.Periods()
	index := make(map[string]int, len(periods))
	report.Months = make([]CashFlowPoint, len(periods))
	for i, p := range periods {
		report.Months[i].Period = p
		index[p] = i
	}
	for _, row := range movements {
		i, ok := index[row.Period]
		if !ok {
			continue
		}
		in, out, err := cashToBase(conv, row)
		if err != nil {
			return CashFlowReport{}, err
		}
		report.Months[i].CashIn += in
		report.Months[i].CashOut += out
	}
	balance := report.OpeningBalance
	for i := range report.Months {
		p := &report.Months[i]
		p.CashIn = fx.Round(p.CashIn)
		p.CashOut = fx.Round(p.CashOut)
		p.Net = fx.Round(p.CashIn - p.CashOut)
		balance = fx.Round(balance + p.Net)
		p.Balance = balance
	}
	report.ClosingBalance = balance
	return report, nil
}

var serviceLabels = map[string]string{
	"hotel":        "Hotels",
	"tour":         "Tours",
	"transfer":     "Transfers",
	"flight":       "Flights",
	"entrance_fee": "Entrance fees",
}

// Sales groups booking revenue by client, service category or status.
// Only the status breakdown includes cancelled bookings.
func (s *Service) Sales(ctx context.Context, dim Dimension, rng MonthRange) (SalesReport, error) {
	parts := []string{string(dim), rng.token()}
	return cached(ctx, s, ReportSales, parts, func(ctx context.Context, conv *fx.Converter) (SalesReport, error) {
		rows, err := s.repo.Sales(ctx, dim, rng.Start(), rng.End())
		if err != nil {
			return SalesReport{}, fmt.Errorf("sales by %s: %w", dim, err)
		}
		return buildSales(conv, dim, rows)
	})
}

func buildSales(conv *fx.Converter, dim Dimension, rows []AmountRow) (SalesReport, error) {
	grouped := map[string]*SalesRow{}
	var order []string
	for _, row := range rows {
		sell, cost, err := amountsToBase(conv, row)
		if err != nil {
			return SalesReport{}, err
		}
		g, ok := grouped[row.Key]
		if !ok {
			g = &SalesRow{Key: row.Key, Label: salesLabel(dim, row)}
			grouped[row.Key] = g
			order = append(order, row.Key)
		}
		g.Count += row.Count
		g.Revenue += sell
		g.Cost += cost
	}
	report := SalesReport{Dimension: dim, BaseCurrency: conv.Table().Base, Rows: make([]SalesRow, 0, len(order))}
	for _, key := range order {
		g := grouped[key]
		g.Revenue = fx.Round(g.Revenue)
		g.Cost = fx.Round(g.Cost)
		g.Profit = fx.Round(g.Revenue - g.Cost)
		if g.Revenue != 0 {
			g.MarginPct = fx.Round(g.Profit / g.Revenue * 100)
		}
		report.Rows = append(report.Rows, *g)
	}
	slices.SortStableFunc(report.Rows, func(a, b SalesRow) int {
		return cmp.Or(cmp.Compare(b.Revenue, a.Revenue), cmp.Compare(a.Key, b.Key))
	})
	return report, nil
}

func salesLabel(dim Dimension, row AmountRow) string {
	switch {
	case dim == ByService:
		if label, ok := serviceLabels[row.Key]; ok {
			return label
		}
	case dim == ByClient && row.Key == "":
		return "Unassigned"
	case row.Label != "":
		return row.Label
	}
	return row.Key
}

// Outstanding lists bookings with an open client balance or supplier
// payable as of the given date, aged by days since travel started.
func (s *Service) Outstanding(ctx context.Context, asOf time.Time) (OutstandingReport, error) {
	asOf = now.With(asOf.UTC()).BeginningOfDay()
	day := asOf.Format("2006-01-02")
	return cached(ctx, s, ReportOutstanding, []string{day}, func(ctx context.Context, conv *fx.Converter) (OutstandingReport, error) {
		rows, err := s.repo.Balances(ctx, asOf)
		if err != nil {
			return OutstandingReport{}, fmt.Errorf("outstanding balances: %w", err)
		}
		return buildOutstanding(conv, asOf, rows)
	})
}

func buildOutstanding(conv *fx.Converter, asOf time.Time, rows []BalanceRow) (OutstandingReport, error) {
	report := OutstandingReport{
		AsOf:         asOf.Format("2006-01-02"),
		BaseCurrency: conv.Table().Base,
		Items:        []OutstandingItem{},
	}
	totals := map[string]*AgingBucket{}
	for _, name := range agingBuckets() {
		report.Buckets = append(report.Buckets, AgingBucket{Bucket: name})
	}
	for i := range report.Buckets {
		totals[report.Buckets[i].Bucket] = &report.Buckets[i]
	}
	for _, row := range rows {
		item := OutstandingItem{
			BookingID:       row.BookingID,
			Reference:       row.Reference,
			ClientName:      row.ClientName,
			StartDate:       row.StartDate,
			Currency:        row.Currency,
			TotalSell:       row.TotalSell,
			AmountReceived:  row.Received,
			ClientBalance:   max(0, fx.Round(row.TotalSell-row.Received)),
			SupplierPayable: max(0, fx.Round(row.TotalCost-row.SupplierPaid)),
		}
		if item.ClientBalance < 0.005 && item.SupplierPayable < 0.005 {
			continue
		}
		item.DaysPast = max(0, int(asOf.Sub(row.StartDate).Hours()/24))
		item.Bucket = bucketFor(item.DaysPast)

		receivable, err := conv.ToBase(item.ClientBalance, row.Currency)
		if err != nil {
			return OutstandingReport{}, err
		}
		payable, err := conv.ToBase(item.SupplierPayable, row.Currency)
		if err != nil {
			return OutstandingReport{}, err
		}
		totals[item.Bucket].Receivable += receivable
		totals[item.Bucket].Payable += payable
		report.Items = append(report.Items, item)
	}
	for i := range report.Buckets {
		b := &report.Buckets[i]
		b.Receivable = fx.Round(b.Receivable)
		b.Payable = fx.Round(b.Payable)
		report.TotalReceivable += b.Receivable
		report.TotalPayable += b.Payable
	}
	report.TotalReceivable = fx.Round(report.TotalReceivable)
	report.TotalPayable = fx.Round(report.TotalPayable)
	return report, nil
}

// Dashboard combines the year-to-date reports. Each part is cached on its own.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	today := s.Today()
	year := MonthRange{From: now.With(today).BeginningOfYear(), To: now.With(today).BeginningOfMonth()}

	var (
		pl          PLReport
		cash        CashFlowReport
		outstanding OutstandingReport
		status      SalesReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { pl, err = s.MonthlyPL(gctx, year); return err })
	g.Go(func() (err error) { cash, err = s.CashFlow(gctx, year); return err })
	g.Go(func() (err error) { outstanding, err = s.Outstanding(gctx, today); return err })
	g.Go(func() (err error) { status, err = s.Sales(gctx, ByStatus, year); return err })
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		AsOf:            today.Format("2006-01-02"),
		BaseCurrency:    pl.BaseCurrency,
		YearToDate:      pl.Total,
		CashBalance:     cash.ClosingBalance,
		TotalReceivable: outstanding.TotalReceivable,
		TotalPayable:    outstanding.TotalPayable,
		ByStatus:        status.Rows,
		Aging:           outstanding.Buckets,
	}
	if n := len(pl.Months); n > 0 {
		d.CurrentMonth = pl.Months[n-1]
	}
	return d, nil
}

// WarmResult counts what one warmup step put in the cache.
type WarmResult struct {
	Report string
	Count  int
}

// Warm precomputes the current year P&L and cash flow and today's outstanding balances.
func (s *Service) Warm(ctx context.Context) ([]WarmResult, error) {
	today := s.Today()
	year := MonthRange{From: now.With(today).BeginningOfYear(), To: now.With(today).BeginningOfMonth()}

	pl, err := s.MonthlyPL(ctx, year)
	if err != nil {
		return nil, err
	}
	cash, err := s.CashFlow(ctx, year)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.Outstanding(ctx, today)
	if err != nil {
		return nil, err
	}
	return []WarmResult{
		{Report: ReportMonthlyPL, Count: len(pl.Months)},
		{Report: ReportCashFlow, Count: len(cash.Months)},
		{Report: ReportOutstanding, Count: len(outstanding.Items)},
	}, nil
}

func amountsToBase(conv *fx.Converter, row AmountRow) (float64, float64, error) {
	sell, err := conv.ToBase(row.Sell, row.Currency)
	if err != nil {
		return 0, 0, err
	}
	cost, err := conv.ToBase(row.Cost, row.Currency)
	if err != nil {
		return 0, 0, err
	}
	return sell, cost, nil
}

func cashToBase(conv *fx.Converter, row CashRow) (float64, float64, error) {
	in, err := conv.ToBase(row.In, row.Currency)
	if err != nil {
		return 0, 0, err
	}
	out, err := conv.ToBase(row.Out, row.Currency)
	if err != nil {
		return 0, 0, err
	}
	return in, out, nil
}
