package market

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyeonwoo-dev/jipcheck/internal/audit"
	"github.com/hyeonwoo-dev/jipcheck/internal/model"
)

// Window lengths per contract type. Lease pricing moves slowly, so a longer
// trailing window buys sample size; the sale-equivalent value wants fresher
// comparables.
const (
	leaseWindowMonths = 6
	saleWindowMonths  = 3
)

// WindowFetcher is the one call the aggregator makes per (region, month).
type WindowFetcher interface {
	FetchWindow(ctx context.Context, regionCode string, kind model.TransactionKind, yearMonth string) ([]model.Transaction, error)
}

// Aggregator builds a MarketSnapshot for a resolved region. Individual
// month fetches that exhaust their retries degrade the window and are
// audited; they never fail the snapshot.
type Aggregator struct {
	fetcher      WindowFetcher
	recoveryRate float64
	sink         audit.Sink
	logger       *zap.Logger
}

// NewAggregator creates an Aggregator. recoveryRate is the fraction of the
// sale-equivalent value a forced auction is expected to recover.
func NewAggregator(fetcher WindowFetcher, recoveryRate float64, sink audit.Sink, logger *zap.Logger) *Aggregator {
	if recoveryRate <= 0 || recoveryRate > 1 {
		recoveryRate = 0.75
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{fetcher: fetcher, recoveryRate: recoveryRate, sink: sink, logger: logger}
}

// Snapshot gathers the windows the contract type needs. Lease contracts take
// a 6-month lease window and a 3-month sale window, fetched concurrently;
// sale contracts take only the current month's sales.
func (a *Aggregator) Snapshot(ctx context.Context, caseID string, region model.Region, contractType model.ContractType, now time.Time) (*model.MarketSnapshot, error) {
	snapshot := &model.MarketSnapshot{
		RegionCode: region.Code,
		AsOf:       now.UTC(),
		Location:   region.Location,
	}

	if contractType.IsLease() {
		var lease, sale *model.WindowStats
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			lease = a.fetchWindowStats(gctx, caseID, region.Code, model.TransactionLease, leaseWindowMonths, now)
			return gctx.Err()
		})
		g.Go(func() error {
			sale = a.fetchWindowStats(gctx, caseID, region.Code, model.TransactionSale, saleWindowMonths, now)
			return gctx.Err()
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		snapshot.Lease = lease
		snapshot.Sale = sale
	} else {
		snapshot.Sale = a.fetchWindowStats(ctx, caseID, region.Code, model.TransactionSale, 1, now)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if mean := snapshot.EstimatedValue(); mean != nil && contractType.IsLease() {
		recovery := int64(float64(*mean) * a.recoveryRate)
		snapshot.RecoveryValue = &recovery
	}

	return snapshot, nil
}

// fetchWindowStats pulls one trailing window month by month and aggregates
// it. A failed month is recorded and skipped.
func (a *Aggregator) fetchWindowStats(ctx context.Context, caseID, regionCode string, kind model.TransactionKind, months int, now time.Time) *model.WindowStats {
	stats := &model.WindowStats{
		Kind:         kind,
		Months:       months,
		Transactions: []model.Transaction{},
	}

	for _, yearMonth := range trailingMonths(now, months) {
		if ctx.Err() != nil {
			return stats
		}
		transactions, err := a.fetcher.FetchWindow(ctx, regionCode, kind, yearMonth)
		if err != nil {
			stats.MonthsFailed = append(stats.MonthsFailed, yearMonth)
			a.sink.Record(ctx, audit.Event{
				Type:     audit.EventMarketDegraded,
				Severity: audit.SeverityWarning,
				CaseID:   caseID,
				Metadata: map[string]interface{}{
					"region":     regionCode,
					"kind":       string(kind),
					"year_month": yearMonth,
					"error":      err.Error(),
				},
			})
			continue
		}
		stats.Transactions = append(stats.Transactions, transactions...)
	}

	stats.SampleCount = len(stats.Transactions)
	amounts := make([]int64, 0, stats.SampleCount)
	for _, txn := range stats.Transactions {
		amounts = append(amounts, txn.Amount)
	}
	stats.TrimmedMean = TrimmedMean(amounts)

	a.logger.Debug("market window",
		zap.String("region", regionCode),
		zap.String("kind", string(kind)),
		zap.Int("months", months),
		zap.Int("samples", stats.SampleCount),
		zap.Int("months_failed", len(stats.MonthsFailed)))

	return stats
}

// TrimmedMean averages after dropping the single minimum and single maximum
// sample. With two or fewer samples there is nothing safe to trim, so all
// samples are averaged; with zero samples the mean is absent, not zero.
func TrimmedMean(amounts []int64) *int64 {
	if len(amounts) == 0 {
		return nil
	}

	sorted := make([]int64, len(amounts))
	copy(sorted, amounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if len(sorted) > 2 {
		sorted = sorted[1 : len(sorted)-1]
	}

	var sum int64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / int64(len(sorted))
	return &mean
}

// trailingMonths lists the YYYYMM windows ending at now, most recent first.
func trailingMonths(now time.Time, n int) []string {
	months := make([]string, 0, n)
	year, month, _ := now.Date()
	current := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		months = append(months, current.Format("200601"))
		current = current.AddDate(0, -1, 0)
	}
	return months
}
