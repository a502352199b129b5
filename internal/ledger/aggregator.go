package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/store"
	"payment-settlement-go/internal/validate"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultDays = 30
	trendPeriod = 7 * 24 * time.Hour
)

var hundred = decimal.NewFromInt(100)

// Aggregator reads a ledger store for history views.
type Aggregator struct {
	ledger store.LedgerStore
}

func NewAggregator(ledger store.LedgerStore) *Aggregator {
	return &Aggregator{ledger: ledger}
}

// ListForUser returns every record of userId, newest first.
func (a *Aggregator) ListForUser(ctx context.Context, userId string) ([]models.TransactionRecord, error) {
	records, err := a.ledger.QueryTransactions(ctx, store.TransactionFilter{UserId: userId})
	if err != nil {
		return nil, fmt.Errorf("unable to list transactions for user %s: %w", userId, err)
	}
	sortNewestFirst(records)
	return records, nil
}

// ListForAddress returns every record paid from address, newest first.
func (a *Aggregator) ListForAddress(ctx context.Context, address string) ([]models.TransactionRecord, error) {
	from := validate.NormalizeAddress(address)
	records, err := a.ledger.QueryTransactions(ctx, store.TransactionFilter{From: from})
	if err != nil {
		return nil, fmt.Errorf("unable to list transactions for address %s: %w", from, err)
	}
	sortNewestFirst(records)
	return records, nil
}

func sortNewestFirst(records []models.TransactionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

// ComputeStats summarises records. Volume and average cover completed
// records only; success rate is the completed share of all records.
func ComputeStats(records []models.TransactionRecord) models.Stats {
	stats := models.Stats{
		TotalTransactions: len(records),
		TotalVolume:       decimal.Zero,
		AvgAmount:         decimal.Zero,
		SuccessRate:       decimal.Zero,
	}
	if len(records) == 0 {
		return stats
	}

	completed := 0
	for _, r := range records {
		if r.Status != models.StatusCompleted {
			continue
		}
		completed++
		stats.TotalVolume = stats.TotalVolume.Add(displayAmount(r))
	}

	if completed > 0 {
		stats.AvgAmount = stats.TotalVolume.Div(decimal.NewFromInt(int64(completed)))
	}
	stats.SuccessRate = decimal.NewFromInt(int64(completed)).Mul(hundred).Div(decimal.NewFromInt(int64(len(records))))
	return stats
}

// ComputeTrend compares completed volume in (now-7d, now] against
// (now-14d, now-7d] and returns the change in percent. It is zero when the
// previous period had no volume.
func ComputeTrend(records []models.TransactionRecord, now time.Time) decimal.Decimal {
	currentStart := now.Add(-trendPeriod)
	previousStart := currentStart.Add(-trendPeriod)

	current, previous := decimal.Zero, decimal.Zero
	for _, r := range records {
		if r.Status != models.StatusCompleted {
			continue
		}
		switch {
		case r.Timestamp.After(currentStart) && !r.Timestamp.After(now):
			current = current.Add(displayAmount(r))
		case r.Timestamp.After(previousStart) && !r.Timestamp.After(currentStart):
			previous = previous.Add(displayAmount(r))
		}
	}

	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred)
}

// BucketByDay returns completed volume for each of the days calendar days
// ending with today in loc, oldest first.
func BucketByDay(records []models.TransactionRecord, now time.Time, days int, loc *time.Location) []models.DayVolume {
	if days <= 0 {
		days = DefaultDays
	}
	if loc == nil {
		loc = time.Local
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	buckets := make([]models.DayVolume, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i-days+1)
		buckets[i] = models.DayVolume{Date: day, Volume: decimal.Zero}
		index[day.Format(time.DateOnly)] = i
	}

	for _, r := range records {
		if r.Status != models.StatusCompleted {
			continue
		}
		i, ok := index[r.Timestamp.In(loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		buckets[i].Volume = buckets[i].Volume.Add(displayAmount(r))
	}
	return buckets
}

func displayAmount(r models.TransactionRecord) decimal.Decimal {
	wei, err := validate.ParseSmallestUnit(r.Amount)
	if err != nil {
		zap.L().Warn("Skipping record with unparseable amount",
			zap.String("id", r.Id),
			zap.String("amount", r.Amount))
		return decimal.Zero
	}
	return validate.ToDisplay(wei)
}
