package fraud

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/store"
	"payment-settlement-go/internal/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	detailsRateLimit = "Transaction rate limit exceeded"
)

// Verdict is the advisory outcome of a screening. Flagged never blocks settlement.
type Verdict struct {
	Flagged bool
	Alerts  []models.SecurityAlert
}

// Engine applies the large-transaction and rate-limit rules and records the
// alerts they raise.
type Engine struct {
	alerts store.AlertStore
	cfg    models.FraudConfig
	now    func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source used for the rate window and alert timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(alerts store.AlertStore, cfg models.FraudConfig, opts ...Option) *Engine {
	e := &Engine{alerts: alerts, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Window returns the start of the trailing rate window as of now.
func (e *Engine) Window() time.Time {
	return e.now().Add(-e.cfg.RateWindow)
}

// Assess applies both rules without recording anything.
func (e *Engine) Assess(userId string, amount *big.Int, recent []models.TransactionRecord) Verdict {
	now := e.now()
	var verdict Verdict

	if e.isLarge(amount) {
		verdict.Alerts = append(verdict.Alerts, e.newAlert(models.AlertLargeTransaction, userId,
			fmt.Sprintf("Large transaction detected: %s ETH", validate.FormatEther(amount)), now))
	}

	if count := e.countInWindow(userId, recent, now); e.cfg.MaxTransactionsPerHour > 0 && count >= e.cfg.MaxTransactionsPerHour {
		zap.L().Debug("Rate window exceeded",
			zap.String("user_id", userId),
			zap.Int("count", count),
			zap.Int("limit", e.cfg.MaxTransactionsPerHour))
		verdict.Alerts = append(verdict.Alerts, e.newAlert(models.AlertRateLimit, userId, detailsRateLimit, now))
	}

	verdict.Flagged = len(verdict.Alerts) > 0
	return verdict
}

// Evaluate screens a payment of amount wei by userId against recent, the
// caller-supplied trailing history, and stores every alert raised.
// The verdict is always complete; a non-nil error only reports alerts that
// could not be persisted.
func (e *Engine) Evaluate(ctx context.Context, userId string, amount *big.Int, recent []models.TransactionRecord) (Verdict, error) {
	verdict := e.Assess(userId, amount, recent)
	if !verdict.Flagged {
		return verdict, nil
	}

	var errs []error
	for i := range verdict.Alerts {
		alert := verdict.Alerts[i]
		zap.L().Warn("Security alert raised",
			zap.String("alert_id", alert.Id),
			zap.String("type", string(alert.Type)),
			zap.String("user_id", userId),
			zap.String("details", alert.Details))

		if e.alerts == nil {
			continue
		}
		if err := e.alerts.AddAlert(ctx, &alert); err != nil {
			errs = append(errs, fmt.Errorf("failed to store %s alert: %w", alert.Type, err))
		}
	}

	return verdict, errors.Join(errs...)
}

func (e *Engine) isLarge(amount *big.Int) bool {
	threshold := e.cfg.LargeTransactionThreshold
	return amount != nil && threshold != nil && amount.Cmp(threshold) >= 0
}

func (e *Engine) countInWindow(userId string, recent []models.TransactionRecord, now time.Time) int {
	since := now.Add(-e.cfg.RateWindow)
	count := 0
	for _, r := range recent {
		if r.UserId != userId {
			continue
		}
		if r.Timestamp.Before(since) || r.Timestamp.After(now) {
			continue
		}
		count++
	}
	return count
}

func (e *Engine) newAlert(t models.AlertType, userId, details string, now time.Time) models.SecurityAlert {
	return models.SecurityAlert{
		Id:        uuid.New().String(),
		Type:      t,
		UserId:    userId,
		Details:   details,
		Timestamp: now,
	}
}
