package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"payment-settlement-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrNotSupported         = errors.New("operation not supported by backend")
	ErrInvalidRecord        = errors.New("invalid transaction record")
)

// TransactionFilter narrows a ledger query. Zero-valued fields are ignored;
// at least one of UserId or From must be set.
type TransactionFilter struct {
	UserId string
	From   string // payer address, compared case-insensitively
	Since  time.Time
	Until  time.Time
	Limit  int
}

// LedgerStore defines the contract that every record backend (SQLite, Formance, ...) must satisfy.
// Records are append-only: there is no update or delete.
type LedgerStore interface {
	// AddTransactions appends records in order and returns them with store-assigned ids.
	// Backends that can do so commit all records atomically.
	AddTransactions(ctx context.Context, records []models.TransactionRecord) ([]models.TransactionRecord, error)

	// QueryTransactions returns matching records ordered by timestamp, newest first.
	QueryTransactions(ctx context.Context, filter TransactionFilter) ([]models.TransactionRecord, error)

	Close()
}

// AlertStore persists security alerts raised by the fraud heuristics.
type AlertStore interface {
	AddAlert(ctx context.Context, alert *models.SecurityAlert) error
	ListAlerts(ctx context.Context, userId string, limit int) ([]models.SecurityAlert, error)
}

// ValidateRecord checks the invariants every backend enforces before a write.
func ValidateRecord(r models.TransactionRecord) error {
	if r.UserId == "" || r.From == "" || r.To == "" {
		return fmt.Errorf("%w: user id, from and to are required", ErrInvalidRecord)
	}
	if _, ok := new(big.Int).SetString(r.Amount, 10); !ok {
		return fmt.Errorf("%w: amount %q is not a smallest-unit integer", ErrInvalidRecord, r.Amount)
	}
	switch r.Status {
	case models.StatusPending, models.StatusFailed:
	case models.StatusCompleted:
		if r.TxHash == "" {
			return fmt.Errorf("%w: completed record requires a transaction hash", ErrInvalidRecord)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	return nil
}
