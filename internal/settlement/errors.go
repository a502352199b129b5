package settlement

import (
	"context"
	"errors"
	"fmt"

	"payment-settlement-go/internal/models"
)

// Error kinds. Match them with errors.Is; use errors.As on *Error for the
// transaction hash and the records that were meant to be written.
var (
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrSubmission       = errors.New("submission failed")
	ErrConfirmation     = errors.New("confirmation failed")
	ErrPersistence      = errors.New("persistence failed")
	ErrNetworkMismatch  = errors.New("network mismatch")
)

type Error struct {
	Kind    error
	Op      string
	TxHash  string
	Records []models.TransactionRecord
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.TxHash != "" {
		msg += fmt.Sprintf(" (tx %s)", e.TxHash)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UserMessage maps a settlement error to a short message fit for the payer.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRecipient):
		return "Invalid recipient address"
	case errors.Is(err, ErrInvalidAmount):
		return "Invalid amount"
	case errors.Is(err, ErrNetworkMismatch):
		return "Please switch your wallet to the supported network"
	case errors.Is(err, ErrSubmission) && errors.Is(err, context.Canceled):
		return "Transaction was cancelled"
	case errors.Is(err, ErrSubmission):
		return "Transaction could not be submitted"
	case errors.Is(err, ErrConfirmation):
		return "Transaction failed or was not confirmed in time"
	case errors.Is(err, ErrPersistence):
		return "Payment was sent but could not be recorded; it will be reconciled"
	default:
		return "Payment failed"
	}
}
