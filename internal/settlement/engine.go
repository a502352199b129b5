package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"payment-settlement-go/internal/chain"
	"payment-settlement-go/internal/fraud"
	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/store"
	"payment-settlement-go/internal/validate"

	"go.uber.org/zap"
)

const defaultConfirmationTimeout = 5 * time.Minute

// Payment is the normalised input of one settlement attempt.
type Payment struct {
	Items       []models.BatchItem
	Description string
	Merchant    *models.MerchantMetadata
	Batch       bool
}

// Outcome is what a successful settlement produced.
type Outcome struct {
	TxHash      string
	BlockNumber uint64
	Records     []models.TransactionRecord
	Alerts      []models.SecurityAlert
}

// Engine runs validate, screen, submit, confirm and record for each payment.
// It does not serialise attempts; callers that need one-in-flight semantics
// hold a session guard around it.
type Engine struct {
	contract chain.ContractClient
	wallet   chain.Wallet
	ledger   store.LedgerStore
	fraud    *fraud.Engine
	cfg      models.SettlementConfig
	chainID  int64
	now      func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithFraudEngine enables advisory screening before submission.
func WithFraudEngine(f *fraud.Engine) Option {
	return func(e *Engine) {
		e.fraud = f
	}
}

func NewEngine(contract chain.ContractClient, wallet chain.Wallet, ledger store.LedgerStore, cfg models.SettlementConfig, chainID int64, opts ...Option) *Engine {
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = defaultConfirmationTimeout
	}
	e := &Engine{
		contract: contract,
		wallet:   wallet,
		ledger:   ledger,
		cfg:      cfg,
		chainID:  chainID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitSingle settles one payment and returns the committed record.
func (e *Engine) SubmitSingle(ctx context.Context, userId string, req models.PaymentRequest) (*models.TransactionRecord, error) {
	out, err := e.Submit(ctx, userId, SinglePayment(req))
	if err != nil {
		return nil, err
	}
	return &out.Records[0], nil
}

// SubmitBatch settles every item in one contract call and returns one
// committed record per item, in request order.
func (e *Engine) SubmitBatch(ctx context.Context, userId string, req models.BatchPaymentRequest) ([]models.TransactionRecord, error) {
	out, err := e.Submit(ctx, userId, BatchPayment(req))
	if err != nil {
		return nil, err
	}
	return out.Records, nil
}

func SinglePayment(req models.PaymentRequest) Payment {
	return Payment{
		Items:       []models.BatchItem{{Recipient: req.Recipient, Amount: req.Amount}},
		Description: req.Description,
		Merchant:    req.Merchant,
	}
}

func BatchPayment(req models.BatchPaymentRequest) Payment {
	return Payment{Items: req.Items, Description: req.Description, Batch: true}
}

// Submit runs the whole pipeline. Success is only reported once the records
// are stored.
func (e *Engine) Submit(ctx context.Context, userId string, p Payment) (*Outcome, error) {
	kind := "single"
	if p.Batch {
		kind = "batch"
	}
	a := newAttempt(userId, kind)

	a.to(StateValidating)
	amounts, total, verr := ValidateItems(p)
	if verr != nil {
		return nil, a.fail(verr)
	}

	outcome := &Outcome{Alerts: e.screen(ctx, userId, total)}

	a.to(StateSubmitting)
	from, serr := e.preflight(ctx)
	if serr != nil {
		return nil, a.fail(serr)
	}

	pending, err := e.broadcast(ctx, p, amounts, total)
	if err != nil {
		return nil, a.fail(&Error{Kind: ErrSubmission, Op: "submit", Err: err})
	}
	a.txHash = pending.Hash()

	records := e.buildRecords(ctx, userId, from, a.txHash, p, amounts)

	a.to(StateAwaitingConfirmation)
	// the caller may stop waiting, but once broadcast the wait and the write
	// run to completion under their own deadline
	detached := context.WithoutCancel(ctx)
	waitCtx, cancel := context.WithTimeout(detached, e.cfg.ConfirmationTimeout)
	receipt, err := pending.Wait(waitCtx)
	cancel()
	if err != nil {
		return nil, a.fail(&Error{Kind: ErrConfirmation, Op: "confirm", TxHash: a.txHash, Records: records, Err: err})
	}

	stamp := e.now()
	for i := range records {
		records[i].Timestamp = stamp
	}

	if !receipt.Succeeded() {
		e.recordFailure(detached, records)
		return nil, a.fail(&Error{
			Kind:    ErrConfirmation,
			Op:      "confirm",
			TxHash:  a.txHash,
			Records: records,
			Err:     fmt.Errorf("transaction reverted in block %d", receipt.BlockNumber),
		})
	}

	a.to(StateRecording)
	for i := range records {
		records[i].Status = models.StatusCompleted
	}
	stored, err := e.ledger.AddTransactions(detached, records)
	if err != nil {
		zap.L().Error("Payment confirmed on-chain but not recorded; reconcile manually",
			zap.String("attempt_id", a.id),
			zap.String("user_id", userId),
			zap.String("tx_hash", a.txHash),
			zap.Int("records", len(records)),
			zap.Error(err))
		return nil, a.fail(&Error{Kind: ErrPersistence, Op: "record", TxHash: a.txHash, Records: records, Err: err})
	}

	a.to(StateSettled)
	zap.L().Info("Payment settled",
		zap.String("attempt_id", a.id),
		zap.String("user_id", userId),
		zap.String("tx_hash", a.txHash),
		zap.Uint64("block", receipt.BlockNumber),
		zap.Int("records", len(stored)),
		zap.String("total_wei", total.String()))

	outcome.TxHash = a.txHash
	outcome.BlockNumber = receipt.BlockNumber
	outcome.Records = stored
	return outcome, nil
}

// ValidateItems checks every item, recipient first, and returns the parsed
// amounts and their sum. The first invalid item rejects the whole payment.
func ValidateItems(p Payment) ([]*big.Int, *big.Int, *Error) {
	if len(p.Items) == 0 {
		return nil, nil, &Error{Kind: ErrInvalidAmount, Op: "validate", Err: errors.New("batch must contain at least one payment")}
	}

	amounts := make([]*big.Int, len(p.Items))
	total := new(big.Int)
	for i, item := range p.Items {
		label := "payment"
		if p.Batch {
			label = fmt.Sprintf("payment %d", i)
		}
		if !validate.IsValidAddress(item.Recipient) {
			return nil, nil, &Error{Kind: ErrInvalidRecipient, Op: "validate", Err: fmt.Errorf("%s: %q is not a valid address", label, item.Recipient)}
		}
		amount, err := validate.ParseAmount(item.Amount)
		if err != nil {
			return nil, nil, &Error{Kind: ErrInvalidAmount, Op: "validate", Err: fmt.Errorf("%s: %w", label, err)}
		}
		if !validate.IsPositive(amount) {
			return nil, nil, &Error{Kind: ErrInvalidAmount, Op: "validate", Err: fmt.Errorf("%s: amount must be greater than zero", label)}
		}
		amounts[i] = amount
		total.Add(total, amount)
	}
	return amounts, total, nil
}

// screen runs the advisory fraud rules over the user's trailing window.
// Failures are logged and never stop the payment.
func (e *Engine) screen(ctx context.Context, userId string, total *big.Int) []models.SecurityAlert {
	if e.fraud == nil {
		return nil
	}

	recent, err := e.ledger.QueryTransactions(ctx, store.TransactionFilter{UserId: userId, Since: e.fraud.Window()})
	if err != nil {
		zap.L().Warn("Unable to load recent transactions for fraud screening", zap.String("user_id", userId), zap.Error(err))
	}

	verdict, err := e.fraud.Evaluate(ctx, userId, total, recent)
	if err != nil {
		zap.L().Warn("Unable to store security alerts", zap.String("user_id", userId), zap.Error(err))
	}
	return verdict.Alerts
}

func (e *Engine) preflight(ctx context.Context) (string, *Error) {
	if e.chainID != 0 {
		if err := e.wallet.RequireNetwork(ctx, e.chainID); err != nil {
			if errors.Is(err, chain.ErrNetworkMismatch) {
				return "", &Error{Kind: ErrNetworkMismatch, Op: "submit", Err: err}
			}
			return "", &Error{Kind: ErrSubmission, Op: "submit", Err: err}
		}
	}

	from, err := e.wallet.Address(ctx)
	if err != nil {
		return "", &Error{Kind: ErrSubmission, Op: "submit", Err: err}
	}
	return from, nil
}

func (e *Engine) broadcast(ctx context.Context, p Payment, amounts []*big.Int, total *big.Int) (chain.PendingTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.Batch {
		return e.contract.CreatePayment(ctx, p.Items[0].Recipient, amounts[0])
	}

	recipients := make([]string, len(p.Items))
	for i, item := range p.Items {
		recipients[i] = item.Recipient
	}
	return e.contract.BatchPayment(ctx, recipients, amounts, total)
}

func (e *Engine) buildRecords(ctx context.Context, userId, from, txHash string, p Payment, amounts []*big.Int) []models.TransactionRecord {
	attribution := models.GetAttribution(ctx)
	created := e.now()
	records := make([]models.TransactionRecord, len(p.Items))
	for i, item := range p.Items {
		records[i] = models.TransactionRecord{
			From:        strings.ToLower(from),
			To:          strings.ToLower(item.Recipient),
			Amount:      amounts[i].String(),
			Description: p.Description,
			Timestamp:   created,
			Status:      models.StatusPending,
			TxHash:      txHash,
			UserId:      userId,
			BatchIndex:  i,
			Attribution: attribution,
		}
		if !p.Merchant.IsEmpty() {
			m := *p.Merchant
			records[i].Merchant = &m
		}
	}
	return records
}

// recordFailure stores a reverted transaction as failed, best effort.
func (e *Engine) recordFailure(ctx context.Context, records []models.TransactionRecord) {
	if !e.cfg.RecordFailed {
		return
	}
	failed := make([]models.TransactionRecord, len(records))
	for i, r := range records {
		r.Status = models.StatusFailed
		failed[i] = r
	}
	if _, err := e.ledger.AddTransactions(ctx, failed); err != nil {
		zap.L().Warn("Unable to record reverted payment",
			zap.String("tx_hash", failed[0].TxHash),
			zap.Error(err))
	}
}
