package formance

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/store"
	"payment-settlement-go/internal/validate"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Numscript templates. All record fields are written with set_tx_meta() so a
// record can be rebuilt from the Formance transaction alone.
// ---------------------------------------------------------------------------

const recordVars = `vars {
  asset $asset
  number $amount
  account $payer
  account $payee
  string $record_id
  string $user_id
  string $from
  string $to
  string $amount_wei
  string $amount_human
  string $description
  string $tx_hash
  string $batch_index
  string $status
  string $display_name
  string $email
  string $photo_url
  string $redirect_url
  string $merchant_id
  string $order_id
}
`

const recordMeta = `
set_tx_meta("event_type", "payment_record")
set_tx_meta("record_id", $record_id)
set_tx_meta("user_id", $user_id)
set_tx_meta("from", $from)
set_tx_meta("to", $to)
set_tx_meta("amount", $amount_wei)
set_tx_meta("amount_human", $amount_human)
set_tx_meta("description", $description)
set_tx_meta("tx_hash", $tx_hash)
set_tx_meta("batch_index", $batch_index)
set_tx_meta("status", $status)
set_tx_meta("display_name", $display_name)
set_tx_meta("email", $email)
set_tx_meta("photo_url", $photo_url)
set_tx_meta("redirect_url", $redirect_url)
set_tx_meta("merchant_id", $merchant_id)
set_tx_meta("order_id", $order_id)
`

// numscriptPaymentSettled moves the settled amount from the payer to the payee.
const numscriptPaymentSettled = recordVars + `
send [$asset $amount] (
  source = @payers:$payer allowing unbounded overdraft
  destination = @payees:$payee
)
` + recordMeta

// numscriptPaymentFailed records a failed attempt as a round trip through the
// pending account. Net balance impact is zero.
const numscriptPaymentFailed = recordVars + `
send [$asset $amount] (
  source = @payers:$payer allowing unbounded overdraft
  destination = @payments:failed:pending
)

send [$asset $amount] (
  source = @payments:failed:pending
  destination = @payers:$payer
)
` + recordMeta

const listPageSize = int64(100)

// AddTransactions posts one Formance transaction per record, in order.
// The Formance v2 API has no multi-transaction commit, so a failure part way
// through leaves the earlier records posted; the error reports how many.
func (s *Service) AddTransactions(ctx context.Context, records []models.TransactionRecord) ([]models.TransactionRecord, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records to add", store.ErrInvalidRecord)
	}

	prepared, err := prepareRecords(records, models.GetAttribution(ctx), time.Now())
	if err != nil {
		return nil, err
	}

	for i, r := range prepared {
		postTx := shared.V2PostTransaction{
			Reference: strPtr(recordReference(r)),
			Script: &shared.V2PostTransactionScript{
				Plain: scriptFor(r.Status),
				Vars:  scriptVars(r),
			},
			Timestamp: &r.Timestamp,
		}

		_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
			Ledger:            s.ledger,
			V2PostTransaction: postTx,
		})
		if err != nil {
			if isConflictError(err) {
				zap.L().Warn("Duplicate transaction record detected",
					zap.String("reference", recordReference(r)),
					zap.Int("posted", i))
				return nil, fmt.Errorf("%w: reference %s already exists", store.ErrDuplicateTransaction, recordReference(r))
			}
			return nil, fmt.Errorf("failed to post record %d of %d (%d already posted): %w", i+1, len(prepared), i, err)
		}
	}

	zap.L().Info("Transaction records posted to Formance",
		zap.Int("count", len(prepared)),
		zap.String("tx_hash", prepared[0].TxHash),
		zap.String("user_id", prepared[0].UserId))
	return prepared, nil
}

// QueryTransactions matches on record metadata server side and applies the
// time window and limit client side.
func (s *Service) QueryTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.TransactionRecord, error) {
	body, err := matchBody(filter)
	if err != nil {
		return nil, err
	}

	pageSize := listPageSize
	var cursor *string
	var result []models.TransactionRecord

	for {
		resp, err := s.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
			Ledger:      s.ledger,
			PageSize:    &pageSize,
			Cursor:      cursor,
			RequestBody: body,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions: %w", err)
		}

		page := resp.V2TransactionsCursorResponse.Cursor
		olderThanWindow := false
		for _, tx := range page.Data {
			r, ok := recordFromTransaction(tx)
			if !ok {
				continue
			}
			if !filter.Since.IsZero() && r.Timestamp.Before(filter.Since) {
				olderThanWindow = true
				continue
			}
			if !filter.Until.IsZero() && r.Timestamp.After(filter.Until) {
				continue
			}
			result = append(result, r)
		}

		if !page.HasMore || page.Next == nil || olderThanWindow {
			break
		}
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
		cursor = page.Next
	}

	sortRecords(result)
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// ---------- record mapping ----------

func prepareRecords(records []models.TransactionRecord, attribution *models.Attribution, now time.Time) ([]models.TransactionRecord, error) {
	prepared := make([]models.TransactionRecord, len(records))
	for i, r := range records {
		if err := store.ValidateRecord(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if r.Id == "" {
			r.Id = uuid.New().String()
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		if r.Attribution == nil {
			r.Attribution = attribution
		}
		r.From = strings.ToLower(r.From)
		r.To = strings.ToLower(r.To)
		prepared[i] = r
	}
	return prepared, nil
}

// recordReference is the Formance idempotency reference: one per batch element
// of an on-chain transaction, or the record id when there is no hash.
func recordReference(r models.TransactionRecord) string {
	if r.TxHash == "" {
		return "record:" + r.Id
	}
	return fmt.Sprintf("%s:%d", strings.ToLower(r.TxHash), r.BatchIndex)
}

func scriptFor(status models.TransactionStatus) string {
	if status == models.StatusFailed {
		return numscriptPaymentFailed
	}
	return numscriptPaymentSettled
}

func scriptVars(r models.TransactionRecord) map[string]string {
	amount, _ := new(big.Int).SetString(r.Amount, 10)

	vars := map[string]string{
		"asset":        formanceAsset(nativeSymbol),
		"amount":       r.Amount,
		"payer":        r.From,
		"payee":        r.To,
		"record_id":    r.Id,
		"user_id":      r.UserId,
		"from":         r.From,
		"to":           r.To,
		"amount_wei":   r.Amount,
		"amount_human": validate.FormatEther(amount),
		"description":  r.Description,
		"tx_hash":      r.TxHash,
		"batch_index":  strconv.Itoa(r.BatchIndex),
		"status":       string(r.Status),
		"display_name": "",
		"email":        "",
		"photo_url":    "",
		"redirect_url": "",
		"merchant_id":  "",
		"order_id":     "",
	}
	if a := r.Attribution; a != nil {
		vars["display_name"] = a.DisplayName
		vars["email"] = a.Email
		vars["photo_url"] = a.PhotoURL
	}
	if m := r.Merchant; m != nil {
		vars["redirect_url"] = m.RedirectURL
		vars["merchant_id"] = m.MerchantId
		vars["order_id"] = m.OrderId
	}
	return vars
}

// recordFromTransaction rebuilds a record from a Formance transaction's
// metadata. Transactions not written by AddTransactions are skipped.
func recordFromTransaction(tx shared.V2Transaction) (models.TransactionRecord, bool) {
	meta := tx.Metadata
	if meta["event_type"] != "payment_record" || meta["user_id"] == "" {
		return models.TransactionRecord{}, false
	}

	r := models.TransactionRecord{
		Id:          meta["record_id"],
		UserId:      meta["user_id"],
		From:        meta["from"],
		To:          meta["to"],
		Amount:      meta["amount"],
		Description: meta["description"],
		TxHash:      meta["tx_hash"],
		Status:      models.TransactionStatus(meta["status"]),
		Timestamp:   tx.Timestamp,
	}
	if r.Id == "" && tx.ID != nil {
		r.Id = fmt.Sprintf("%d", tx.ID)
	}
	if idx, err := strconv.Atoi(meta["batch_index"]); err == nil {
		r.BatchIndex = idx
	}
	if r.Amount == "" {
		r.Amount = postedAmount(tx.Postings)
	}

	if meta["display_name"] != "" || meta["email"] != "" || meta["photo_url"] != "" {
		r.Attribution = &models.Attribution{
			DisplayName: meta["display_name"],
			Email:       meta["email"],
			PhotoURL:    meta["photo_url"],
		}
	}
	merchant := models.MerchantMetadata{
		RedirectURL: meta["redirect_url"],
		MerchantId:  meta["merchant_id"],
		OrderId:     meta["order_id"],
	}
	if !merchant.IsEmpty() {
		r.Merchant = &merchant
	}
	return r, true
}

// postedAmount returns the first native-asset posting amount out of a payer account.
func postedAmount(postings []shared.V2Posting) string {
	for _, p := range postings {
		if assetSymbol(p.Asset) != nativeSymbol || !strings.HasPrefix(p.Source, "payers:") {
			continue
		}
		if p.Amount != nil {
			return p.Amount.String()
		}
	}
	return "0"
}

func matchBody(filter store.TransactionFilter) (map[string]any, error) {
	var clauses []any
	if filter.UserId != "" {
		clauses = append(clauses, map[string]any{"$match": map[string]any{"metadata[user_id]": filter.UserId}})
	}
	if filter.From != "" {
		clauses = append(clauses, map[string]any{"$match": map[string]any{"metadata[from]": strings.ToLower(filter.From)}})
	}

	switch len(clauses) {
	case 0:
		return nil, fmt.Errorf("transaction filter requires a user id or payer address")
	case 1:
		return clauses[0].(map[string]any), nil
	default:
		return map[string]any{"$and": clauses}, nil
	}
}

// sortRecords orders newest first; records of one batch keep their index order.
func sortRecords(records []models.TransactionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].BatchIndex < records[j].BatchIndex
	})
}
