package formance

import (
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestFormanceAsset(t *testing.T) {
	if got := formanceAsset("ETH"); got != "ETH/18" {
		t.Errorf("formanceAsset(ETH) = %q, want ETH/18", got)
	}
}

func TestAssetSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ETH/18", "ETH"},
		{"USDC/6", "USDC"},
		{"PLAIN", "PLAIN"},
	}
	for _, tt := range tests {
		if got := assetSymbol(tt.input); got != tt.want {
			t.Errorf("assetSymbol(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

var ts = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func settledRecord() models.TransactionRecord {
	return models.TransactionRecord{
		Id:          "rec-1",
		UserId:      "user1",
		From:        "0x00000000000000000000000000000000000000AA",
		To:          "0x00000000000000000000000000000000000000BB",
		Amount:      "500000000000000000",
		Description: "Coffee",
		Status:      models.StatusCompleted,
		TxHash:      "0xABC",
		BatchIndex:  2,
		Timestamp:   ts,
	}
}

func TestRecordReference(t *testing.T) {
	r := settledRecord()
	assert.Equal(t, "0xabc:2", recordReference(r))

	r.TxHash = ""
	assert.Equal(t, "record:rec-1", recordReference(r))
}

func TestScriptFor(t *testing.T) {
	assert.Equal(t, numscriptPaymentSettled, scriptFor(models.StatusCompleted))
	assert.Equal(t, numscriptPaymentFailed, scriptFor(models.StatusFailed))
	assert.Contains(t, numscriptPaymentFailed, "@payments:failed:pending")
}

func TestPrepareRecords(t *testing.T) {
	r := settledRecord()
	r.Id = ""
	r.Timestamp = time.Time{}
	attribution := &models.Attribution{DisplayName: "Alice"}

	prepared, err := prepareRecords([]models.TransactionRecord{r}, attribution, ts)
	require.NoError(t, err)
	require.Len(t, prepared, 1)

	got := prepared[0]
	assert.NotEmpty(t, got.Id)
	assert.Equal(t, ts, got.Timestamp)
	assert.Equal(t, attribution, got.Attribution)
	assert.Equal(t, strings.ToLower(r.From), got.From)
	assert.Equal(t, strings.ToLower(r.To), got.To)
}

func TestPrepareRecords_Invalid(t *testing.T) {
	r := settledRecord()
	r.Amount = "0.5"

	_, err := prepareRecords([]models.TransactionRecord{r}, nil, ts)
	assert.True(t, errors.Is(err, store.ErrInvalidRecord))
}

func TestScriptVars(t *testing.T) {
	r := settledRecord()
	r.Merchant = &models.MerchantMetadata{MerchantId: "m1", OrderId: "o9"}

	vars := scriptVars(r)
	assert.Equal(t, "ETH/18", vars["asset"])
	assert.Equal(t, "500000000000000000", vars["amount"])
	assert.Equal(t, "0.5", vars["amount_human"])
	assert.Equal(t, "2", vars["batch_index"])
	assert.Equal(t, "completed", vars["status"])
	assert.Equal(t, "m1", vars["merchant_id"])
	assert.Equal(t, "o9", vars["order_id"])
	assert.Equal(t, "", vars["display_name"])

	// Every declared numscript var must be supplied.
	for _, line := range strings.Split(recordVars, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 || !strings.HasPrefix(fields[1], "$") {
			continue
		}
		_, ok := vars[strings.TrimPrefix(fields[1], "$")]
		assert.True(t, ok, "missing var %s", fields[1])
	}
}

func TestRecordFromTransaction_RoundTrip(t *testing.T) {
	r := settledRecord()
	r.From = strings.ToLower(r.From)
	r.To = strings.ToLower(r.To)
	r.Attribution = &models.Attribution{DisplayName: "Alice", Email: "a@example.com"}
	r.Merchant = &models.MerchantMetadata{RedirectURL: "https://shop.example/done", OrderId: "o9"}

	vars := scriptVars(r)
	meta := map[string]string{"event_type": "payment_record"}
	for _, k := range []string{"record_id", "user_id", "from", "to", "description", "tx_hash",
		"batch_index", "status", "display_name", "email", "photo_url", "redirect_url", "merchant_id", "order_id"} {
		meta[k] = vars[k]
	}
	meta["amount"] = vars["amount_wei"]

	got, ok := recordFromTransaction(shared.V2Transaction{ID: big.NewInt(7), Metadata: meta, Timestamp: ts})
	require.True(t, ok)
	assert.Equal(t, r, got)
}

func TestRecordFromTransaction_SkipsForeignTransactions(t *testing.T) {
	_, ok := recordFromTransaction(shared.V2Transaction{
		ID:       big.NewInt(1),
		Metadata: map[string]string{"event_type": "deposit_confirmed"},
	})
	assert.False(t, ok)
}

func TestRecordFromTransaction_AmountFromPostings(t *testing.T) {
	tx := shared.V2Transaction{
		ID: big.NewInt(42),
		Metadata: map[string]string{
			"event_type": "payment_record",
			"user_id":    "user1",
			"status":     "completed",
		},
		Postings: []shared.V2Posting{
			{Amount: big.NewInt(9), Asset: "USDC/6", Source: "payers:0xaa", Destination: "payees:0xbb"},
			{Amount: big.NewInt(1000), Asset: "ETH/18", Source: "payers:0xaa", Destination: "payees:0xbb"},
		},
		Timestamp: ts,
	}

	got, ok := recordFromTransaction(tx)
	require.True(t, ok)
	assert.Equal(t, "42", got.Id)
	assert.Equal(t, "1000", got.Amount)
	assert.Nil(t, got.Attribution)
	assert.Nil(t, got.Merchant)
}

func TestMatchBody(t *testing.T) {
	_, err := matchBody(store.TransactionFilter{})
	assert.Error(t, err)

	body, err := matchBody(store.TransactionFilter{UserId: "user1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$match": map[string]any{"metadata[user_id]": "user1"}}, body)

	body, err = matchBody(store.TransactionFilter{UserId: "user1", From: "0xAA"})
	require.NoError(t, err)
	clauses, ok := body["$and"].([]any)
	require.True(t, ok)
	require.Len(t, clauses, 2)
	assert.Equal(t, map[string]any{"$match": map[string]any{"metadata[from]": "0xaa"}}, clauses[1])
}

func TestSortRecords(t *testing.T) {
	records := []models.TransactionRecord{
		{Id: "old", Timestamp: ts.Add(-time.Hour)},
		{Id: "b1", Timestamp: ts, BatchIndex: 1},
		{Id: "b0", Timestamp: ts, BatchIndex: 0},
	}
	sortRecords(records)

	assert.Equal(t, "b0", records[0].Id)
	assert.Equal(t, "b1", records[1].Id)
	assert.Equal(t, "old", records[2].Id)
}
