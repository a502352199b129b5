package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

const (
	payer  = "0x00000000000000000000000000000000000000aa"
	payee1 = "0x00000000000000000000000000000000000000b1"
	payee2 = "0x00000000000000000000000000000000000000b2"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every pooled connection to :memory: would otherwise see its own empty database
	db.SetMaxOpenConns(1)

	service := &Service{db: db}

	// Use the actual schema initialization
	if err := service.initSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func completed(userId, to, amount, hash string, index int, ts time.Time) models.TransactionRecord {
	return models.TransactionRecord{
		UserId:     userId,
		From:       payer,
		To:         to,
		Amount:     amount,
		Status:     models.StatusCompleted,
		TxHash:     hash,
		BatchIndex: index,
		Timestamp:  ts,
	}
}

func TestAddTransactions_Single(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	result, err := service.AddTransactions(ctx, []models.TransactionRecord{
		completed("user1", payee1, "500000000000000000", "0xhash1", 0, now),
	})
	if err != nil {
		t.Fatalf("AddTransactions failed: %v", err)
	}
	if len(result) != 1 || result[0].Id == "" {
		t.Fatalf("Expected one record with an assigned id, got %+v", result)
	}

	records, err := service.QueryTransactions(ctx, store.TransactionFilter{UserId: "user1"})
	if err != nil {
		t.Fatalf("QueryTransactions failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	got := records[0]
	if got.Amount != "500000000000000000" {
		t.Errorf("Expected amount 500000000000000000, got %s", got.Amount)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("Expected status completed, got %s", got.Status)
	}
	if got.TxHash != "0xhash1" {
		t.Errorf("Expected tx hash 0xhash1, got %s", got.TxHash)
	}
	if !got.Timestamp.Equal(now) {
		t.Errorf("Expected timestamp %v, got %v", now, got.Timestamp)
	}
	if got.Attribution != nil || got.Merchant != nil {
		t.Errorf("Expected no attribution or merchant, got %+v %+v", got.Attribution, got.Merchant)
	}
}

func TestAddTransactions_BatchSharesHashInOrder(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	_, err := service.AddTransactions(ctx, []models.TransactionRecord{
		completed("user1", payee1, "100", "0xbatch", 0, now),
		completed("user1", payee2, "200", "0xbatch", 1, now),
		completed("user1", payee1, "300", "0xbatch", 2, now),
	})
	if err != nil {
		t.Fatalf("AddTransactions failed: %v", err)
	}

	records, err := service.QueryTransactions(ctx, store.TransactionFilter{UserId: "user1"})
	if err != nil {
		t.Fatalf("QueryTransactions failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"100", "200", "300"} {
		if records[i].Amount != want || records[i].BatchIndex != i {
			t.Errorf("Record %d: expected amount %s index %d, got %s index %d", i, want, i, records[i].Amount, records[i].BatchIndex)
		}
		if records[i].TxHash != "0xbatch" {
			t.Errorf("Record %d: expected shared hash, got %s", i, records[i].TxHash)
		}
	}
}

func TestAddTransactions_DuplicateIsAtomic(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := service.AddTransactions(ctx, []models.TransactionRecord{completed("user1", payee1, "100", "0xdup", 1, now)}); err != nil {
		t.Fatalf("First AddTransactions failed: %v", err)
	}

	// index 0 is new but index 1 collides, so neither may be written
	_, err := service.AddTransactions(ctx, []models.TransactionRecord{
		completed("user1", payee1, "100", "0xdup", 0, now),
		completed("user1", payee2, "200", "0xdup", 1, now),
	})
	if !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Fatalf("Expected duplicate transaction error, got: %v", err)
	}

	records, err := service.QueryTransactions(ctx, store.TransactionFilter{UserId: "user1"})
	if err != nil {
		t.Fatalf("QueryTransactions failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected the failed batch to be rolled back, found %d records", len(records))
	}
}

func TestAddTransactions_RejectsInvalidRecords(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()

	if _, err := service.AddTransactions(ctx, nil); !errors.Is(err, store.ErrInvalidRecord) {
		t.Errorf("Expected ErrInvalidRecord for empty input, got %v", err)
	}

	bad := completed("user1", payee1, "0.5", "0xbad", 0, time.Now())
	if _, err := service.AddTransactions(ctx, []models.TransactionRecord{bad}); !errors.Is(err, store.ErrInvalidRecord) {
		t.Errorf("Expected ErrInvalidRecord for display-unit amount, got %v", err)
	}
}

func TestAddTransactions_AttributionFromContext(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := models.WithAttribution(context.Background(), &models.Attribution{DisplayName: "Alice", Email: "alice@example.com"})
	r := completed("user1", payee1, "100", "0xattr", 0, time.Now())
	r.Merchant = &models.MerchantMetadata{MerchantId: "m-1", OrderId: "o-9"}

	if _, err := service.AddTransactions(ctx, []models.TransactionRecord{r}); err != nil {
		t.Fatalf("AddTransactions failed: %v", err)
	}

	records, err := service.QueryTransactions(context.Background(), store.TransactionFilter{UserId: "user1"})
	if err != nil {
		t.Fatalf("QueryTransactions failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Attribution == nil || records[0].Attribution.DisplayName != "Alice" {
		t.Errorf("Expected attribution from context, got %+v", records[0].Attribution)
	}
	if records[0].Merchant == nil || records[0].Merchant.OrderId != "o-9" {
		t.Errorf("Expected merchant metadata, got %+v", records[0].Merchant)
	}
}

func TestQueryTransactions_Filters(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	other := completed("user2", payee1, "400", "0xother", 0, now)
	other.From = "0x00000000000000000000000000000000000000CC"
	fixtures := [][]models.TransactionRecord{
		{completed("user1", payee1, "100", "0xold", 0, now.Add(-2*time.Hour))},
		{completed("user1", payee1, "200", "0xmid", 0, now.Add(-30*time.Minute))},
		{completed("user1", payee1, "300", "0xnew", 0, now.Add(-time.Minute))},
		{other},
	}
	for _, f := range fixtures {
		if _, err := service.AddTransactions(ctx, f); err != nil {
			t.Fatalf("AddTransactions failed: %v", err)
		}
	}

	records, err := service.QueryTransactions(ctx, store.TransactionFilter{UserId: "user1"})
	if err != nil {
		t.Fatalf("QueryTransactions failed: %v", err)
	}
	if len(records) != 3 || records[0].TxHash != "0xnew" || records[2].TxHash != "0xold" {
		t.Errorf("Expected newest-first user1 records, got %+v", records)
	}

	records, err = service.QueryTransactions(ctx, store.TransactionFilter{UserId: "user1", Since: now.Add(-time.Hour)})
	if err != nil {
		t.Fatalf("QueryTransactions failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 records in the last hour, got %d", len(records))
	}

	records, err = service.QueryTransactions(ctx, store.TransactionFilter{From: "0x00000000000000000000000000000000000000cc"})
	if err != nil {
		t.Fatalf("QueryTransactions failed: %v", err)
	}
	if len(records) != 1 || records[0].UserId != "user2" {
		t.Errorf("Expected the lower-cased payer match, got %+v", records)
	}

	records, err = service.QueryTransactions(ctx, store.TransactionFilter{UserId: "user1", Limit: 1})
	if err != nil {
		t.Fatalf("QueryTransactions failed: %v", err)
	}
	if len(records) != 1 || records[0].TxHash != "0xnew" {
		t.Errorf("Expected only the newest record, got %+v", records)
	}

	if _, err := service.QueryTransactions(ctx, store.TransactionFilter{}); err == nil {
		t.Error("Expected an error for an unscoped filter")
	}
}
