package models

import "time"

// TransactionStatus is the lifecycle state of a ledger record
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// AlertType classifies a security alert
type AlertType string

const (
	AlertLargeTransaction   AlertType = "large_transaction"
	AlertRateLimit          AlertType = "rate_limit"
	AlertSuspiciousActivity AlertType = "suspicious_activity"
)

// TransactionRecord is the durable record of a settled (or attempted) payment.
// Amount is always the smallest-unit integer rendered as a string.
type TransactionRecord struct {
	Id          string            `db:"id" json:"id"`
	From        string            `db:"from_address" json:"from"`
	To          string            `db:"to_address" json:"to"`
	Amount      string            `db:"amount" json:"amount"`
	Description string            `db:"description" json:"description,omitempty"`
	Timestamp   time.Time         `db:"created_at" json:"timestamp"`
	Status      TransactionStatus `db:"status" json:"status"`
	TxHash      string            `db:"tx_hash" json:"txHash,omitempty"`
	UserId      string            `db:"user_id" json:"userId"`
	BatchIndex  int               `db:"batch_index" json:"batchIndex"`
	Attribution *Attribution      `json:"attribution,omitempty"`
	Merchant    *MerchantMetadata `json:"merchant,omitempty"`
}

// SecurityAlert is raised by the fraud heuristics and never mutated
type SecurityAlert struct {
	Id        string    `db:"id" json:"id"`
	Type      AlertType `db:"alert_type" json:"type"`
	UserId    string    `db:"user_id" json:"userId"`
	Details   string    `db:"details" json:"details"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}
