package models

import (
	"math/big"
	"time"
)

// Config represents the application configuration
type Config struct {
	Database    DatabaseConfig
	Ledger      LedgerConfig
	Chain       ChainConfig
	Fraud       FraudConfig
	Settlement  SettlementConfig
	Session     SessionConfig
	Events      EventsConfig
	PaymentLink PaymentLinkConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// LedgerConfig selects the ledger store backend ("sqlite" or "formance")
type LedgerConfig struct {
	Backend  string
	Formance FormanceConfig
}

// FormanceConfig holds Formance Stack connection settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// ChainConfig identifies the network and payment contract to settle against
type ChainConfig struct {
	NetworksFile      string
	Network           string
	RPCURL            string
	ChainID           int64
	ContractAddress   string
	ExplorerURL       string
	PrivateKey        string
	ReceiptPollPeriod time.Duration
}

// FraudConfig holds the advisory fraud heuristic thresholds
type FraudConfig struct {
	LargeTransactionThreshold *big.Int
	MaxTransactionsPerHour    int
	RateWindow                time.Duration
}

// SettlementConfig holds settlement engine settings
type SettlementConfig struct {
	ConfirmationTimeout time.Duration
	RecordFailed        bool
}

// SessionConfig configures the one-in-flight settlement guard.
// An empty RedisAddr selects the in-process guard.
type SessionConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration
}

// EventsConfig configures settlement event publishing. Empty brokers disable it.
type EventsConfig struct {
	KafkaBrokers string
	Topic        string
}

// PaymentLinkConfig holds payment link settings
type PaymentLinkConfig struct {
	BaseURL string
}
