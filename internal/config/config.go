/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"payment-settlement-go/internal/models"
)

const (
	// 1 ETH in wei
	defaultLargeTransactionThreshold = "1000000000000000000"
	defaultMaxTransactionsPerHour    = 5
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	receiptPollPeriod, err := getEnvDuration("CHAIN_RECEIPT_POLL_PERIOD", 2*time.Second)
	if err != nil {
		return nil, err
	}

	rateWindow, err := getEnvDuration("FRAUD_RATE_WINDOW", time.Hour)
	if err != nil {
		return nil, err
	}

	largeThreshold, err := getEnvBigInt("FRAUD_LARGE_TX_THRESHOLD_WEI", defaultLargeTransactionThreshold)
	if err != nil {
		return nil, err
	}

	confirmationTimeout, err := getEnvDuration("SETTLEMENT_CONFIRMATION_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	lockTTL, err := getEnvDuration("SESSION_LOCK_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	// the lock must outlive the confirmation wait it guards
	if lockTTL <= confirmationTimeout {
		return nil, fmt.Errorf("SESSION_LOCK_TTL (%s) must be longer than SETTLEMENT_CONFIRMATION_TIMEOUT (%s)", lockTTL, confirmationTimeout)
	}

	chainId, err := getEnvInt64("CHAIN_ID", 0)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "payments.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Ledger: models.LedgerConfig{
			Backend: getEnvString("LEDGER_BACKEND", "sqlite"),
			Formance: models.FormanceConfig{
				StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
				ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
				ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
				LedgerName:   getEnvString("FORMANCE_LEDGER", "payment-settlement"),
			},
		},
		Chain: models.ChainConfig{
			NetworksFile:      getEnvString("NETWORKS_FILE", "networks.yaml"),
			Network:           getEnvString("CHAIN_NETWORK", "sepolia"),
			RPCURL:            getEnvString("CHAIN_RPC_URL", ""),
			ChainID:           chainId,
			ContractAddress:   getEnvString("PAYMENT_CONTRACT_ADDRESS", ""),
			ExplorerURL:       getEnvString("CHAIN_EXPLORER_URL", ""),
			PrivateKey:        getEnvString("PAYER_PRIVATE_KEY", ""),
			ReceiptPollPeriod: receiptPollPeriod,
		},
		Fraud: models.FraudConfig{
			LargeTransactionThreshold: largeThreshold,
			MaxTransactionsPerHour:    getEnvInt("FRAUD_MAX_TX_PER_HOUR", defaultMaxTransactionsPerHour),
			RateWindow:                rateWindow,
		},
		Settlement: models.SettlementConfig{
			ConfirmationTimeout: confirmationTimeout,
			RecordFailed:        getEnvBool("SETTLEMENT_RECORD_FAILED", true),
		},
		Session: models.SessionConfig{
			RedisAddr:     getEnvString("REDIS_ADDR", ""),
			RedisPassword: getEnvString("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			LockTTL:       lockTTL,
		},
		Events: models.EventsConfig{
			KafkaBrokers: getEnvString("KAFKA_BROKERS", ""),
			Topic:        getEnvString("KAFKA_SETTLEMENT_TOPIC", "payment.settled"),
		},
		PaymentLink: models.PaymentLinkConfig{
			BaseURL: getEnvString("PAYMENT_LINK_BASE_URL", "http://localhost:5173"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q (%w)", key, value, err)
		}
		return intValue, nil
	}
	return defaultValue, nil
}

func getEnvBigInt(key, defaultValue string) (*big.Int, error) {
	value := getEnvString(key, defaultValue)
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid non-negative integer for %s: %q", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
