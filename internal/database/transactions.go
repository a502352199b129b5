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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddTransactions inserts records in order inside one database transaction.
// Either every record is committed or none is.
func (s *Service) AddTransactions(ctx context.Context, records []models.TransactionRecord) ([]models.TransactionRecord, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records to add", store.ErrInvalidRecord)
	}

	attribution := models.GetAttribution(ctx)
	prepared := make([]models.TransactionRecord, len(records))
	for i, r := range records {
		if err := store.ValidateRecord(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if r.Id == "" {
			r.Id = uuid.New().String()
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = time.Now()
		}
		if r.Attribution == nil {
			r.Attribution = attribution
		}
		r.From = strings.ToLower(r.From)
		r.To = strings.ToLower(r.To)
		prepared[i] = r
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range prepared {
		if r.TxHash != "" {
			var existingId string
			err := tx.QueryRowContext(ctx, queryCheckDuplicateTransaction, r.TxHash, r.BatchIndex).Scan(&existingId)
			if err == nil {
				zap.L().Warn("Duplicate transaction record detected",
					zap.String("tx_hash", r.TxHash),
					zap.Int("batch_index", r.BatchIndex),
					zap.String("existing_id", existingId))
				return nil, fmt.Errorf("%w: tx_hash %s index %d already recorded", store.ErrDuplicateTransaction, r.TxHash, r.BatchIndex)
			} else if !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("failed to check for duplicate transaction: %w", err)
			}
		}

		var displayName, email, photoURL string
		if r.Attribution != nil {
			displayName, email, photoURL = r.Attribution.DisplayName, r.Attribution.Email, r.Attribution.PhotoURL
		}
		var redirectURL, merchantId, orderId string
		if r.Merchant != nil {
			redirectURL, merchantId, orderId = r.Merchant.RedirectURL, r.Merchant.MerchantId, r.Merchant.OrderId
		}

		_, err = tx.ExecContext(ctx, queryInsertTransaction,
			r.Id, r.UserId, r.From, r.To, r.Amount, r.Description, r.TxHash, r.BatchIndex, string(r.Status),
			displayName, email, photoURL, redirectURL, merchantId, orderId, r.Timestamp.UTC())
		if err != nil {
			return nil, fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Transaction records stored",
		zap.String("user_id", prepared[0].UserId),
		zap.String("tx_hash", prepared[0].TxHash),
		zap.Int("count", len(prepared)))

	return prepared, nil
}

// QueryTransactions returns records matching filter, newest first.
func (s *Service) QueryTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.TransactionRecord, error) {
	query, args, err := buildTransactionQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query transactions", zap.String("user_id", filter.UserId), zap.Error(err))
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var records []models.TransactionRecord
	for rows.Next() {
		var r models.TransactionRecord
		var status string
		var attribution models.Attribution
		var merchant models.MerchantMetadata
		err := rows.Scan(&r.Id, &r.UserId, &r.From, &r.To, &r.Amount, &r.Description, &r.TxHash, &r.BatchIndex, &status,
			&attribution.DisplayName, &attribution.Email, &attribution.PhotoURL,
			&merchant.RedirectURL, &merchant.MerchantId, &merchant.OrderId, &r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		r.Status = models.TransactionStatus(status)
		if attribution != (models.Attribution{}) {
			r.Attribution = &attribution
		}
		if !merchant.IsEmpty() {
			r.Merchant = &merchant
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	zap.L().Debug("Queried transactions",
		zap.String("user_id", filter.UserId),
		zap.String("from", filter.From),
		zap.Int("count", len(records)))

	return records, nil
}

func buildTransactionQuery(filter store.TransactionFilter) (string, []any, error) {
	if filter.UserId == "" && filter.From == "" {
		return "", nil, fmt.Errorf("transaction filter requires a user id or payer address")
	}

	var clauses []string
	var args []any
	if filter.UserId != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserId)
	}
	if filter.From != "" {
		clauses = append(clauses, "from_address = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(filter.From)))
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.Until.UTC())
	}

	query := querySelectTransactions + "\n\t\tWHERE " + strings.Join(clauses, " AND ") +
		"\n\t\tORDER BY created_at DESC, batch_index ASC"
	if filter.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, filter.Limit)
	}
	return query, args, nil
}
