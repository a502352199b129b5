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

package api

import (
	"context"
	"fmt"
	"time"

	"payment-settlement-go/internal/ledger"
	"payment-settlement-go/internal/models"

	"go.uber.org/zap"
)

const (
	defaultAlertLimit = 20
	maxAlertLimit     = 100
)

// GetHistory returns the user's records, newest first
func (s *PaymentService) GetHistory(ctx context.Context, userId string) ([]models.TransactionRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	records, err := s.history.ListForUser(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get transaction history", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history")
	}
	return records, nil
}

// GetAddressHistory returns records paid from address, newest first
func (s *PaymentService) GetAddressHistory(ctx context.Context, address string) ([]models.TransactionRecord, error) {
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}

	records, err := s.history.ListForAddress(ctx, address)
	if err != nil {
		zap.L().Error("Failed to get address history", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history")
	}
	return records, nil
}

// GetSummary returns the user's records with stats, the week-over-week trend
// and daily volume for the last days days in loc.
func (s *PaymentService) GetSummary(ctx context.Context, userId string, days int, loc *time.Location) (*models.HistorySummary, error) {
	records, err := s.GetHistory(ctx, userId)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &models.HistorySummary{
		Records: records,
		Stats:   ledger.ComputeStats(records),
		Trend:   ledger.ComputeTrend(records, now),
		Days:    ledger.BucketByDay(records, now, days, loc),
	}, nil
}

// GetAlerts returns the user's most recent security alerts
func (s *PaymentService) GetAlerts(ctx context.Context, userId string, limit int) ([]models.SecurityAlert, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if s.alerts == nil {
		return nil, nil
	}

	if limit <= 0 || limit > maxAlertLimit {
		limit = defaultAlertLimit
	}

	alerts, err := s.alerts.ListAlerts(ctx, userId, limit)
	if err != nil {
		zap.L().Error("Failed to get security alerts", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve security alerts")
	}
	return alerts, nil
}
