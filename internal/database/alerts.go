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
	"fmt"
	"time"

	"payment-settlement-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultAlertLimit = 50

func (s *Service) AddAlert(ctx context.Context, alert *models.SecurityAlert) error {
	if alert == nil || alert.UserId == "" {
		return fmt.Errorf("alert requires a user id")
	}
	if alert.Id == "" {
		alert.Id = uuid.New().String()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, queryInsertAlert,
		alert.Id, string(alert.Type), alert.UserId, alert.Details, alert.Timestamp.UTC())
	if err != nil {
		zap.L().Error("Failed to store security alert",
			zap.String("user_id", alert.UserId),
			zap.String("type", string(alert.Type)),
			zap.Error(err))
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// ListAlerts returns the user's most recent alerts, newest first.
func (s *Service) ListAlerts(ctx context.Context, userId string, limit int) ([]models.SecurityAlert, error) {
	if limit <= 0 {
		limit = defaultAlertLimit
	}

	rows, err := s.db.QueryContext(ctx, queryListAlerts, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var alerts []models.SecurityAlert
	for rows.Next() {
		var a models.SecurityAlert
		var alertType string
		if err := rows.Scan(&a.Id, &alertType, &a.UserId, &a.Details, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Type = models.AlertType(alertType)
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}
