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

const (
	schema = `
	-- Settled and failed payment records (append-only)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		tx_hash TEXT NOT NULL DEFAULT '',
		batch_index INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'failed')),
		display_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		photo_url TEXT NOT NULL DEFAULT '',
		redirect_url TEXT NOT NULL DEFAULT '',
		merchant_id TEXT NOT NULL DEFAULT '',
		order_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	-- One record per batch element of an on-chain transaction
	CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_hash_index
		ON transactions(tx_hash, batch_index) WHERE tx_hash != '';
	CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_from_created ON transactions(from_address, created_at);

	-- Advisory fraud alerts (append-only)
	CREATE TABLE IF NOT EXISTS security_alerts (
		id TEXT PRIMARY KEY,
		alert_type TEXT NOT NULL,
		user_id TEXT NOT NULL,
		details TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_security_alerts_user_created ON security_alerts(user_id, created_at);
	`

	// Transaction queries
	queryCheckDuplicateTransaction = `
		SELECT id FROM transactions WHERE tx_hash = ? AND batch_index = ? LIMIT 1`

	queryInsertTransaction = `
		INSERT INTO transactions (
			id, user_id, from_address, to_address, amount, description, tx_hash, batch_index, status,
			display_name, email, photo_url, redirect_url, merchant_id, order_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	// Filters are appended by buildTransactionQuery
	querySelectTransactions = `
		SELECT id, user_id, from_address, to_address, amount, description, tx_hash, batch_index, status,
		       display_name, email, photo_url, redirect_url, merchant_id, order_id, created_at
		FROM transactions`

	// Alert queries
	queryInsertAlert = `
		INSERT INTO security_alerts (id, alert_type, user_id, details, created_at)
		VALUES (?, ?, ?, ?, ?)`

	queryListAlerts = `
		SELECT id, alert_type, user_id, details, created_at
		FROM security_alerts
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`
)
