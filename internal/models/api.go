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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MerchantMetadata is carried by payment links issued on behalf of a merchant
type MerchantMetadata struct {
	RedirectURL string `json:"redirect_url,omitempty"`
	MerchantId  string `json:"merchant_id,omitempty"`
	OrderId     string `json:"order_id,omitempty"`
}

// IsEmpty reports whether no merchant field is set
func (m *MerchantMetadata) IsEmpty() bool {
	return m == nil || (m.RedirectURL == "" && m.MerchantId == "" && m.OrderId == "")
}

// PaymentRequest is a single payment as entered by the user or decoded from a link.
// Amount is in display units (e.g. "0.5" ETH).
type PaymentRequest struct {
	Recipient   string            `json:"recipient"`
	Amount      string            `json:"amount"`
	Description string            `json:"description,omitempty"`
	Merchant    *MerchantMetadata `json:"merchant,omitempty"`
}

// BatchItem is one recipient/amount pair of a batch payment
type BatchItem struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// BatchPaymentRequest is an ordered list of payments settled in one contract call
type BatchPaymentRequest struct {
	Items       []BatchItem `json:"items"`
	Description string      `json:"description,omitempty"`
}

// Stats summarises a set of transaction records in display units
type Stats struct {
	TotalTransactions int             `json:"total_transactions"`
	TotalVolume       decimal.Decimal `json:"total_volume"`
	AvgAmount         decimal.Decimal `json:"avg_amount"`
	SuccessRate       decimal.Decimal `json:"success_rate"`
}

// DayVolume is the completed volume of one calendar day
type DayVolume struct {
	Date   time.Time       `json:"date"`
	Volume decimal.Decimal `json:"volume"`
}

// SettlementResult represents the outcome of a payment submission
type SettlementResult struct {
	Success     bool                `json:"success"`
	TxHash      string              `json:"tx_hash,omitempty"`
	Records     []TransactionRecord `json:"records,omitempty"`
	Alerts      []SecurityAlert     `json:"alerts,omitempty"`
	RedirectURL string              `json:"redirect_url,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// PaymentPreview is a dry run of a payment: nothing is signed or stored
type PaymentPreview struct {
	Payer        string          `json:"payer"`
	Balance      decimal.Decimal `json:"balance"`
	TotalWei     string          `json:"total_wei"`
	Total        decimal.Decimal `json:"total"`
	Sufficient   bool            `json:"sufficient"`
	Recipients   int             `json:"recipients"`
	Alerts       []SecurityAlert `json:"alerts,omitempty"`
	ContractAddr string          `json:"contract_address,omitempty"`
}

// HistorySummary is the dashboard view of a user's records
type HistorySummary struct {
	Records []TransactionRecord `json:"records"`
	Stats   Stats               `json:"stats"`
	Trend   decimal.Decimal     `json:"trend"`
	Days    []DayVolume         `json:"days"`
}
