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
	"errors"
	"fmt"
	"time"

	"payment-settlement-go/internal/chain"
	"payment-settlement-go/internal/events"
	"payment-settlement-go/internal/fraud"
	"payment-settlement-go/internal/ledger"
	"payment-settlement-go/internal/session"
	"payment-settlement-go/internal/settlement"
	"payment-settlement-go/internal/store"
)

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators a PaymentService composes. Fraud,
// Publisher and Alerts are optional.
type Dependencies struct {
	Engine    *settlement.Engine
	Guard     session.Guard
	Publisher events.Publisher
	Ledger    store.LedgerStore
	Alerts    store.AlertStore
	Wallet    chain.Wallet
	Fraud     *fraud.Engine
	Contract  string
}

// PaymentService is the entry point for payers: settle, preview, history and alerts
type PaymentService struct {
	engine    *settlement.Engine
	guard     session.Guard
	publisher events.Publisher
	ledger    store.LedgerStore
	history   *ledger.Aggregator
	alerts    store.AlertStore
	wallet    chain.Wallet
	fraud     *fraud.Engine
	contract  string
	now       func() time.Time
}

func NewPaymentService(deps Dependencies) (*PaymentService, error) {
	if deps.Engine == nil || deps.Ledger == nil || deps.Wallet == nil {
		return nil, fmt.Errorf("payment service requires a settlement engine, ledger store and wallet")
	}
	if deps.Guard == nil {
		deps.Guard = session.NewMemoryGuard()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	return &PaymentService{
		engine:    deps.Engine,
		guard:     deps.Guard,
		publisher: deps.Publisher,
		ledger:    deps.Ledger,
		history:   ledger.NewAggregator(deps.Ledger),
		alerts:    deps.Alerts,
		wallet:    deps.Wallet,
		fraud:     deps.Fraud,
		contract:  deps.Contract,
		now:       time.Now,
	}, nil
}

// HealthCheck verifies the ledger store and the wallet's network.
func (s *PaymentService) HealthCheck(ctx context.Context) error {
	var errs []error
	if p, ok := s.ledger.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ledger store health check failed: %w", err))
		}
	}
	if _, err := s.wallet.ChainID(ctx); err != nil {
		errs = append(errs, fmt.Errorf("chain health check failed: %w", err))
	}
	return errors.Join(errs...)
}
