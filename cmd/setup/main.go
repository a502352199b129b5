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

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"payment-settlement-go/internal/chain"
	"payment-settlement-go/internal/common"
	"payment-settlement-go/internal/config"
	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/validate"

	"go.uber.org/zap"
)

// checkStore opens the database (creating the schema) and the configured ledger backend
func checkStore(ctx context.Context, cfg *models.Config) error {
	zap.L().Info("Setting up ledger store",
		zap.String("backend", cfg.Ledger.Backend),
		zap.String("database", cfg.Database.Path))

	dbService, ledgerStore, err := common.InitializeLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbService.Close()
	if ledgerStore != dbService {
		defer ledgerStore.Close()
	}

	if err := dbService.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	fmt.Printf("✅ Ledger store ready (%s, alerts in %s)\n", cfg.Ledger.Backend, cfg.Database.Path)
	return nil
}

// checkChain verifies the RPC endpoint serves the configured network and the
// payment contract is deployed there.
func checkChain(ctx context.Context, cfg *models.Config) error {
	client, err := chain.NewClient(ctx, cfg.Chain)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.RequireNetwork(ctx, cfg.Chain.ChainID); err != nil {
		return err
	}
	fmt.Printf("✅ Connected to %s (chain id %d)\n", cfg.Chain.Network, cfg.Chain.ChainID)

	deployed, err := client.ContractDeployed(ctx)
	if err != nil {
		return fmt.Errorf("unable to read contract code: %w", err)
	}
	if !deployed {
		return fmt.Errorf("no contract deployed at %s on %s", client.ContractAddress(), cfg.Chain.Network)
	}
	fmt.Printf("✅ Payment contract found at %s\n", client.ContractAddress())

	payer, err := client.Address(ctx)
	if err != nil {
		fmt.Println("ℹ️  No payer key configured; payments cannot be signed")
		return nil
	}
	balance, err := client.Balance(ctx, payer)
	if err != nil {
		return fmt.Errorf("unable to read payer balance: %w", err)
	}
	fmt.Printf("✅ Payer %s holds %s ETH\n", payer, validate.FormatEther(balance))
	return nil
}

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	skipChainFlag := flag.Bool("skip-chain", false, "Only initialize the ledger store")
	timeoutFlag := flag.Duration("timeout", 30*time.Second, "Overall setup timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	common.PrintHeader("SETUP", common.DefaultWidth)

	if err := checkStore(ctx, cfg); err != nil {
		zap.L().Fatal("Ledger store setup failed", zap.Error(err))
	}

	if *skipChainFlag {
		zap.L().Info("Initialization complete (chain check skipped)")
		return
	}

	if err := config.ResolveChain(&cfg.Chain); err != nil {
		zap.L().Fatal("Failed to resolve chain settings", zap.Error(err))
	}
	if err := checkChain(ctx, cfg); err != nil {
		zap.L().Fatal("Chain check failed", zap.Error(err))
	}

	common.PrintSeparator("=", common.DefaultWidth)
	zap.L().Info("Initialization complete")
}
