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

	"payment-settlement-go/internal/common"
	"payment-settlement-go/internal/config"
	"payment-settlement-go/internal/ledger"
	"payment-settlement-go/internal/models"

	"go.uber.org/zap"
)

func printRecords(records []models.TransactionRecord, limit int) {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	for i, r := range records {
		isLast := i == len(records)-1
		common.PrintRecord(r, isLast)
	}
}

func printStats(stats models.Stats, trend string) {
	fmt.Printf("\n┌─ Statistics\n")
	fmt.Printf("│  Transactions: %d\n", stats.TotalTransactions)
	fmt.Printf("│  Volume:       %s ETH\n", stats.TotalVolume.String())
	fmt.Printf("│  Average:      %s ETH\n", stats.AvgAmount.Round(6).String())
	fmt.Printf("│  Success rate: %s%%\n", stats.SuccessRate.Round(2).String())
	fmt.Printf("└  Weekly trend: %s%%\n", trend)
}

func printDays(days []models.DayVolume) {
	fmt.Printf("\n┌─ Daily volume\n")
	for i, d := range days {
		fmt.Printf("%s%s  %s ETH\n", common.BoxPrefix(i == len(days)-1), d.Date.Format("2006-01-02"), d.Volume.String())
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id to report on")
	addressFlag := flag.String("address", "", "Payer address to report on (instead of --user)")
	daysFlag := flag.Int("days", ledger.DefaultDays, "Number of days in the daily volume chart")
	limitFlag := flag.Int("limit", 20, "Maximum records to list (0 for all)")
	flag.Parse()

	if *userFlag == "" && *addressFlag == "" {
		logger.Fatal("One of --user or --address is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// read-only: no chain client needed
	logger.Info("Connecting to ledger store", zap.String("backend", cfg.Ledger.Backend))
	dbService, ledgerStore, err := common.InitializeLedger(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize ledger store", zap.Error(err))
	}
	defer dbService.Close()
	if ledgerStore != dbService {
		defer ledgerStore.Close()
	}

	aggregator := ledger.NewAggregator(ledgerStore)

	var records []models.TransactionRecord
	subject := *userFlag
	if *userFlag != "" {
		records, err = aggregator.ListForUser(ctx, *userFlag)
	} else {
		subject = *addressFlag
		records, err = aggregator.ListForAddress(ctx, *addressFlag)
	}
	if err != nil {
		logger.Fatal("Failed to query transactions", zap.Error(err))
	}

	now := time.Now()
	common.PrintHeader(fmt.Sprintf("TRANSACTION HISTORY: %s", subject), common.WideWidth)
	printRecords(records, *limitFlag)
	printStats(ledger.ComputeStats(records), ledger.ComputeTrend(records, now).Round(2).String())
	printDays(ledger.BucketByDay(records, now, *daysFlag, time.Local))

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d records", len(records)), common.WideWidth)

	logger.Info("History query completed",
		zap.String("subject", subject),
		zap.Int("records", len(records)))
}
