package main

import (
	"context"
	"flag"
	"fmt"

	"payment-settlement-go/internal/common"
	"payment-settlement-go/internal/config"
	"payment-settlement-go/internal/database"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id (required)")
	limitFlag := flag.Int("limit", 20, "Maximum alerts to list")
	flag.Parse()

	if *userFlag == "" {
		logger.Fatal("--user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// alerts always live in SQLite, whatever the ledger backend
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	alerts, err := dbService.ListAlerts(ctx, *userFlag, *limitFlag)
	if err != nil {
		logger.Fatal("Failed to list alerts", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("SECURITY ALERTS: %s", *userFlag), common.DefaultWidth)
	for i, a := range alerts {
		isLast := i == len(alerts)-1
		fmt.Printf("%s⚠️  %-18s %s\n", common.BoxPrefix(isLast), a.Type, a.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("%s   %s\n", common.BoxDetailPrefix(isLast), a.Details)
	}
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d alerts", len(alerts)), common.DefaultWidth)
}
