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
	"os"
	"os/signal"
	"strings"

	"payment-settlement-go/internal/common"
	"payment-settlement-go/internal/config"
	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/paylink"
	"payment-settlement-go/internal/settlement"

	"go.uber.org/zap"
)

type payRequest struct {
	userId      string
	attribution *models.Attribution
	payment     settlement.Payment
	dryRun      bool
}

func parseAndValidateFlags() (*payRequest, error) {
	userFlag := flag.String("user", "", "Paying user id (required)")
	nameFlag := flag.String("name", "", "Payer display name")
	emailFlag := flag.String("email", "", "Payer email")
	photoFlag := flag.String("photo", "", "Payer photo URL")
	toFlag := flag.String("to", "", "Recipient address")
	amountFlag := flag.String("amount", "", "Amount in ETH (e.g. 0.5)")
	descriptionFlag := flag.String("description", "", "Payment description")
	linkFlag := flag.String("link", "", "Payment link to pay")
	batchFlag := flag.String("batch", "", "Batch payment as address=amount pairs, comma separated")
	dryRunFlag := flag.Bool("dry-run", false, "Show balance and fraud screening without paying")
	flag.Parse()

	if *userFlag == "" {
		return nil, fmt.Errorf("--user is required")
	}

	req := &payRequest{userId: *userFlag, dryRun: *dryRunFlag}
	if *nameFlag != "" || *emailFlag != "" || *photoFlag != "" {
		req.attribution = &models.Attribution{DisplayName: *nameFlag, Email: *emailFlag, PhotoURL: *photoFlag}
	}

	switch {
	case *batchFlag != "":
		items, err := parseBatch(*batchFlag)
		if err != nil {
			return nil, err
		}
		req.payment = settlement.BatchPayment(models.BatchPaymentRequest{Items: items, Description: *descriptionFlag})

	case *linkFlag != "":
		decoded := completeLink(paylink.Decode(*linkFlag), *toFlag, *amountFlag, *descriptionFlag)
		if paylink.IsOpen(decoded) {
			return nil, fmt.Errorf("payment link has no recipient or amount; pass --to and --amount")
		}
		req.payment = settlement.SinglePayment(decoded)

	case *toFlag != "" && *amountFlag != "":
		req.payment = settlement.SinglePayment(models.PaymentRequest{
			Recipient:   *toFlag,
			Amount:      *amountFlag,
			Description: *descriptionFlag,
		})

	default:
		return nil, fmt.Errorf("one of --to/--amount, --link or --batch is required")
	}

	return req, nil
}

// completeLink fills the fields a link leaves empty from the command line.
func completeLink(req models.PaymentRequest, to, amount, description string) models.PaymentRequest {
	if req.Recipient == "" {
		req.Recipient = to
	}
	if req.Amount == "" {
		req.Amount = amount
	}
	if req.Description == "" {
		req.Description = description
	}
	return req
}

// parseBatch reads "0xabc=0.1,0xdef=0.2" into batch items, keeping order.
func parseBatch(raw string) ([]models.BatchItem, error) {
	var items []models.BatchItem
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		recipient, amount, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid batch item %q, expected address=amount", pair)
		}
		items = append(items, models.BatchItem{Recipient: strings.TrimSpace(recipient), Amount: strings.TrimSpace(amount)})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("batch must contain at least one payment")
	}
	return items, nil
}

func printPaymentSummary(req *payRequest, network string) {
	title := "PAYMENT REQUEST"
	if req.payment.Batch {
		title = fmt.Sprintf("BATCH PAYMENT REQUEST (%d recipients)", len(req.payment.Items))
	}
	common.PrintHeader(title, common.DefaultWidth)
	fmt.Printf("User:        %s\n", req.userId)
	fmt.Printf("Network:     %s\n", network)
	for i, item := range req.payment.Items {
		fmt.Printf("%s%s ETH → %s\n", common.BoxPrefix(i == len(req.payment.Items)-1), item.Amount, item.Recipient)
	}
	if req.payment.Description != "" {
		fmt.Printf("Description: %s\n", req.payment.Description)
	}
	if m := req.payment.Merchant; !m.IsEmpty() {
		fmt.Printf("Merchant:    %s (order %s)\n", m.MerchantId, m.OrderId)
	}
	common.PrintSeparator("=", common.DefaultWidth)
}

func printPreview(preview *models.PaymentPreview) {
	common.PrintHeader("DRY RUN", common.DefaultWidth)
	fmt.Printf("Payer:     %s\n", preview.Payer)
	fmt.Printf("Balance:   %s ETH\n", preview.Balance.String())
	fmt.Printf("Total:     %s ETH (%s wei)\n", preview.Total.String(), preview.TotalWei)
	fmt.Printf("Contract:  %s\n", preview.ContractAddr)
	if preview.Sufficient {
		fmt.Println("\n✅ Balance covers the payment (gas not included)")
	} else {
		fmt.Println("\n❌ Insufficient balance")
	}
	printAlerts(preview.Alerts)
	common.PrintSeparator("=", common.DefaultWidth)
}

func printAlerts(alerts []models.SecurityAlert) {
	for _, a := range alerts {
		fmt.Printf("⚠️  %s: %s\n", a.Type, a.Details)
	}
}

func printResult(result *models.SettlementResult, explorerURL string) {
	if !result.Success {
		common.PrintHeader("PAYMENT FAILED", common.DefaultWidth)
		fmt.Printf("Error: %s\n", result.Error)
		if result.TxHash != "" {
			fmt.Printf("Transaction: %s\n", result.TxHash)
			if link := common.ExplorerTxURL(explorerURL, result.TxHash); link != "" {
				fmt.Printf("Explorer:    %s\n", link)
			}
		}
		common.PrintSeparator("=", common.DefaultWidth)
		return
	}

	common.PrintHeader("✅ PAYMENT SETTLED", common.DefaultWidth)
	fmt.Printf("Transaction: %s\n", result.TxHash)
	if link := common.ExplorerTxURL(explorerURL, result.TxHash); link != "" {
		fmt.Printf("Explorer:    %s\n", link)
	}
	for i, r := range result.Records {
		common.PrintRecord(r, i == len(result.Records)-1)
	}
	printAlerts(result.Alerts)
	if result.RedirectURL != "" {
		fmt.Printf("Continue at: %s\n", result.RedirectURL)
	}
	common.PrintSeparator("=", common.DefaultWidth)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing services")
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if req.attribution != nil {
		ctx = models.WithAttribution(ctx, req.attribution)
	}

	printPaymentSummary(req, cfg.Chain.Network)

	if req.dryRun {
		preview, err := services.Payments.Preview(ctx, req.userId, req.payment)
		if err != nil {
			fmt.Printf("\n❌ %s\n", settlement.UserMessage(err))
			zap.L().Fatal("Dry run failed", zap.Error(err))
		}
		printPreview(preview)
		return
	}

	var result *models.SettlementResult
	if req.payment.Batch {
		result, err = services.Payments.PayBatch(ctx, req.userId, models.BatchPaymentRequest{
			Items:       req.payment.Items,
			Description: req.payment.Description,
		})
	} else {
		item := req.payment.Items[0]
		result, err = services.Payments.Pay(ctx, req.userId, models.PaymentRequest{
			Recipient:   item.Recipient,
			Amount:      item.Amount,
			Description: req.payment.Description,
			Merchant:    req.payment.Merchant,
		})
	}
	if err != nil {
		zap.L().Fatal("Payment not started", zap.Error(err))
	}

	printResult(result, cfg.Chain.ExplorerURL)
	if !result.Success {
		// Fatal skips deferred cleanup, so close explicitly first
		services.Close()
		loggerCleanup()
		os.Exit(1)
	}

	zap.L().Info("Payment completed",
		zap.String("user_id", req.userId),
		zap.String("tx_hash", result.TxHash),
		zap.Int("records", len(result.Records)))
}
