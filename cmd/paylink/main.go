package main

import (
	"flag"
	"fmt"

	"payment-settlement-go/internal/common"
	"payment-settlement-go/internal/config"
	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/paylink"
	"payment-settlement-go/internal/validate"

	"go.uber.org/zap"
)

func printDecoded(req models.PaymentRequest) {
	common.PrintHeader("PAYMENT LINK", common.DefaultWidth)
	fmt.Printf("Recipient:   %s\n", orDash(req.Recipient))
	fmt.Printf("Amount:      %s\n", orDash(req.Amount))
	fmt.Printf("Description: %s\n", orDash(req.Description))
	if m := req.Merchant; !m.IsEmpty() {
		fmt.Printf("Merchant:    %s\n", orDash(m.MerchantId))
		fmt.Printf("Order:       %s\n", orDash(m.OrderId))
		fmt.Printf("Redirect:    %s\n", orDash(m.RedirectURL))
	}
	if paylink.IsOpen(req) {
		fmt.Println("\nOpen link: the payer fills in the missing fields")
	} else if !validate.IsValidAddress(req.Recipient) {
		fmt.Println("\n❌ Recipient is not a valid address")
	}
	common.PrintSeparator("=", common.DefaultWidth)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	decodeFlag := flag.String("decode", "", "Payment link to decode")
	toFlag := flag.String("to", "", "Recipient address")
	amountFlag := flag.String("amount", "", "Amount in ETH (empty for an open amount)")
	descriptionFlag := flag.String("description", "", "Payment description")
	redirectFlag := flag.String("redirect-url", "", "Merchant redirect URL")
	merchantFlag := flag.String("merchant-id", "", "Merchant id")
	orderFlag := flag.String("order-id", "", "Merchant order id")
	flag.Parse()

	if *decodeFlag != "" {
		printDecoded(paylink.Decode(*decodeFlag))
		return
	}

	if *toFlag != "" && !validate.IsValidAddress(*toFlag) {
		zap.L().Fatal("Invalid recipient address", zap.String("to", *toFlag))
	}

	amount, err := validate.ParseAmount(*amountFlag)
	if *amountFlag != "" && (err != nil || !validate.IsPositive(amount)) {
		zap.L().Fatal("Invalid amount", zap.String("amount", *amountFlag), zap.Error(err))
	}
	if *amountFlag == "" {
		amount = nil
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	merchant := &models.MerchantMetadata{
		RedirectURL: *redirectFlag,
		MerchantId:  *merchantFlag,
		OrderId:     *orderFlag,
	}

	link := paylink.Encode(cfg.PaymentLink.BaseURL, *toFlag, amount, *descriptionFlag, merchant)
	fmt.Println(link)

	zap.L().Info("Payment link generated",
		zap.String("to", *toFlag),
		zap.String("merchant_id", *merchantFlag))
}
