package common

import (
	"fmt"
	"math/big"
	"strings"

	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/validate"
)

const (
	DefaultWidth = 80
	WideWidth    = 100
)

func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints title framed by separators, preceded by a blank line
func PrintHeader(title string, width int) {
	fmt.Println()
	PrintSeparator("=", width)
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints message framed by separators, followed by a blank line
func PrintFooter(message string, width int) {
	fmt.Println()
	PrintSeparator("=", width)
	fmt.Println(message)
	PrintSeparator("=", width)
	fmt.Println()
}

func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the box-drawing prefix for a list item
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under a list item
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// FormatWei renders a smallest-unit amount string as ETH for display.
func FormatWei(amount string) string {
	wei, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return amount + " wei"
	}
	return validate.FormatEther(wei) + " ETH"
}

// ShortHash abbreviates a transaction hash to 0x1234…abcd form.
func ShortHash(hash string) string {
	if hash == "" {
		return "none"
	}
	if len(hash) <= 14 {
		return hash
	}
	return hash[:6] + "…" + hash[len(hash)-4:]
}

// ExplorerTxURL links a transaction hash on the network's block explorer.
func ExplorerTxURL(explorerURL, txHash string) string {
	if explorerURL == "" || txHash == "" {
		return ""
	}
	return strings.TrimRight(explorerURL, "/") + "/tx/" + txHash
}

// StatusIcon returns the marker shown next to a record status
func StatusIcon(status models.TransactionStatus) string {
	switch status {
	case models.StatusCompleted:
		return "✅"
	case models.StatusFailed:
		return "❌"
	default:
		return "⏳"
	}
}

// PrintRecord prints one ledger record as a box-list item
func PrintRecord(r models.TransactionRecord, isLast bool) {
	fmt.Printf("%s%s %-9s %18s → %s  (%s)\n",
		BoxPrefix(isLast),
		StatusIcon(r.Status),
		r.Status,
		FormatWei(r.Amount),
		r.To,
		r.Timestamp.Local().Format("2006-01-02 15:04:05"))

	detail := BoxDetailPrefix(isLast)
	fmt.Printf("%s   tx: %s  index: %d\n", detail, ShortHash(r.TxHash), r.BatchIndex)
	if r.Description != "" {
		fmt.Printf("%s   %s\n", detail, r.Description)
	}
	if r.Merchant != nil && r.Merchant.OrderId != "" {
		fmt.Printf("%s   order: %s (merchant %s)\n", detail, r.Merchant.OrderId, r.Merchant.MerchantId)
	}
}
