package paylink

import (
	"math/big"
	"net/url"
	"strings"

	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/validate"
)

const (
	paramTo          = "to"
	paramAmount      = "amount"
	paramDescription = "description"
	paramRedirectURL = "redirect_url"
	paramMerchantId  = "merchant_id"
	paramOrderId     = "order_id"

	payPath = "/pay"
)

// Encode builds <baseURL>/pay?to=..&amount=<wei>&description=..[&redirect_url=..][&merchant_id=..][&order_id=..].
// Parameters keep exactly this order and are form-encoded; description is
// always present and merchant parameters only when set. A nil amount is
// written as 0, the marker for an amount the payer chooses.
func Encode(baseURL, recipient string, amount *big.Int, description string, merchant *models.MerchantMetadata) string {
	wei := "0"
	if amount != nil {
		wei = amount.String()
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString(payPath)
	b.WriteByte('?')
	writeParam(&b, paramTo, recipient, true)
	writeParam(&b, paramAmount, wei, false)
	writeParam(&b, paramDescription, description, false)
	if merchant != nil {
		if merchant.RedirectURL != "" {
			writeParam(&b, paramRedirectURL, merchant.RedirectURL, false)
		}
		if merchant.MerchantId != "" {
			writeParam(&b, paramMerchantId, merchant.MerchantId, false)
		}
		if merchant.OrderId != "" {
			writeParam(&b, paramOrderId, merchant.OrderId, false)
		}
	}
	return b.String()
}

func writeParam(b *strings.Builder, key, value string, first bool) {
	if !first {
		b.WriteByte('&')
	}
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(value))
}

// Decode reads a payment request from a full link, a "?query" or a bare
// query string. It never fails: unparseable values are passed through for
// the validator to reject, and absent fields stay empty. An amount of 0
// decodes as empty so the request reads as open.
func Decode(raw string) models.PaymentRequest {
	values := parseQuery(raw)

	req := models.PaymentRequest{
		Recipient:   values.Get(paramTo),
		Amount:      values.Get(paramAmount),
		Description: values.Get(paramDescription),
	}
	if wei, ok := new(big.Int).SetString(req.Amount, 10); ok {
		switch wei.Sign() {
		case 0:
			req.Amount = ""
		case 1:
			req.Amount = validate.FormatEther(wei)
		}
	}

	merchant := &models.MerchantMetadata{
		RedirectURL: values.Get(paramRedirectURL),
		MerchantId:  values.Get(paramMerchantId),
		OrderId:     values.Get(paramOrderId),
	}
	if !merchant.IsEmpty() {
		req.Merchant = merchant
	}
	return req
}

// IsOpen reports whether the request still needs a recipient or an amount
// from the payer.
func IsOpen(req models.PaymentRequest) bool {
	return strings.TrimSpace(req.Recipient) == "" || strings.TrimSpace(req.Amount) == ""
}

func parseQuery(raw string) url.Values {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	} else if isBareURL(raw) {
		return url.Values{}
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}

	// ParseQuery keeps every well-formed pair even when it also reports an error
	values, _ := url.ParseQuery(raw)
	if values == nil {
		return url.Values{}
	}
	return values
}

// isBareURL reports whether raw is a link without a query, as opposed to a
// query string whose values happen to contain "://".
func isBareURL(raw string) bool {
	i := strings.Index(raw, "://")
	if i < 0 || strings.ContainsAny(raw[:i], "=&") {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != ""
}
