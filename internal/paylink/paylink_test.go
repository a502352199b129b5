package paylink

import (
	"math/big"
	"testing"

	"payment-settlement-go/internal/models"

	"github.com/stretchr/testify/assert"
)

const addr = "0x7b0e4ee0b7d9bf3ab245e0362d6890ea0498fae4"

func oneEther() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}

func TestEncode(t *testing.T) {
	got := Encode("https://pay.example.com/", addr, oneEther(), "Coffee & cake", nil)
	assert.Equal(t, "https://pay.example.com/pay?to="+addr+"&amount=1000000000000000000&description=Coffee+%26+cake", got)
}

func TestEncode_EmptyDescriptionAlwaysPresent(t *testing.T) {
	got := Encode("http://localhost:5173", addr, big.NewInt(5), "", nil)
	assert.Equal(t, "http://localhost:5173/pay?to="+addr+"&amount=5&description=", got)
}

func TestEncode_MerchantParamsInOrder(t *testing.T) {
	got := Encode("https://pay.example.com", addr, big.NewInt(1), "order", &models.MerchantMetadata{
		RedirectURL: "https://shop.example.com/done?x=1",
		OrderId:     "A-17",
	})
	assert.Equal(t, "https://pay.example.com/pay?to="+addr+
		"&amount=1&description=order"+
		"&redirect_url=https%3A%2F%2Fshop.example.com%2Fdone%3Fx%3D1"+
		"&order_id=A-17", got)
}

func TestRoundTrip(t *testing.T) {
	req := Decode(Encode("https://pay.example.com", addr, oneEther(), "desc", nil))
	assert.Equal(t, models.PaymentRequest{Recipient: addr, Amount: "1.0", Description: "desc"}, req)
	assert.False(t, IsOpen(req))
}

func TestRoundTrip_Merchant(t *testing.T) {
	merchant := &models.MerchantMetadata{RedirectURL: "https://shop.example.com/cb", MerchantId: "m-1", OrderId: "o 2"}
	req := Decode(Encode("https://pay.example.com", addr, big.NewInt(500000000000000000), "two words", merchant))

	assert.Equal(t, "0.5", req.Amount)
	assert.Equal(t, "two words", req.Description)
	assert.Equal(t, merchant, req.Merchant)
}

func TestDecode_Forms(t *testing.T) {
	for _, raw := range []string{
		"to=" + addr + "&amount=1000000000000000000",
		"?to=" + addr + "&amount=1000000000000000000",
		"https://pay.example.com/pay?to=" + addr + "&amount=1000000000000000000#top",
		"to=" + addr + "&amount=1000000000000000000&redirect_url=https://shop.example/done",
	} {
		req := Decode(raw)
		assert.Equal(t, addr, req.Recipient, raw)
		assert.Equal(t, "1.0", req.Amount, raw)
	}
}

func TestDecode_UnescapedRedirectInBareQuery(t *testing.T) {
	req := Decode("to=" + addr + "&amount=1&redirect_url=https://shop.example/done")
	assert.Equal(t, addr, req.Recipient)
	assert.Equal(t, "0.000000000000000001", req.Amount)
	if assert.NotNil(t, req.Merchant) {
		assert.Equal(t, "https://shop.example/done", req.Merchant.RedirectURL)
	}
}

func TestRoundTrip_OpenAmount(t *testing.T) {
	link := Encode("https://pay.example.com", addr, nil, "tip", nil)
	assert.Contains(t, link, "&amount=0&")

	req := Decode(link)
	assert.Equal(t, addr, req.Recipient)
	assert.Empty(t, req.Amount)
	assert.Equal(t, "tip", req.Description)
	assert.True(t, IsOpen(req))
}

func TestDecode_PassesThroughMalformedValues(t *testing.T) {
	req := Decode("to=not-an-address&amount=1.5")
	assert.Equal(t, "not-an-address", req.Recipient)
	assert.Equal(t, "1.5", req.Amount)

	req = Decode("amount=-3")
	assert.Equal(t, "-3", req.Amount)
}

func TestDecode_OpenRequests(t *testing.T) {
	for _, raw := range []string{"", "https://pay.example.com/pay", "to=" + addr, "amount=1", "%zz", "to=" + addr + "&amount=0"} {
		req := Decode(raw)
		assert.True(t, IsOpen(req), raw)
		assert.Nil(t, req.Merchant, raw)
	}
}
