package common

import (
	"testing"
)

func TestFormatWei(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"500000000000000000", "0.5 ETH"},
		{"1000000000000000000", "1.0 ETH"},
		{"abc", "abc wei"},
	}
	for _, tt := range tests {
		if got := FormatWei(tt.amount); got != tt.want {
			t.Errorf("FormatWei(%q) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestShortHash(t *testing.T) {
	if got := ShortHash(""); got != "none" {
		t.Errorf("expected none, got %q", got)
	}
	if got := ShortHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"); got != "0x5c50…2060" {
		t.Errorf("unexpected short hash %q", got)
	}
}

func TestExplorerTxURL(t *testing.T) {
	if got := ExplorerTxURL("https://sepolia.etherscan.io/", "0xabc"); got != "https://sepolia.etherscan.io/tx/0xabc" {
		t.Errorf("unexpected explorer url %q", got)
	}
	if got := ExplorerTxURL("", "0xabc"); got != "" {
		t.Errorf("expected empty url without explorer, got %q", got)
	}
}
