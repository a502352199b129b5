package validate

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const addressHexLength = 40

// IsValidAddress reports whether s is a 0x-prefixed, 20-byte hex address.
// Mixed-case addresses must carry a valid EIP-55 checksum.
func IsValidAddress(s string) bool {
	if len(s) != 2+addressHexLength || !strings.HasPrefix(s, "0x") {
		return false
	}
	if !common.IsHexAddress(s) {
		return false
	}

	body := s[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex() == s
}

// NormalizeAddress returns the canonical lower-case form used in the ledger.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
