package validate

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", true},
		{"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB", true},
		{"0x7b0e4ee0b7d9bf3ab245e0362d6890ea0498fae4", true},
		{"0x7B0E4EE0B7D9BF3AB245E0362D6890EA0498FAE4", true},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"0x5aaEb6053F3E94C9b9A09f33669435E7Ef1BeAed", false}, // bad checksum
		{"7b0e4ee0b7d9bf3ab245e0362d6890ea0498fae4", false},   // missing prefix
		{"0x7b0e4ee0b7d9bf3ab245e0362d6890ea0498fae", false},  // too short
		{"0x7b0e4ee0b7d9bf3ab245e0362d6890ea0498fae4a", false},
		{"0xzz0e4ee0b7d9bf3ab245e0362d6890ea0498fae4", false},
		{"0X7b0e4ee0b7d9bf3ab245e0362d6890ea0498fae4", false},
		{"", false},
		{"0x", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidAddress(tt.input), "IsValidAddress(%q)", tt.input)
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0x7b0e4ee0b7d9bf3ab245e0362d6890ea0498fae4",
		NormalizeAddress(" 0x7b0e4EE0B7d9Bf3Ab245e0362D6890EA0498FAE4 "))
}

func TestParseAmount_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1", "1000000000000000000"},
		{"1.0", "1000000000000000000"},
		{"0.5", "500000000000000000"},
		{".25", "250000000000000000"},
		{"2.", "2000000000000000000"},
		{"0.000000000000000001", "1"},
		{"0.0000000000000000019", "1"}, // truncated past 18 decimals
		{"123456789.123456789", "123456789123456789000000000"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.input)
		require.NoError(t, err, "ParseAmount(%q)", tt.input)
		assert.Equal(t, tt.want, got.String(), "ParseAmount(%q)", tt.input)
		assert.True(t, IsPositive(got))
	}
}

func TestParseAmount_Zero(t *testing.T) {
	got, err := ParseAmount("0")
	require.NoError(t, err)
	assert.False(t, IsPositive(got))

	got, err = ParseAmount("0.000")
	require.NoError(t, err)
	assert.False(t, IsPositive(got))
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []string{"", " ", "-1", "-0.5", "abc", "1e18", "1.2.3", ".", "0x10", "1,5", "0.0000000000000000001"} {
		_, err := ParseAmount(input)
		require.Error(t, err, "ParseAmount(%q)", input)
		assert.True(t, errors.Is(err, ErrInvalidAmount), "ParseAmount(%q) error %v", input, err)
	}
}

func TestIsPositive(t *testing.T) {
	assert.False(t, IsPositive(nil))
	assert.False(t, IsPositive(big.NewInt(0)))
	assert.False(t, IsPositive(big.NewInt(-1)))
	assert.True(t, IsPositive(big.NewInt(1)))
}

func TestFormatEther(t *testing.T) {
	oneEth, _ := new(big.Int).SetString("1000000000000000000", 10)
	assert.Equal(t, "1.0", FormatEther(oneEth))
	assert.Equal(t, "0.5", FormatEther(big.NewInt(500000000000000000)))
	assert.Equal(t, "0.0", FormatEther(big.NewInt(0)))
	assert.Equal(t, "0.000000000000000001", FormatEther(big.NewInt(1)))
	assert.Equal(t, "0.0", FormatEther(nil))
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, wei := range []string{"1", "500000000000000000", "1000000000000000000", "123456789123456789000000000"} {
		n, _ := new(big.Int).SetString(wei, 10)
		back, err := ParseAmount(FormatEther(n))
		require.NoError(t, err)
		assert.Equal(t, 0, back.Cmp(n), "round trip of %s", wei)
	}
}

func TestParseSmallestUnit(t *testing.T) {
	n, err := ParseSmallestUnit("500000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "0.5", ToDisplay(n).String())

	_, err = ParseSmallestUnit("0.5")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
