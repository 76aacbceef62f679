package token

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Base mainnet USDC, the default watched token.
const (
	DefaultAddress  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	DefaultSymbol   = "USDC"
	DefaultDecimals = 6
)

// Config identifies the ERC-20 token whose balances are watched.
type Config struct {
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Decimals int    `yaml:"decimals"` // 0 = read from the contract at startup
}

// FormatUnits renders a raw token amount as a decimal string. Trailing zeros
// are trimmed, but at least two fraction digits are always kept.
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		raw = new(big.Int)
	}
	d := decimal.NewFromBigInt(raw, -int32(decimals))
	s := d.String()

	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		frac = s[i+1:]
	}
	if len(frac) >= 2 {
		return s
	}
	return d.StringFixed(2)
}
