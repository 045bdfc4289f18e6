package domain

import (
	"strings"
)

type AssetClass string

const (
	AssetClassEquity   AssetClass = "equity"
	AssetClassCurrency AssetClass = "currency"
	AssetClassCrypto   AssetClass = "crypto"
)

// QuoteCurrency is the counter currency for currency and crypto pairs.
const QuoteCurrency = "USD"

var cryptoTickers = map[string]struct{}{
	"BTC":  {},
	"ETH":  {},
	"DOGE": {},
	"XRP":  {},
	"SOL":  {},
}

// Symbol is a caller symbol resolved into the Yahoo ticker convention.
// Providers with other conventions derive their own ticker from Base and Class.
type Symbol struct {
	Input  string     `json:"input"`
	Ticker string     `json:"ticker"`
	Class  AssetClass `json:"class"`
	Base   string     `json:"base"`
}

// NormalizeSymbol maps a caller symbol to the provider ticker:
// BTC -> BTC-USD, EUR -> EUR=X, AAPL -> AAPL.
func NormalizeSymbol(raw string) Symbol {
	input := strings.TrimSpace(raw)
	upper := strings.ToUpper(input)

	if _, ok := cryptoTickers[upper]; ok {
		return Symbol{
			Input:  input,
			Ticker: upper + "-" + QuoteCurrency,
			Class:  AssetClassCrypto,
			Base:   upper,
		}
	}

	if IsCurrencyCode(upper) {
		return Symbol{
			Input:  input,
			Ticker: upper + "=X",
			Class:  AssetClassCurrency,
			Base:   upper,
		}
	}

	return Symbol{
		Input:  input,
		Ticker: input,
		Class:  AssetClassEquity,
		Base:   input,
	}
}

// IsCurrencyCode reports whether s is a bare three letter alphabetic code.
func IsCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
