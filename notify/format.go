package notify

import "github.com/shopspring/decimal"

// FormatMoney renders minor units with two decimals and the currency code,
// e.g. FormatMoney(123450, "RUB") == "1234.50 RUB".
func FormatMoney(minor int64, currency string) string {
	s := decimal.New(minor, -2).StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}
