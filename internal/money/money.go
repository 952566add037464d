// Package money 處理金額字串與最小貨幣單位之間的轉換，供 CLI 與 HTTP 介面使用。
// 核心帳本只接受已轉換好的 int64 最小單位。
package money

import (
	"errors"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount 代表金額字串無法解析。
var ErrInvalidAmount = errors.New("invalid amount")

// DefaultCurrency 為預設幣別（盧比，最小單位為 paise）。
const DefaultCurrency = gomoney.INR

var maxMajor = decimal.New(1, 16)

// Parse 將 "123"、"123.4"、"123.45" 轉為最小單位（×100）。
// 小數超過兩位、空字串或無法解析皆回傳 ErrInvalidAmount。負數照常解析，由帳本判斷是否合法。
func Parse(s string) (int64, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(t)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("%w: %q has more than two decimals", ErrInvalidAmount, s)
	}
	if d.Abs().GreaterThanOrEqual(maxMajor) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return d.Shift(2).IntPart(), nil
}

// Format 以幣別符號與千分位顯示最小單位金額，例如 100000 INR → "₹1,000.00"。
func Format(minor int64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return gomoney.New(minor, currency).Display()
}

// Plain 不帶幣別符號，固定兩位小數，例如 -150 → "-1.50"。
func Plain(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
