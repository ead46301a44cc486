// internal/bank/money.go
//
// 金額一律以 decimal.Decimal 表示，避免浮點誤差在多次存提款後累積。
// 合法金額最多兩位小數，且絕對值不超過 MaxAmount。

package bank

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount 為單筆金額與開戶餘額的上限。
var MaxAmount = decimal.New(1, 12)

// maxAmountDigits 為 MaxAmount 的整數位數（1e12 共 13 位）。
const maxAmountDigits = 13

// CheckRange 檢查金額的位數與精度，不檢查正負：
//   - 絕對值不得超過 MaxAmount
//   - 最多兩位小數
func CheckRange(d decimal.Decimal) error {
	if p := rangeProblem(d); p != "" {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, p)
	}
	return nil
}

// CheckAmount 檢查交易金額：需 > 0 且通過 CheckRange。
func CheckAmount(d decimal.Decimal) error {
	if p := amountProblem(d); p != "" {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, p)
	}
	return nil
}

func amountProblem(d decimal.Decimal) string {
	if !d.IsPositive() {
		return "must be positive"
	}
	return rangeProblem(d)
}

// rangeProblem 先以係數位數與指數判斷，
// 避免對極端指數（如 1e50000000）做十進位重新縮放。
func rangeProblem(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	exp := int64(d.Exponent())
	digits := int64(d.NumDigits())
	if digits+exp > maxAmountDigits {
		return "exceeds " + MaxAmount.String()
	}
	// 係數位數不足以被 10^(-2-exp) 整除時必定超過兩位小數。
	if exp < -2 && -2-exp > digits {
		return "has more than two decimal places"
	}
	if !d.Equal(d.Truncate(2)) {
		return "has more than two decimal places"
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return "exceeds " + MaxAmount.String()
	}
	return ""
}

// ParseAmount 將使用者輸入（如 "150", "150.25", "$1,200.00"）轉為金額。
// 超出範圍或超過兩位小數視為格式錯誤；正負交由帳戶規則處理。
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsZero() {
		return decimal.Zero, nil
	}
	if err := CheckRange(d); err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// MustAmount 與 ParseAmount 相同，但解析失敗時 panic。
// 僅用於常數設定與測試。
func MustAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}

// AmountText 以兩位小數輸出帳本上的金額，供對帳單與稽核表使用。
// 超過兩位小數時保留原始精度，不做四捨五入。
func AmountText(d decimal.Decimal) string {
	if d.Exponent() >= -2 || d.Equal(d.Truncate(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}

// FormatAmount 以 "$1,234.50" 的格式輸出金額（兩位小數、千分位）。
func FormatAmount(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}
