// internal/bank/statement.go

package bank

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"atm/internal/storage"
)

// Statement 匯出目錄狀態為可寫入檔案的 storage.Statement：
// - 每個帳戶的開戶餘額、目前餘額與完整歷史
// - Meta 內寫入格式與版本，便於日後比對
// 對帳單僅供稽核，不會被載回帳本。
func (d *Directory) Statement() storage.Statement {
	s := storage.Statement{
		Meta: storage.Meta{
			Storage: "json_statement",
			Version: 1,
		},
	}
	total := decimal.Zero
	for _, a := range d.Accounts() {
		balance, history := a.snapshot()
		total = total.Add(balance)
		s.Accounts = append(s.Accounts, storage.StatementAccount{
			ID:      a.ID(),
			Owner:   a.Owner(),
			Opening: AmountText(a.Opening()),
			Balance: AmountText(balance),
			Entries: toAnySlice(history),
		})
	}
	s.Total = AmountText(total)
	return s
}

// VerifyStatement 以對帳單中的開戶餘額重播每個帳戶的紀錄，
// 檢查結果與記載的餘額一致，且所有帳戶總和等於 Total。
// 紀錄以 JSON 中介轉換還原為 Entry。
func VerifyStatement(st storage.Statement) error {
	var errs []error
	total := decimal.Zero
	for _, sa := range st.Accounts {
		opening, err := decimal.NewFromString(sa.Opening)
		if err != nil {
			errs = append(errs, fmt.Errorf("account %s: opening: %w", sa.ID, err))
			continue
		}
		balance, err := decimal.NewFromString(sa.Balance)
		if err != nil {
			errs = append(errs, fmt.Errorf("account %s: balance: %w", sa.ID, err))
			continue
		}
		entries := make([]Entry, 0, len(sa.Entries))
		for i, raw := range sa.Entries {
			var e Entry
			j, err := json.Marshal(raw)
			if err == nil {
				err = json.Unmarshal(j, &e)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("account %s: entry %d: %w", sa.ID, i, err))
				continue
			}
			entries = append(entries, e)
		}
		if replayed := Replay(opening, entries); !replayed.Equal(balance) {
			errs = append(errs, fmt.Errorf("account %s: balance %s does not match replayed %s", sa.ID, sa.Balance, replayed))
		}
		total = total.Add(balance)
	}
	if want, err := decimal.NewFromString(st.Total); err != nil {
		errs = append(errs, fmt.Errorf("total: %w", err))
	} else if !want.Equal(total) {
		errs = append(errs, fmt.Errorf("total %s does not match sum of balances %s", st.Total, total))
	}
	return errors.Join(errs...)
}

// toAnySlice 將型別化切片轉為 []any，供對帳單序列化使用。
func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
