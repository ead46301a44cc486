// internal/bank/entry.go
//
// 定義帳務紀錄 (Entry) 與其種類 (Kind)、拒絕原因 (Reason)。
// Entry 一旦寫入帳戶歷史即不可變；被拒絕的操作同樣產生紀錄（金額為 0），
// 讓「拒絕」成為可稽核的歷史，而不是靜默的 no-op。

package bank

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind 為帳務紀錄的種類，封閉列舉。
type Kind uint8

const (
	KindDeposit Kind = iota + 1
	KindWithdrawal
	KindTransferOut
	KindTransferIn
	KindBalanceInquiry
	KindRejected
)

var kindNames = map[Kind]string{
	KindDeposit:        "Deposit",
	KindWithdrawal:     "Withdrawal",
	KindTransferOut:    "Transfer Out",
	KindTransferIn:     "Transfer In",
	KindBalanceInquiry: "Balance Inquiry",
	KindRejected:       "Rejected",
}

var kindCodes = map[Kind]string{
	KindDeposit:        "deposit",
	KindWithdrawal:     "withdrawal",
	KindTransferOut:    "transfer_out",
	KindTransferIn:     "transfer_in",
	KindBalanceInquiry: "balance_inquiry",
	KindRejected:       "rejected",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// MarshalText 以 snake_case 代碼輸出，供 JSON 與 SQLite 使用。
func (k Kind) MarshalText() ([]byte, error) {
	if s, ok := kindCodes[k]; ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unknown entry kind %d", uint8(k))
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, code := range kindCodes {
		if code == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown entry kind %q", string(b))
}

// Sign 回傳此種類對餘額的影響方向：+1 入帳、-1 出帳、0 不影響。
func (k Kind) Sign() int {
	switch k {
	case KindDeposit, KindTransferIn:
		return 1
	case KindWithdrawal, KindTransferOut:
		return -1
	case KindBalanceInquiry, KindRejected:
		return 0
	}
	return 0
}

// Reason 為機器可讀的拒絕原因，僅 Rejected 紀錄會帶值。
type Reason string

const (
	ReasonInvalidAmount            Reason = "invalid_amount"
	ReasonInsufficientFunds        Reason = "insufficient_funds"
	ReasonSameAccount              Reason = "same_account"
	ReasonDestinationNotFound      Reason = "destination_not_found"
	ReasonInsufficientTerminalCash Reason = "insufficient_terminal_cash"
)

var reasonErrs = map[Reason]error{
	ReasonInvalidAmount:            ErrInvalidAmount,
	ReasonInsufficientFunds:        ErrInsufficientFunds,
	ReasonSameAccount:              ErrSameAccount,
	ReasonDestinationNotFound:      ErrDestinationNotFound,
	ReasonInsufficientTerminalCash: ErrInsufficientTerminalCash,
}

// Err 回傳對應的 sentinel error；空原因回傳 nil。
func (r Reason) Err() error {
	if r == "" {
		return nil
	}
	if err, ok := reasonErrs[r]; ok {
		return err
	}
	return fmt.Errorf("rejected: %s", string(r))
}

// Entry 為單筆帳務紀錄。
// - Amount：非負金額，Rejected 與 BalanceInquiry 恆為 0。
// - Counterparty：轉帳對方帳號（僅 TransferOut / TransferIn）。
type Entry struct {
	ID           uuid.UUID       `json:"id"`
	Kind         Kind            `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Time         time.Time       `json:"time"`
	Note         string          `json:"note,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`
	Reason       Reason          `json:"reason,omitempty"`
}

// now 可於測試中替換以固定時間。
var now = time.Now

func newEntry(kind Kind, amount decimal.Decimal, note string) Entry {
	return Entry{
		ID:     uuid.New(),
		Kind:   kind,
		Amount: amount,
		Time:   now(),
		Note:   note,
	}
}

// Reject 建立一筆 Rejected 紀錄（不寫入任何帳戶）。
// 供機台層在未觸及帳戶前即拒絕的情境使用，例如機台現金不足。
func Reject(reason Reason, note string) Entry {
	e := newEntry(KindRejected, decimal.Zero, note)
	e.Reason = reason
	return e
}

// Rejected 回報此紀錄是否為被拒絕的操作。
func (e Entry) Rejected() bool { return e.Kind == KindRejected }

// Err 回傳拒絕原因對應的 error；完成的操作回傳 nil。
func (e Entry) Err() error { return e.Reason.Err() }

// Signed 回傳此紀錄對餘額的帶號影響。
func (e Entry) Signed() decimal.Decimal {
	switch e.Kind.Sign() {
	case 1:
		return e.Amount
	case -1:
		return e.Amount.Neg()
	}
	return decimal.Zero
}

// String 以 "[2006-01-02 15:04:05] Deposit: $100.00 note" 格式輸出。
func (e Entry) String() string {
	s := fmt.Sprintf("[%s] %s: %s %s", e.Time.Format(time.DateTime), e.Kind, FormatAmount(e.Amount), e.Note)
	return strings.TrimSpace(s)
}
