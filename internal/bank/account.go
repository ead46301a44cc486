// Package bank 定義核心領域模型與業務規則：帳戶、帳務紀錄、卡片與帳戶目錄。
// 本檔定義 Account 與其存款、提款、轉帳、查詢餘額等原語，不含任何 HTTP 或儲存細節。

package bank

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Journal 接收每一筆寫入帳戶歷史的紀錄（例如 SQLite 稽核表）。
// Append 於帳戶鎖釋放後呼叫。
type Journal interface {
	Append(accountID string, e Entry)
}

// Account 為單一銀行帳戶。
// - mu：序列化餘額與歷史的變更，確保兩者一致。
// - opening：開戶餘額，用於重播驗證 (Reconcile)。
// - history：只追加 (append-only)，插入順序即時間順序。
type Account struct {
	id    string
	owner string
	pin   string

	mu      sync.Mutex
	opening decimal.Decimal
	balance decimal.Decimal
	history []Entry
	journal Journal
}

// NewAccount 建立帳戶；開戶餘額不得為負，且須符合 CheckRange。
func NewAccount(id, pin, owner string, opening decimal.Decimal) (*Account, error) {
	if opening.IsNegative() {
		return nil, ErrNegativeOpening
	}
	if err := CheckRange(opening); err != nil {
		return nil, fmt.Errorf("opening balance: %w", err)
	}
	return &Account{id: id, pin: pin, owner: owner, opening: opening, balance: opening}, nil
}

func (a *Account) ID() string    { return a.id }
func (a *Account) Owner() string { return a.owner }

// Opening 回傳開戶餘額。
func (a *Account) Opening() decimal.Decimal { return a.opening }

// VerifyPIN 比對密碼。
func (a *Account) VerifyPIN(pin string) bool { return a.pin == pin }

// Balance 讀取目前餘額，不寫入歷史。
// 面向客戶的查詢請使用 CheckBalance。
func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Deposit 存款：金額需通過 CheckAmount，否則寫入 Rejected 紀錄並回傳。
func (a *Account) Deposit(amount decimal.Decimal) Entry {
	a.mu.Lock()
	var e Entry
	if p := amountProblem(amount); p != "" {
		e = a.rejectLocked(ReasonInvalidAmount, "deposit amount "+p)
	} else {
		a.balance = a.balance.Add(amount)
		e = a.appendLocked(newEntry(KindDeposit, amount, ""))
	}
	a.mu.Unlock()
	a.publish(e)
	return e
}

// Withdraw 提款：金額需通過 CheckAmount 且不得超過餘額（維持非負）。
func (a *Account) Withdraw(amount decimal.Decimal) Entry {
	a.mu.Lock()
	var e Entry
	p := amountProblem(amount)
	switch {
	case p != "":
		e = a.rejectLocked(ReasonInvalidAmount, "withdrawal amount "+p)
	case amount.GreaterThan(a.balance):
		e = a.rejectLocked(ReasonInsufficientFunds, "insufficient funds")
	default:
		a.balance = a.balance.Sub(amount)
		e = a.appendLocked(newEntry(KindWithdrawal, amount, ""))
	}
	a.mu.Unlock()
	a.publish(e)
	return e
}

// TransferOut 轉出至 dest，於兩帳戶鎖內原子完成：
// 扣款、入帳、來源 TransferOut 紀錄、目標 TransferIn 紀錄。
// 兩把鎖一律依帳號遞增順序取得，避免雙向同時轉帳時死結。
func (a *Account) TransferOut(amount decimal.Decimal, dest *Account) Entry {
	if dest == nil || dest == a || dest.id == a.id {
		return a.Reject(ReasonSameAccount, "cannot transfer to the same account")
	}

	first, second := a, dest
	if dest.id < a.id {
		first, second = dest, a
	}
	first.mu.Lock()
	second.mu.Lock()

	var out, in Entry
	p := amountProblem(amount)
	switch {
	case p != "":
		out = a.rejectLocked(ReasonInvalidAmount, "transfer amount "+p)
	case amount.GreaterThan(a.balance):
		out = a.rejectLocked(ReasonInsufficientFunds, "insufficient funds")
	default:
		a.balance = a.balance.Sub(amount)
		dest.balance = dest.balance.Add(amount)

		out = newEntry(KindTransferOut, amount, "to "+dest.id)
		out.Counterparty = dest.id
		a.appendLocked(out)

		in = newEntry(KindTransferIn, amount, "from "+a.id)
		in.Counterparty = a.id
		in.Time = out.Time
		dest.appendLocked(in)
	}

	second.mu.Unlock()
	first.mu.Unlock()

	a.publish(out)
	if in.Kind == KindTransferIn {
		dest.publish(in)
	}
	return out
}

// CheckBalance 查詢餘額，並寫入 BalanceInquiry 紀錄（查詢亦屬稽核歷史）。
func (a *Account) CheckBalance() decimal.Decimal {
	a.mu.Lock()
	e := a.appendLocked(newEntry(KindBalanceInquiry, decimal.Zero, ""))
	bal := a.balance
	a.mu.Unlock()
	a.publish(e)
	return bal
}

// Reject 寫入一筆 Rejected 紀錄並回傳，不影響餘額。
// 供機台層記錄帳戶範圍外的拒絕（如轉帳目標不存在）。
func (a *Account) Reject(reason Reason, note string) Entry {
	a.mu.Lock()
	e := a.rejectLocked(reason, note)
	a.mu.Unlock()
	a.publish(e)
	return e
}

// History 回傳完整歷史的拷貝，避免外部修改內部切片。
func (a *Account) History() []Entry {
	_, h := a.snapshot()
	return h
}

// snapshot 於同一把鎖內取得餘額與歷史拷貝。
func (a *Account) snapshot() (decimal.Decimal, []Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.history))
	copy(out, a.history)
	return a.balance, out
}

// Recent 回傳最後 limit 筆紀錄（時間順序，最新在後）；limit <= 0 回傳空切片。
func (a *Account) Recent(limit int) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 {
		return []Entry{}
	}
	start := len(a.history) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(a.history)-start)
	copy(out, a.history[start:])
	return out
}

// Reconcile 以開戶餘額重播歷史，驗證目前餘額一致且非負。
func (a *Account) Reconcile() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	replayed := Replay(a.opening, a.history)
	if !replayed.Equal(a.balance) {
		return fmt.Errorf("account %s: balance %s does not match replayed %s", a.id, a.balance, replayed)
	}
	if a.balance.IsNegative() {
		return fmt.Errorf("account %s: negative balance %s", a.id, a.balance)
	}
	return nil
}

// Replay 回傳 opening 加上所有非拒絕紀錄帶號金額的總和。
func Replay(opening decimal.Decimal, history []Entry) decimal.Decimal {
	bal := opening
	for _, e := range history {
		bal = bal.Add(e.Signed())
	}
	return bal
}

func (a *Account) rejectLocked(reason Reason, note string) Entry {
	e := newEntry(KindRejected, decimal.Zero, note)
	e.Reason = reason
	return a.appendLocked(e)
}

func (a *Account) appendLocked(e Entry) Entry {
	a.history = append(a.history, e)
	return e
}

func (a *Account) publish(e Entry) {
	if a.journal != nil {
		a.journal.Append(a.id, e)
	}
}
