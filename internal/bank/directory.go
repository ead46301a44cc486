// internal/bank/directory.go

// Directory 為帳戶目錄：帳號 → *Account，以及卡號 → 帳號的對照表。
// 目錄以參考方式傳遞給機台，帳戶以指標原地修改，
// 重複查詢同一帳號必定取得同一物件，餘額變更對所有持有者可見。
// 目錄本身以讀寫鎖保護 map；帳戶內部狀態由各帳戶自己的鎖保護。
package bank

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type Directory struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	cards    map[string]string
	journal  Journal
}

// DirectoryOption 調整目錄建立時的行為。
type DirectoryOption func(*Directory)

// WithJournal 讓目錄中每個帳戶的新紀錄同步寫入 j。
func WithJournal(j Journal) DirectoryOption {
	return func(d *Directory) { d.journal = j }
}

// NewDirectory 建立空白目錄。
func NewDirectory(opts ...DirectoryOption) *Directory {
	d := &Directory{
		accounts: make(map[string]*Account),
		cards:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add 將帳戶加入目錄；帳號重複回傳 ErrDuplicateAccount。
func (d *Directory) Add(a *Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[a.id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAccount, a.id)
	}
	a.journal = d.journal
	d.accounts[a.id] = a
	return nil
}

// Open 建立帳戶並加入目錄。
func (d *Directory) Open(id, pin, owner string, opening decimal.Decimal) (*Account, error) {
	a, err := NewAccount(id, pin, owner, opening)
	if err != nil {
		return nil, fmt.Errorf("open account %s: %w", id, err)
	}
	if err := d.Add(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get 依帳號取得帳戶。
func (d *Directory) Get(id string) (*Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[id]
	return a, ok
}

// IssueCard 登記卡號對應的帳號；帳號必須已存在。
func (d *Directory) IssueCard(cardNumber, accountID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[accountID]; !ok {
		return fmt.Errorf("issue card %s: account %s not found", cardNumber, accountID)
	}
	d.cards[cardNumber] = accountID
	return nil
}

// Resolve 將卡片解析為帳戶：先查卡號對照表，未登記時以卡號即帳號處理。
func (d *Directory) Resolve(c Card) (*Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.cards[c.Number]
	if !ok {
		id = c.Number
	}
	a, ok := d.accounts[id]
	return a, ok
}

// Accounts 回傳依帳號排序的帳戶清單。
func (d *Directory) Accounts() []*Account {
	d.mu.RLock()
	out := make([]*Account, 0, len(d.accounts))
	for _, a := range d.accounts {
		out = append(out, a)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Total 回傳目錄內所有帳戶餘額總和。
func (d *Directory) Total() decimal.Decimal {
	total := decimal.Zero
	for _, a := range d.Accounts() {
		total = total.Add(a.Balance())
	}
	return total
}

// Reconcile 對每個帳戶執行重播驗證，回傳所有不一致的合併錯誤。
func (d *Directory) Reconcile() error {
	var errs []error
	for _, a := range d.Accounts() {
		if err := a.Reconcile(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
