// Package atm 實作單一自助機台的工作階段狀態機：
//
//	Idle ──InsertCard──▶ CardInserted ──EnterPIN(ok)──▶ Authenticated
//	  ▲                        │                              │
//	  └──EjectCard / capture───┴──────────EjectCard───────────┘
//
// 機台驗證工作階段狀態後，將存款、提款、轉帳、查詢委派給卡片所綁定的帳戶，
// 並以自身的現金存量對提款做准入控制。
package atm

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"atm/internal/bank"
	"atm/internal/observability"
)

// DefaultPINAttempts 為每次插卡可嘗試的密碼次數。
const DefaultPINAttempts = 3

// State 為工作階段狀態。
type State uint8

const (
	Idle State = iota
	CardInserted
	Authenticated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CardInserted:
		return "card_inserted"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// session 只在有卡片時存在；Terminal.sess == nil 即為 Idle，
// 因此「已驗證但沒有卡片」無法被表示。
type session struct {
	card          bank.Card
	account       *bank.Account
	authenticated bool
	attemptsLeft  int
}

// Terminal 為單一機台。
// - mu：序列化所有呼叫，HTTP 層可從多個 goroutine 安全呼叫。
// - dir：外部注入的帳戶目錄，機台不持有任何全域狀態。
// - cash：機台現金存量，不屬於任何帳戶。
type Terminal struct {
	mu          sync.Mutex
	dir         *bank.Directory
	cash        decimal.Decimal
	maxAttempts int
	sess        *session
	captured    []string
	log         *zap.Logger
	cashGauge   prometheus.Gauge
}

// Option 調整機台設定。
type Option func(*Terminal)

// WithLogger 設定結構化日誌。
func WithLogger(l *zap.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.log = l
		}
	}
}

// WithPINAttempts 設定每張卡可嘗試的密碼次數（預設 3）。
func WithPINAttempts(n int) Option {
	return func(t *Terminal) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// WithCashGauge 將現金存量回報至 g（例如 observability.CashOnHand）。
// 未設定時不回報；同一 process 內多台機台應各自使用不同的 gauge。
func WithCashGauge(g prometheus.Gauge) Option {
	return func(t *Terminal) { t.cashGauge = g }
}

// New 建立機台；cash 為初始現金存量。
func New(dir *bank.Directory, cash decimal.Decimal, opts ...Option) *Terminal {
	t := &Terminal{
		dir:         dir,
		cash:        cash,
		maxAttempts: DefaultPINAttempts,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.setCashLocked(cash)
	return t
}

// Directory 回傳機台使用的帳戶目錄。
func (t *Terminal) Directory() *bank.Directory { return t.dir }

// State 回傳目前工作階段狀態。
func (t *Terminal) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Terminal) stateLocked() State {
	switch {
	case t.sess == nil:
		return Idle
	case t.sess.authenticated:
		return Authenticated
	default:
		return CardInserted
	}
}

// CashOnHand 回傳機台現金存量。
func (t *Terminal) CashOnHand() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cash
}

// AttemptsRemaining 回傳目前卡片剩餘的密碼嘗試次數；無卡時為完整額度。
func (t *Terminal) AttemptsRemaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return t.maxAttempts
	}
	return t.sess.attemptsLeft
}

// Card 回傳目前插入的卡片。
func (t *Terminal) Card() (bank.Card, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return bank.Card{}, false
	}
	return t.sess.card, true
}

// Captured 回傳曾被沒收的卡號（依沒收順序）。
// 僅供營運查詢；被沒收的卡片仍可重新插入。
func (t *Terminal) Captured() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.captured...)
}

// InsertCard 插卡：僅能由 Idle 進入，卡片必須對應到目錄中的帳戶。
func (t *Terminal) InsertCard(c bank.Card) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sess != nil {
		return ErrCardAlreadyInserted
	}
	acct, ok := t.dir.Resolve(c)
	if !ok {
		t.log.Warn("unknown card rejected", zap.String("card", c.Number))
		return fmt.Errorf("%w: %s", ErrUnknownCard, c.Number)
	}
	t.sess = &session{card: c, account: acct, attemptsLeft: t.maxAttempts}

	observability.SessionEvents.WithLabelValues("card_inserted").Inc()
	t.log.Info("card inserted", zap.String("card", c.Number), zap.String("account", acct.ID()))
	return nil
}

// EnterPIN 驗證密碼：比對卡片所綁定帳戶的密碼。
// 正確 → Authenticated 並重設次數；錯誤 → 次數減一，歸零時沒收卡片並回傳 ErrTooManyAttempts。
func (t *Terminal) EnterPIN(pin string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.sess
	if s == nil {
		return false, ErrNoCardInserted
	}
	if s.account.VerifyPIN(pin) {
		s.authenticated = true
		s.attemptsLeft = t.maxAttempts
		observability.SessionEvents.WithLabelValues("authenticated").Inc()
		t.log.Info("card authenticated", zap.String("card", s.card.Number), zap.String("account", s.account.ID()))
		return true, nil
	}

	s.attemptsLeft--
	observability.PINFailures.Inc()
	if s.attemptsLeft <= 0 {
		t.captureLocked()
		return false, ErrTooManyAttempts
	}
	t.log.Warn("wrong PIN", zap.String("card", s.card.Number), zap.Int("attempts_left", s.attemptsLeft))
	return false, nil
}

// captureLocked 沒收卡片：清除工作階段回到 Idle。
func (t *Terminal) captureLocked() {
	number := t.sess.card.Number
	t.captured = append(t.captured, number)
	t.sess = nil
	observability.CardCaptures.Inc()
	t.log.Warn("card captured", zap.String("card", number))
}

// EjectCard 退卡，回到 Idle。
func (t *Terminal) EjectCard() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sess == nil {
		return ErrNoCardInserted
	}
	number := t.sess.card.Number
	t.sess = nil
	observability.SessionEvents.WithLabelValues("card_ejected").Inc()
	t.log.Info("card ejected", zap.String("card", number))
	return nil
}

// requireAuthLocked 每次操作都重新檢查驗證狀態。
func (t *Terminal) requireAuthLocked(op string) (*bank.Account, error) {
	if t.sess == nil || !t.sess.authenticated {
		observability.Operations.WithLabelValues(op, observability.OutcomeDenied).Inc()
		return nil, ErrNotAuthenticated
	}
	return t.sess.account, nil
}

// CheckBalance 查詢餘額（寫入 BalanceInquiry 紀錄）。
func (t *Terminal) CheckBalance() (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acct, err := t.requireAuthLocked("balance")
	if err != nil {
		return decimal.Zero, err
	}
	bal := acct.CheckBalance()
	observability.Operations.WithLabelValues("balance", observability.OutcomeCompleted).Inc()
	return bal, nil
}

// Deposit 存款：現金一經放入即計入機台存量，再交由帳戶入帳。
func (t *Terminal) Deposit(amount decimal.Decimal) (bank.Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acct, err := t.requireAuthLocked("deposit")
	if err != nil {
		return bank.Entry{}, err
	}
	// 不合法的金額不動機台現金，直接交由帳戶記錄拒絕。
	if bank.CheckAmount(amount) == nil {
		t.setCashLocked(t.cash.Add(amount))
	}
	e := acct.Deposit(amount)
	t.observe("deposit", acct, e)
	return e, nil
}

// Withdraw 提款：先檢查機台現金，再交由帳戶扣款；
// 只有帳戶扣款成功時才減少機台現金。
func (t *Terminal) Withdraw(amount decimal.Decimal) (bank.Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acct, err := t.requireAuthLocked("withdraw")
	if err != nil {
		return bank.Entry{}, err
	}
	if bank.CheckAmount(amount) == nil && amount.GreaterThan(t.cash) {
		e := bank.Reject(bank.ReasonInsufficientTerminalCash, "terminal does not have enough cash")
		t.observe("withdraw", acct, e)
		return e, nil
	}
	e := acct.Withdraw(amount)
	if !e.Rejected() {
		t.setCashLocked(t.cash.Sub(amount))
	}
	t.observe("withdraw", acct, e)
	return e, nil
}

// Transfer 轉帳至 destID；目標不存在時於來源帳戶寫入 Rejected 紀錄。
func (t *Terminal) Transfer(amount decimal.Decimal, destID string) (bank.Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acct, err := t.requireAuthLocked("transfer")
	if err != nil {
		return bank.Entry{}, err
	}
	dest, ok := t.dir.Get(destID)
	var e bank.Entry
	if !ok {
		e = acct.Reject(bank.ReasonDestinationNotFound, "destination account not found")
	} else {
		e = acct.TransferOut(amount, dest)
	}
	t.observe("transfer", acct, e)
	return e, nil
}

// RecentTransactions 回傳綁定帳戶最後 limit 筆紀錄（最新在後）。
func (t *Terminal) RecentTransactions(limit int) ([]bank.Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acct, err := t.requireAuthLocked("history")
	if err != nil {
		return nil, err
	}
	observability.Operations.WithLabelValues("history", observability.OutcomeCompleted).Inc()
	return acct.Recent(limit), nil
}

func (t *Terminal) setCashLocked(v decimal.Decimal) {
	t.cash = v
	if t.cashGauge != nil {
		t.cashGauge.Set(v.InexactFloat64())
	}
}

func (t *Terminal) observe(op string, acct *bank.Account, e bank.Entry) {
	if e.Rejected() {
		observability.Operations.WithLabelValues(op, observability.OutcomeRejected).Inc()
		observability.Rejections.WithLabelValues(string(e.Reason)).Inc()
		t.log.Info("operation rejected",
			zap.String("operation", op),
			zap.String("account", acct.ID()),
			zap.String("reason", string(e.Reason)),
			zap.String("note", e.Note))
		return
	}
	observability.Operations.WithLabelValues(op, observability.OutcomeCompleted).Inc()
	t.log.Info("operation completed",
		zap.String("operation", op),
		zap.String("account", acct.ID()),
		zap.String("amount", bank.AmountText(e.Amount)),
		zap.Stringer("entry", e.ID))
}
