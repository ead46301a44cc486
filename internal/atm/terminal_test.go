package atm

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"atm/internal/bank"
)

var (
	alice = bank.Card{Number: "111111", PIN: "1234", Holder: "Alice"}
	bob   = bank.Card{Number: "222222", PIN: "4321", Holder: "Bob"}
)

func amt(s string) decimal.Decimal { return bank.MustAmount(s) }

func newTerminal(t *testing.T, cash string, opts ...Option) *Terminal {
	t.Helper()
	d := bank.NewDirectory()
	_, err := d.Open("111111", "1234", "Alice", amt("500.00"))
	require.NoError(t, err)
	_, err = d.Open("222222", "4321", "Bob", amt("1200.00"))
	require.NoError(t, err)
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return New(d, amt(cash), opts...)
}

func login(t *testing.T, term *Terminal, c bank.Card) {
	t.Helper()
	require.NoError(t, term.InsertCard(c))
	ok, err := term.EnterPIN(c.PIN)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Authenticated, term.State())
}

func balance(t *testing.T, term *Terminal, id string) string {
	t.Helper()
	a, ok := term.Directory().Get(id)
	require.True(t, ok)
	return a.Balance().StringFixed(2)
}

func TestSessionLifecycle(t *testing.T) {
	term := newTerminal(t, "2500")
	assert.Equal(t, Idle, term.State())

	require.NoError(t, term.InsertCard(alice))
	assert.Equal(t, CardInserted, term.State())
	assert.ErrorIs(t, term.InsertCard(bob), ErrCardAlreadyInserted)

	card, ok := term.Card()
	require.True(t, ok)
	assert.Equal(t, "111111", card.Number)

	ok, err := term.EnterPIN("1234")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Authenticated, term.State())
	assert.ErrorIs(t, term.InsertCard(bob), ErrCardAlreadyInserted)

	// 已驗證狀態下仍可再次輸入密碼。
	ok, err = term.EnterPIN("1234")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, term.EjectCard())
	assert.Equal(t, Idle, term.State())
	_, ok = term.Card()
	assert.False(t, ok)
	assert.ErrorIs(t, term.EjectCard(), ErrNoCardInserted)
}

func TestInsertUnknownCard(t *testing.T) {
	term := newTerminal(t, "2500")

	err := term.InsertCard(bank.Card{Number: "999999"})

	assert.ErrorIs(t, err, ErrUnknownCard)
	assert.Equal(t, Idle, term.State())
}

func TestIdleGuards(t *testing.T) {
	term := newTerminal(t, "2500")

	_, err := term.EnterPIN("1234")
	assert.ErrorIs(t, err, ErrNoCardInserted)
	assert.ErrorIs(t, term.EjectCard(), ErrNoCardInserted)
}

// 未驗證時所有帳務操作都必須回傳 ErrNotAuthenticated，且不影響任何狀態。
func TestOperationsRequireAuthentication(t *testing.T) {
	for _, inserted := range []bool{false, true} {
		term := newTerminal(t, "2500")
		if inserted {
			require.NoError(t, term.InsertCard(alice))
		}

		_, err := term.CheckBalance()
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		_, err = term.Deposit(amt("10"))
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		_, err = term.Withdraw(amt("10"))
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		_, err = term.Transfer(amt("10"), "222222")
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		_, err = term.RecentTransactions(10)
		assert.ErrorIs(t, err, ErrNotAuthenticated)

		assert.Equal(t, "2500.00", term.CashOnHand().StringFixed(2))
		assert.Equal(t, "500.00", balance(t, term, "111111"))
		a, _ := term.Directory().Get("111111")
		assert.Empty(t, a.History())
	}
}

// 驗證狀態不會在退卡後殘留。
func TestAuthenticationNotCachedAcrossEject(t *testing.T) {
	term := newTerminal(t, "2500")
	login(t, term, alice)
	require.NoError(t, term.EjectCard())

	_, err := term.CheckBalance()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, term.InsertCard(alice))
	_, err = term.CheckBalance()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestPINLockout(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	term := newTerminal(t, "2500", WithLogger(zap.New(core)))
	require.NoError(t, term.InsertCard(alice))

	ok, err := term.EnterPIN("0000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, term.AttemptsRemaining())
	assert.Equal(t, CardInserted, term.State())

	ok, err = term.EnterPIN("0001")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, term.AttemptsRemaining())

	ok, err = term.EnterPIN("0002")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, Idle, term.State())
	assert.Equal(t, []string{"111111"}, term.Captured())
	assert.Equal(t, DefaultPINAttempts, term.AttemptsRemaining())

	// 沒收後需重新插卡；機台不記住被沒收的卡片。
	_, err = term.EnterPIN("1234")
	assert.ErrorIs(t, err, ErrNoCardInserted)
	login(t, term, alice)

	assert.Equal(t, 1, logs.FilterMessage("card captured").Len())
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			assert.NotContains(t, strings.ToLower(f.Key), "pin")
		}
	}
}

func TestCorrectPINResetsAttempts(t *testing.T) {
	for wrong := 0; wrong < DefaultPINAttempts; wrong++ {
		term := newTerminal(t, "2500")
		require.NoError(t, term.InsertCard(alice))
		for i := 0; i < wrong; i++ {
			ok, err := term.EnterPIN("bad")
			require.NoError(t, err)
			require.False(t, ok)
		}

		ok, err := term.EnterPIN("1234")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, DefaultPINAttempts, term.AttemptsRemaining())
		assert.Equal(t, Authenticated, term.State())
	}
}

func TestWrongPINWhileAuthenticatedCountsDown(t *testing.T) {
	term := newTerminal(t, "2500", WithPINAttempts(2))
	login(t, term, alice)

	ok, err := term.EnterPIN("bad")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Authenticated, term.State())

	_, err = term.EnterPIN("bad")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, Idle, term.State())
}

func TestPINComparedAgainstAccount(t *testing.T) {
	term := newTerminal(t, "2500")
	require.NoError(t, term.InsertCard(bank.Card{Number: "111111", PIN: "9999"}))

	ok, err := term.EnterPIN("9999")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = term.EnterPIN("1234")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCardIndirection(t *testing.T) {
	term := newTerminal(t, "2500")
	require.NoError(t, term.Directory().IssueCard("4000-0002", "222222"))

	login(t, term, bank.Card{Number: "4000-0002", PIN: "4321"})
	bal, err := term.CheckBalance()
	require.NoError(t, err)
	assert.Equal(t, "1200.00", bal.StringFixed(2))
}

// 帳戶 111111 餘額 500 → 存 100 → 600，一筆 Deposit 紀錄。
func TestDepositScenario(t *testing.T) {
	term := newTerminal(t, "2500")
	login(t, term, alice)

	e, err := term.Deposit(amt("100.00"))
	require.NoError(t, err)
	assert.Equal(t, bank.KindDeposit, e.Kind)
	assert.Equal(t, "100.00", e.Amount.StringFixed(2))
	assert.Equal(t, "600.00", balance(t, term, "111111"))
	assert.Equal(t, "2600.00", term.CashOnHand().StringFixed(2))

	h, err := term.RecentTransactions(10)
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, bank.KindDeposit, h[0].Kind)
}

func TestRejectedDepositLeavesCash(t *testing.T) {
	term := newTerminal(t, "2500")
	login(t, term, alice)

	for _, s := range []string{"0", "-20"} {
		e, err := term.Deposit(amt(s))
		require.NoError(t, err)
		assert.ErrorIs(t, e.Err(), bank.ErrInvalidAmount)
	}
	assert.Equal(t, "2500.00", term.CashOnHand().StringFixed(2))
	assert.Equal(t, "500.00", balance(t, term, "111111"))
}

// 餘額 500 → 提 1000 → InsufficientFunds，餘額與機台現金不變。
func TestWithdrawInsufficientFunds(t *testing.T) {
	term := newTerminal(t, "2500")
	login(t, term, alice)

	e, err := term.Withdraw(amt("1000.00"))
	require.NoError(t, err)
	assert.True(t, e.Rejected())
	assert.ErrorIs(t, e.Err(), bank.ErrInsufficientFunds)
	assert.Equal(t, "500.00", balance(t, term, "111111"))
	assert.Equal(t, "2500.00", term.CashOnHand().StringFixed(2))
}

// 機台現金 2500 → 提 3000 → InsufficientTerminalCash，帳戶與現金皆不變。
func TestWithdrawInsufficientTerminalCash(t *testing.T) {
	term := newTerminal(t, "2500")
	login(t, term, bob)
	a, _ := term.Directory().Get("222222")
	before := len(a.History())

	e, err := term.Withdraw(amt("3000.00"))
	require.NoError(t, err)
	assert.True(t, e.Rejected())
	assert.ErrorIs(t, e.Err(), bank.ErrInsufficientTerminalCash)
	assert.Equal(t, "1200.00", balance(t, term, "222222"))
	assert.Equal(t, "2500.00", term.CashOnHand().StringFixed(2))
	assert.Len(t, a.History(), before, "terminal-level rejection must not touch the account")
}

func TestWithdrawReducesCash(t *testing.T) {
	term := newTerminal(t, "2500")
	login(t, term, bob)

	e, err := term.Withdraw(amt("200.00"))
	require.NoError(t, err)
	assert.Equal(t, bank.KindWithdrawal, e.Kind)
	assert.Equal(t, "1000.00", balance(t, term, "222222"))
	assert.Equal(t, "2300.00", term.CashOnHand().StringFixed(2))

	e, err = term.Withdraw(amt("-5"))
	require.NoError(t, err)
	assert.ErrorIs(t, e.Err(), bank.ErrInvalidAmount)
	assert.Equal(t, "2300.00", term.CashOnHand().StringFixed(2))
}

// X=500, Y=1200，轉 150 → X=350, Y=1350。
func TestTransferScenario(t *testing.T) {
	term := newTerminal(t, "2500")
	login(t, term, alice)
	total := term.Directory().Total()

	e, err := term.Transfer(amt("150.00"), "222222")
	require.NoError(t, err)
	assert.Equal(t, bank.KindTransferOut, e.Kind)
	assert.Equal(t, "to 222222", e.Note)
	assert.Equal(t, "350.00", balance(t, term, "111111"))
	assert.Equal(t, "1350.00", balance(t, term, "222222"))
	assert.True(t, total.Equal(term.Directory().Total()))
	assert.Equal(t, "2500.00", term.CashOnHand().StringFixed(2))

	y, _ := term.Directory().Get("222222")
	yh := y.History()
	require.Len(t, yh, 1)
	assert.Equal(t, bank.KindTransferIn, yh[0].Kind)
	assert.Equal(t, "from 111111", yh[0].Note)
}

func TestTransferRejections(t *testing.T) {
	term := newTerminal(t, "2500")
	login(t, term, alice)

	e, err := term.Transfer(amt("10"), "nope")
	require.NoError(t, err)
	assert.ErrorIs(t, e.Err(), bank.ErrDestinationNotFound)

	e, err = term.Transfer(amt("10"), "111111")
	require.NoError(t, err)
	assert.ErrorIs(t, e.Err(), bank.ErrSameAccount)

	e, err = term.Transfer(amt("10000"), "222222")
	require.NoError(t, err)
	assert.ErrorIs(t, e.Err(), bank.ErrInsufficientFunds)

	h, err := term.RecentTransactions(10)
	require.NoError(t, err)
	require.Len(t, h, 3)
	for _, e := range h {
		assert.True(t, e.Rejected())
	}
	assert.Equal(t, "500.00", balance(t, term, "111111"))
	assert.Equal(t, "1200.00", balance(t, term, "222222"))
}

func TestRecentTransactions(t *testing.T) {
	term := newTerminal(t, "2500")
	login(t, term, alice)

	_, _ = term.Deposit(amt("1"))
	_, _ = term.Withdraw(amt("2"))
	_, _ = term.CheckBalance()

	h, err := term.RecentTransactions(2)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, bank.KindWithdrawal, h[0].Kind)
	assert.Equal(t, bank.KindBalanceInquiry, h[1].Kind)

	h, err = term.RecentTransactions(100)
	require.NoError(t, err)
	assert.Len(t, h, 3)
}

func TestCheckBalanceRecordsInquiry(t *testing.T) {
	term := newTerminal(t, "2500")
	login(t, term, alice)

	bal, err := term.CheckBalance()
	require.NoError(t, err)
	assert.Equal(t, "500.00", bal.StringFixed(2))

	h, _ := term.RecentTransactions(1)
	require.Len(t, h, 1)
	assert.Equal(t, bank.KindBalanceInquiry, h[0].Kind)
}

// 極端指數與超過兩位小數的金額：帳戶記錄 InvalidAmount，機台現金不動。
func TestOutOfRangeAmountsLeaveCash(t *testing.T) {
	for _, s := range []string{"0.005", "1e50000000", "1e1000000000", "1e-1000000000", "1000000000000.01"} {
		t.Run(s, func(t *testing.T) {
			term := newTerminal(t, "2500")
			login(t, term, alice)
			v := decimal.RequireFromString(s)

			for name, op := range map[string]func(decimal.Decimal) (bank.Entry, error){
				"deposit":  term.Deposit,
				"withdraw": term.Withdraw,
				"transfer": func(d decimal.Decimal) (bank.Entry, error) { return term.Transfer(d, "222222") },
			} {
				e, err := op(v)
				require.NoError(t, err, name)
				assert.True(t, e.Rejected(), name)
				assert.ErrorIs(t, e.Err(), bank.ErrInvalidAmount, name)
			}
			assert.Equal(t, "2500.00", term.CashOnHand().StringFixed(2))
			assert.Equal(t, "500.00", balance(t, term, "111111"))
			assert.Equal(t, "1200.00", balance(t, term, "222222"))

			entries, err := term.RecentTransactions(10)
			require.NoError(t, err)
			assert.Len(t, entries, 3, "each rejection is recorded on the account")
			assert.NoError(t, bank.VerifyStatement(term.Directory().Statement()))
		})
	}
}
