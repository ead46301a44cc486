package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"atm/internal/bank"
)

func open(t *testing.T, dsn string) *SQLite {
	t.Helper()
	j, err := Open(dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalMirrorsDirectory(t *testing.T) {
	j := open(t, ":memory:")
	d := bank.NewDirectory(bank.WithJournal(j))
	x, err := d.Open("111111", "1234", "Alice", bank.MustAmount("500"))
	require.NoError(t, err)
	y, err := d.Open("222222", "4321", "Bob", bank.MustAmount("1200"))
	require.NoError(t, err)

	x.Deposit(bank.MustAmount("100"))
	x.TransferOut(bank.MustAmount("150"), y)
	x.Withdraw(bank.MustAmount("10000"))

	ctx := context.Background()
	rows, err := j.Entries(ctx, "111111")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, bank.KindDeposit, rows[0].Kind)
	assert.Equal(t, "100.00", rows[0].Amount)
	assert.Equal(t, bank.KindTransferOut, rows[1].Kind)
	assert.Equal(t, "222222", rows[1].Counterparty)
	assert.Equal(t, bank.KindRejected, rows[2].Kind)
	assert.Equal(t, bank.ReasonInsufficientFunds, rows[2].Reason)

	hist := x.History()
	for i, r := range rows {
		assert.Equal(t, hist[i].ID.String(), r.ID)
	}

	rows, err = j.Entries(ctx, "222222")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, bank.KindTransferIn, rows[0].Kind)

	n, err := j.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestJournalFileSurvivesReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "journal.db")
	j := open(t, dsn)
	j.Append("1", bank.Reject(bank.ReasonInvalidAmount, "deposit amount must be positive"))
	require.NoError(t, j.Close())

	j2 := open(t, dsn)
	n, err := j2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDuplicateEntryIsLoggedNotFatal(t *testing.T) {
	j := open(t, ":memory:")
	e := bank.Reject(bank.ReasonSameAccount, "cannot transfer to the same account")

	j.Append("1", e)
	j.Append("1", e)

	n, err := j.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
