package atm

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atm/internal/bank"
	"atm/internal/observability"
)

// 指標為全域計數器，只比較操作前後的差值。
func TestTerminalMetrics(t *testing.T) {
	captures := testutil.ToFloat64(observability.CardCaptures)
	failures := testutil.ToFloat64(observability.PINFailures)
	denied := testutil.ToFloat64(observability.Operations.WithLabelValues("withdraw", observability.OutcomeDenied))
	noCash := testutil.ToFloat64(observability.Rejections.WithLabelValues(string(bank.ReasonInsufficientTerminalCash)))

	cash := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_cash_on_hand"})
	term := newTerminal(t, "100", WithCashGauge(cash))
	assert.InDelta(t, 100.0, testutil.ToFloat64(cash), 0.001)

	// 其他機台不影響此 gauge。
	other := newTerminal(t, "5000")
	login(t, other, bob)
	_, err := other.Withdraw(amt("20"))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, testutil.ToFloat64(cash), 0.001)

	require.NoError(t, term.InsertCard(alice))
	_, err = term.Withdraw(amt("10"))
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	for range DefaultPINAttempts {
		_, _ = term.EnterPIN("0000")
	}

	login(t, term, alice)
	e, err := term.Withdraw(amt("150"))
	require.NoError(t, err)
	assert.Equal(t, bank.ReasonInsufficientTerminalCash, e.Reason)
	_, err = term.Withdraw(amt("40"))
	require.NoError(t, err)

	assert.Equal(t, captures+1, testutil.ToFloat64(observability.CardCaptures))
	assert.Equal(t, failures+3, testutil.ToFloat64(observability.PINFailures))
	assert.Equal(t, denied+1, testutil.ToFloat64(observability.Operations.WithLabelValues("withdraw", observability.OutcomeDenied)))
	assert.Equal(t, noCash+1, testutil.ToFloat64(observability.Rejections.WithLabelValues(string(bank.ReasonInsufficientTerminalCash))))
	assert.InDelta(t, 60.0, testutil.ToFloat64(cash), 0.001)
}
