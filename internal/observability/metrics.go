// Package observability 定義機台的 Prometheus 指標。
// 指標以 promauto 註冊於預設 registry，由 server 的 /metrics 端點輸出。
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome 標籤值。
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
	OutcomeDenied    = "denied"
)

// ─── Session ────────────────────────────────────────────────────────────────

// SessionEvents 記錄卡片插入、驗證成功、退卡等狀態轉換。
var SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "atm",
	Subsystem: "session",
	Name:      "events_total",
	Help:      "Session state transitions by event.",
}, []string{"event"})

// PINFailures 記錄密碼錯誤次數。
var PINFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "atm",
	Subsystem: "session",
	Name:      "pin_failures_total",
	Help:      "Total wrong PIN entries.",
})

// CardCaptures 記錄因密碼錯誤過多而沒收的卡片數。
var CardCaptures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "atm",
	Subsystem: "session",
	Name:      "card_captures_total",
	Help:      "Total cards captured after exhausting PIN attempts.",
})

// ─── Ledger ─────────────────────────────────────────────────────────────────

// Operations 依操作與結果分類計數。
// outcome: completed | rejected（業務拒絕）| denied（未驗證）。
var Operations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "atm",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Terminal operations by operation and outcome.",
}, []string{"operation", "outcome"})

// Rejections 依拒絕原因計數。
var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "atm",
	Subsystem: "ledger",
	Name:      "rejections_total",
	Help:      "Rejected operations by reason.",
}, []string{"reason"})

// CashOnHand 為 process 內唯一機台的現金存量，由 atm.WithCashGauge 接上。
// 其餘計數器為 process 內所有機台的合計。
var CashOnHand = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "atm",
	Subsystem: "terminal",
	Name:      "cash_on_hand",
	Help:      "Physical cash currently held by the terminal.",
})

// JournalErrors 記錄稽核日誌寫入失敗次數。
var JournalErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "atm",
	Subsystem: "journal",
	Name:      "write_errors_total",
	Help:      "Ledger entries that could not be mirrored into the audit journal.",
})
