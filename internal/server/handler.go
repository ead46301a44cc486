// internal/server/handler.go
//
// Package server 提供 HTTP 介面，作為機台 (atm.Terminal) 的傳輸層。
// 每個 handler 只負責：
//  1. 解析與驗證請求
//  2. 呼叫機台執行操作
//  3. 回傳標準化 JSON 回應
//
// 工作階段狀態與帳務規則全部留在 atm / bank 層。
package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"atm/internal/atm"
	"atm/internal/bank"
)

// Server 為 HTTP 層核心結構。
type Server struct {
	Terminal       *atm.Terminal
	log            *zap.Logger
	metricsEnabled bool
}

// NewServer 建立 HTTP 伺服器；log 可為 nil。
func NewServer(t *atm.Terminal, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Terminal: t, log: log}
}

// EnableMetrics 啟用 /metrics Prometheus 端點。
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// cardRequest 只帶卡號；密碼一律經 POST /pin 輸入。
type cardRequest struct {
	Number string `json:"number"`
}

type pinRequest struct {
	PIN string `json:"pin"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// terminalStatus 為 GET /terminal 的回應。
type terminalStatus struct {
	State             string   `json:"state"`
	CashOnHand        string   `json:"cash_on_hand"`
	AttemptsRemaining int      `json:"attempts_remaining"`
	Card              string   `json:"card,omitempty"`
	Captured          []string `json:"captured"`
}

// maxBodyBytes 限制請求本體大小。
const maxBodyBytes = 1 << 16

// decode 解析 JSON 請求本體；失敗時已寫出 400。
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return false
	}
	return true
}

// decodeAmount 與 decode 相同，並拒絕超出範圍或超過兩位小數的金額（400）。
// 正負檢核留給帳戶，以 Rejected 紀錄回應。
func decodeAmount(w http.ResponseWriter, r *http.Request, v any, amount *decimal.Decimal) bool {
	if !decode(w, r, v) {
		return false
	}
	if err := bank.CheckRange(*amount); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return false
	}
	return true
}

// insertCard 處理 POST /card。
func (s *Server) insertCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.Terminal.InsertCard(bank.Card{Number: req.Number}); err != nil {
		writeErr(w, err, statusFor(err))
		return
	}
	s.status(w, r)
}

// ejectCard 處理 DELETE /card。
func (s *Server) ejectCard(w http.ResponseWriter, r *http.Request) {
	if err := s.Terminal.EjectCard(); err != nil {
		writeErr(w, err, statusFor(err))
		return
	}
	s.status(w, r)
}

// enterPIN 處理 POST /pin。密碼錯誤但仍有次數時回傳 401。
func (s *Server) enterPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if !decode(w, r, &req) {
		return
	}
	ok, err := s.Terminal.EnterPIN(req.PIN)
	if err != nil {
		writeErr(w, err, statusFor(err))
		return
	}
	code := http.StatusOK
	if !ok {
		code = http.StatusUnauthorized
	}
	writeJSON(w, code, map[string]any{
		"authenticated":      ok,
		"attempts_remaining": s.Terminal.AttemptsRemaining(),
	})
}

// balance 處理 GET /balance。
func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.Terminal.CheckBalance()
	if err != nil {
		writeErr(w, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": bank.AmountText(bal)})
}

// deposit 處理 POST /deposit。
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeAmount(w, r, &req, &req.Amount) {
		return
	}
	e, err := s.Terminal.Deposit(req.Amount)
	if err != nil {
		writeErr(w, err, statusFor(err))
		return
	}
	writeEntry(w, e)
}

// withdraw 處理 POST /withdraw。
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeAmount(w, r, &req, &req.Amount) {
		return
	}
	e, err := s.Terminal.Withdraw(req.Amount)
	if err != nil {
		writeErr(w, err, statusFor(err))
		return
	}
	writeEntry(w, e)
}

// transfer 處理 POST /transfer：JSON {to, amount}。
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeAmount(w, r, &req, &req.Amount) {
		return
	}
	e, err := s.Terminal.Transfer(req.Amount, req.To)
	if err != nil {
		writeErr(w, err, statusFor(err))
		return
	}
	writeEntry(w, e)
}

// transactions 處理 GET /transactions?limit=N（預設 10）。
func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeErr(w, err, http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.Terminal.RecentTransactions(limit)
	if err != nil {
		writeErr(w, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// status 處理 GET /terminal。
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st := terminalStatus{
		State:             s.Terminal.State().String(),
		CashOnHand:        bank.AmountText(s.Terminal.CashOnHand()),
		AttemptsRemaining: s.Terminal.AttemptsRemaining(),
		Captured:          s.Terminal.Captured(),
	}
	if c, ok := s.Terminal.Card(); ok {
		st.Card = c.Number
	}
	if st.Captured == nil {
		st.Captured = []string{}
	}
	writeJSON(w, http.StatusOK, st)
}

// health 提供健康檢查：GET /health，並回報帳本重播驗證結果。
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.Terminal.Directory().Reconcile(); err != nil {
		s.log.Error("ledger reconciliation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "degraded",
			"ledger": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "ledger": "consistent"})
}
