// internal/server/router.go
//
// 本檔負責 HTTP 路由註冊與中介層。
// handler.go 定義「如何處理請求」，router.go 定義「請求如何被導向」。
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router 建立並回傳整個 HTTP 處理鏈。
// 所有端點同時掛在 /api/v1 與根路徑下。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.health)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", s.routes)
	s.routes(r)

	return r
}

// routes 註冊機台操作：
//
//	POST   /card           → 插卡 {number}
//	DELETE /card           → 退卡
//	POST   /pin            → 輸入密碼 {pin}
//	GET    /balance        → 查詢餘額
//	POST   /deposit        → 存款 {amount}
//	POST   /withdraw       → 提款 {amount}
//	POST   /transfer       → 轉帳 {to, amount}
//	GET    /transactions   → 最近交易 ?limit=N
//	GET    /terminal       → 機台狀態
func (s *Server) routes(r chi.Router) {
	r.Post("/card", s.insertCard)
	r.Delete("/card", s.ejectCard)
	r.Post("/pin", s.enterPIN)
	r.Get("/balance", s.balance)
	r.Post("/deposit", s.deposit)
	r.Post("/withdraw", s.withdraw)
	r.Post("/transfer", s.transfer)
	r.Get("/transactions", s.transactions)
	r.Get("/terminal", s.status)
}

// requestLogger 以 zap 記錄每個請求的方法、路徑、狀態碼與耗時。
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
