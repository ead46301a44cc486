// internal/server/response.go
//
// 統一 HTTP 回應格式與錯誤代碼映射。
// - 成功回應：JSON。
// - 工作階段錯誤：{"error": "..."}，狀態碼由 statusFor 決定。
// - 業務拒絕：422，回應本體為 Rejected 帳務紀錄。
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"atm/internal/atm"
	"atm/internal/bank"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error, code int) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeEntry 完成的操作回傳 200，被拒絕的操作回傳 422。
func writeEntry(w http.ResponseWriter, e bank.Entry) {
	code := http.StatusOK
	if e.Rejected() {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, e)
}

// statusFor 將工作階段錯誤對應到 HTTP 狀態碼。
func statusFor(err error) int {
	switch {
	case errors.Is(err, atm.ErrNotAuthenticated), errors.Is(err, atm.ErrNoCardInserted):
		return http.StatusUnauthorized
	case errors.Is(err, atm.ErrUnknownCard):
		return http.StatusNotFound
	case errors.Is(err, atm.ErrCardAlreadyInserted):
		return http.StatusConflict
	case errors.Is(err, atm.ErrTooManyAttempts):
		return http.StatusLocked
	}
	return http.StatusInternalServerError
}
