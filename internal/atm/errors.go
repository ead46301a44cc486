// internal/atm/errors.go
//
// 機台層的「工作階段錯誤（session-state errors）」。
// 這些錯誤代表呼叫順序錯誤，會直接回傳給呼叫端，機台不會自動重試。
// 業務規則的拒絕（金額、餘額、現金不足等）不在此列，見 bank.Reason。

package atm

import "errors"

var (
	// ErrCardAlreadyInserted 代表機台內已有卡片。
	ErrCardAlreadyInserted = errors.New("a card is already inserted")

	// ErrUnknownCard 代表卡片無法對應到任何帳戶。
	ErrUnknownCard = errors.New("unknown card")

	// ErrNoCardInserted 代表機台內沒有卡片。
	ErrNoCardInserted = errors.New("no card inserted")

	// ErrNotAuthenticated 代表尚未通過密碼驗證。
	ErrNotAuthenticated = errors.New("not authenticated: insert card and enter PIN")

	// ErrTooManyAttempts 代表密碼錯誤次數用盡，卡片已被沒收。
	// 需重新插卡才能開始新的工作階段。
	ErrTooManyAttempts = errors.New("too many wrong PIN attempts: card captured")
)
