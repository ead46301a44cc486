// internal/bank/errors.go
//
// 本檔集中定義「業務規則拒絕（business-rule rejections）」。
// 這些錯誤不會以 error 回傳給呼叫端，而是寫入一筆 Rejected 帳務紀錄，
// 呼叫端可透過 Entry.Err() 以 errors.Is 判斷拒絕原因。
// 上層 HTTP handler 會將 Rejected 紀錄轉為 422 回應。

package bank

import "errors"

var (
	// ErrInvalidAmount 代表金額非法：<= 0、超過上限或超過兩位小數。
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds 代表帳戶餘額不足，提款或轉帳失敗。
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccount 代表轉帳來源與目標帳戶相同。
	ErrSameAccount = errors.New("cannot transfer to the same account")

	// ErrDestinationNotFound 代表轉帳目標帳戶不存在。
	ErrDestinationNotFound = errors.New("destination account not found")

	// ErrInsufficientTerminalCash 代表機台現金不足以支付提款。
	// 此拒絕發生在機台層，不會寫入帳戶歷史。
	ErrInsufficientTerminalCash = errors.New("terminal does not have enough cash")

	// ErrDuplicateAccount 代表目錄中已存在相同帳號。
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrNegativeOpening 代表開戶餘額為負。
	ErrNegativeOpening = errors.New("opening balance cannot be negative")
)
