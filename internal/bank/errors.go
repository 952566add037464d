// internal/bank/errors.go
//
// 本檔集中定義「領域錯誤（domain errors）」。
// 各操作以 fmt.Errorf("...: %w") 包裝，訊息帶有帳戶與規則，呼叫端以 errors.Is 判斷類別。

package bank

import (
	"errors"

	"securebank/internal/storage"
)

var (
	// ErrInvalidArgument 代表呼叫端輸入不合法（空名稱、PIN 過短、金額 <= 0 等）。
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAccountNotFound 代表帳戶不存在。
	ErrAccountNotFound = errors.New("account not found")

	// ErrAuthentication 代表 PIN 不符。
	ErrAuthentication = errors.New("invalid PIN")

	// ErrInsufficientFunds 代表餘額不足，提款或轉帳失敗。
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPersistence 代表快照未能寫入；此時記憶體狀態維持在操作之前。
	ErrPersistence = storage.ErrPersistence
)
