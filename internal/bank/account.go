// Package bank 定義核心領域模型與業務規則。
// 本檔定義 Account 與其餘額變動規則，不含任何 HTTP 或儲存細節。

package bank

import (
	"fmt"
	"math"

	"securebank/internal/storage"
)

// Account represents a bank account.
// digest 為 PIN 的加鹽雜湊，不對外公開。
type Account struct {
	ID      int64
	Name    string
	Balance int64
	digest  uint64
}

// deposit 入帳；金額需 > 0，且入帳後餘額不得超出 int64 範圍。
func (a *Account) deposit(amt int64) error {
	if amt <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrInvalidArgument)
	}
	if amt > math.MaxInt64-a.Balance {
		return fmt.Errorf("account %d: %w: balance %d cannot take %d more", a.ID, ErrInvalidArgument, a.Balance, amt)
	}
	a.Balance += amt
	return nil
}

// withdraw 扣款；餘額不得低於 0。
func (a *Account) withdraw(amt int64) error {
	if amt <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrInvalidArgument)
	}
	if a.Balance < amt {
		return fmt.Errorf("account %d: %w: balance %d, requested %d", a.ID, ErrInsufficientFunds, a.Balance, amt)
	}
	a.Balance -= amt
	return nil
}

func (a Account) record() storage.Record {
	return storage.Record{ID: a.ID, Name: a.Name, Balance: a.Balance, Digest: a.digest}
}

func fromRecord(r storage.Record) *Account {
	return &Account{ID: r.ID, Name: r.Name, Balance: r.Balance, digest: r.Digest}
}
