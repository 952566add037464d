// Package events 定義帳戶異動事件，以及將事件送往訊息中介的 Publisher。
// 事件只在快照成功寫入之後發送，發送失敗不影響已完成的操作。
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type 為事件種類。
type Type string

const (
	AccountOpened      Type = "account.opened"
	AccountDeposited   Type = "account.deposited"
	AccountWithdrawn   Type = "account.withdrawn"
	AccountTransferred Type = "account.transferred"
	AccountRenamed     Type = "account.renamed"
)

// Event 為單一帳戶異動。Amount 以最小貨幣單位表示。
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	AccountID  int64     `json:"account_id"`
	CounterID  int64     `json:"counter_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New 建立帶有唯一 ID 與時間戳的事件。
func New(typ Type, accountID, counterID, amount int64) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		AccountID:  accountID,
		CounterID:  counterID,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON 序列化事件。
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON 反序列化事件。
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher 將事件送往外部系統。
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}
