// internal/bank/bank.go

// Package bank 定義核心商業邏輯：開戶、查詢、存款、提款、轉帳、改名與列出帳戶。
// 採用單一互斥鎖 (sync.Mutex) 保障所有狀態變更「原子且序列化」，
// 鎖同時涵蓋記憶體異動與整份快照的寫入，兩個異動不會交錯寫檔。
// 金額以 int64 的最小貨幣單位（如分）儲存，避免浮點誤差。
package bank

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"securebank/internal/events"
	"securebank/internal/log"
	"securebank/internal/storage"
)

// DefaultFirstID 為第一個帳戶的編號。
const DefaultFirstID int64 = 1001

const publishTimeout = 5 * time.Second

// Store 為持久化層需提供的介面：整份載入、整份保存。
type Store interface {
	Load() ([]storage.Record, error)
	Save(records []storage.Record) error
}

// Options 為 Bank 的外部設定；salt 與 logger 皆由呼叫端注入，不使用全域狀態。
type Options struct {
	// Salt 為全行程共用的 PIN 雜湊鹽值。
	Salt string
	// FirstID 為帳戶編號下限，0 表示 DefaultFirstID。
	FirstID int64
	// Publisher 可為 nil；非 nil 時於每次成功異動後發送事件。
	Publisher events.Publisher
	Logger    *log.Logger
}

// Bank 為聚合根 (Aggregate Root)：管理全系統帳戶。
// - mu：序列化所有讀寫與寫檔，確保跨帳戶操作（轉帳）原子完成。
// - nextID：下一個可用帳戶編號，只在快照成功寫入後前進。
// - accts：帳戶索引表（ID → *Account），內部指標只在臨界區內修改。
type Bank struct {
	mu     sync.Mutex
	nextID int64
	accts  map[int64]*Account

	store Store
	salt  string
	pub   events.Publisher
	log   *log.Logger
}

// New 由 store 載入既有帳戶並建立 Bank。
// 載入失敗、重複 ID 或負餘額皆回傳 PersistenceError，呼叫端應視為致命錯誤。
func New(store Store, opts Options) (*Bank, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	first := opts.FirstID
	if first <= 0 {
		first = DefaultFirstID
	}
	b := &Bank{
		nextID: first,
		accts:  make(map[int64]*Account),
		store:  store,
		salt:   opts.Salt,
		pub:    opts.Publisher,
		log:    logger.WithComponent(log.ComponentBank),
	}

	recs, err := store.Load()
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if _, dup := b.accts[r.ID]; dup {
			return nil, &storage.PersistenceError{Op: log.OpLoad, Err: fmt.Errorf("%w: duplicate account id %d", storage.ErrMalformedRecord, r.ID)}
		}
		if r.ID <= 0 || r.Balance < 0 {
			return nil, &storage.PersistenceError{Op: log.OpLoad, Err: fmt.Errorf("%w: account %d has id/balance out of range", storage.ErrMalformedRecord, r.ID)}
		}
		b.accts[r.ID] = fromRecord(r)
		b.nextID = max(b.nextID, r.ID+1)
	}
	b.log.Info("ledger loaded", log.FieldRecords, len(b.accts))
	return b, nil
}

// Open 以名稱、PIN 與初始金額開戶，回傳新帳戶編號。
// 快照寫入失敗時帳戶不會出現在記憶體中，編號也不會被消耗。
func (b *Bank) Open(name, pin string, initial int64) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: name required", ErrInvalidArgument)
	}
	if len(pin) < MinPINLength {
		return 0, fmt.Errorf("%w: PIN must be at least %d characters", ErrInvalidArgument, MinPINLength)
	}
	if initial < 0 {
		return 0, fmt.Errorf("%w: initial deposit cannot be negative", ErrInvalidArgument)
	}

	var id int64
	err := b.mutate(func() (events.Event, error) {
		id = b.nextID
		a := Account{ID: id, Name: name, Balance: initial, digest: digestPIN(pin, b.salt)}
		if err := b.commit(&a); err != nil {
			return events.Event{}, err
		}
		b.nextID++
		return events.New(events.AccountOpened, id, 0, initial), nil
	})
	if err != nil {
		return 0, err
	}
	b.log.Info("account opened", log.FieldOperation, log.OpOpen, log.FieldAccountID, id)
	return id, nil
}

// Balance 驗證 PIN 後回傳餘額；不異動、不寫檔。
func (b *Bank) Balance(id int64, pin string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.authenticate(id, pin)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// Deposit 存款：金額需 > 0。存款不需要 PIN，與提款、轉帳不同。
func (b *Bank) Deposit(id, amt int64) error {
	if amt <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrInvalidArgument)
	}
	return b.mutate(func() (events.Event, error) {
		cur, err := b.lookup(id)
		if err != nil {
			return events.Event{}, err
		}
		next := *cur
		if err := next.deposit(amt); err != nil {
			return events.Event{}, err
		}
		if err := b.commit(&next); err != nil {
			return events.Event{}, err
		}
		b.log.Debug("deposit", log.FieldAccountID, id, log.FieldAmount, amt)
		return events.New(events.AccountDeposited, id, 0, amt), nil
	})
}

// Withdraw 提款：驗證 PIN，金額需 > 0 且不得超過餘額。
func (b *Bank) Withdraw(id int64, pin string, amt int64) error {
	if amt <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrInvalidArgument)
	}
	return b.mutate(func() (events.Event, error) {
		cur, err := b.authenticate(id, pin)
		if err != nil {
			return events.Event{}, err
		}
		next := *cur
		if err := next.withdraw(amt); err != nil {
			return events.Event{}, err
		}
		if err := b.commit(&next); err != nil {
			return events.Event{}, err
		}
		b.log.Debug("withdraw", log.FieldAccountID, id, log.FieldAmount, amt)
		return events.New(events.AccountWithdrawn, id, 0, amt), nil
	})
}

// Transfer 轉帳為「單一臨界區內」的原子操作：
// 1) 檢核參數與雙方帳戶 → 2) 驗證轉出方 PIN → 3) 在複本上扣款與入帳 → 4) 寫入一次快照 → 5) 提交。
// 任一步驟失敗皆不會改變任何帳戶狀態。
func (b *Bank) Transfer(fromID int64, pin string, toID, amt int64) error {
	if fromID == toID {
		return fmt.Errorf("%w: cannot transfer to the same account", ErrInvalidArgument)
	}
	if amt <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrInvalidArgument)
	}
	return b.mutate(func() (events.Event, error) {
		if _, ok := b.accts[fromID]; !ok {
			return events.Event{}, fmt.Errorf("from account %d: %w", fromID, ErrAccountNotFound)
		}
		to, ok := b.accts[toID]
		if !ok {
			return events.Event{}, fmt.Errorf("to account %d: %w", toID, ErrAccountNotFound)
		}
		from, err := b.authenticate(fromID, pin)
		if err != nil {
			return events.Event{}, err
		}

		nextFrom, nextTo := *from, *to
		if err := nextFrom.withdraw(amt); err != nil {
			return events.Event{}, err
		}
		if err := nextTo.deposit(amt); err != nil {
			return events.Event{}, err
		}
		if err := b.commit(&nextFrom, &nextTo); err != nil {
			return events.Event{}, err
		}
		b.log.Debug("transfer", log.FieldAccountID, fromID, log.FieldCounterID, toID, log.FieldAmount, amt)
		return events.New(events.AccountTransferred, fromID, toID, amt), nil
	})
}

// Rename 驗證 PIN 後變更帳戶名稱。
func (b *Bank) Rename(id int64, pin, name string) error {
	if name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidArgument)
	}
	return b.mutate(func() (events.Event, error) {
		cur, err := b.authenticate(id, pin)
		if err != nil {
			return events.Event{}, err
		}
		next := *cur
		next.Name = name
		if err := b.commit(&next); err != nil {
			return events.Event{}, err
		}
		return events.New(events.AccountRenamed, id, 0, 0), nil
	})
}

// List 回傳依 ID 遞增排序的帳戶值拷貝；不暴露內部指標。
func (b *Bank) List() []Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Account, 0, len(b.accts))
	for _, id := range slices.Sorted(maps.Keys(b.accts)) {
		out = append(out, *b.accts[id])
	}
	return out
}

// mutate 在鎖內執行 fn，解鎖後才發送事件，避免外部中介拖慢臨界區。
func (b *Bank) mutate(fn func() (events.Event, error)) error {
	ev, err := func() (events.Event, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return fn()
	}()
	if err != nil {
		return err
	}
	b.publish(ev)
	return nil
}

// commit 以「先寫檔、後提交」的順序套用變更：
// 先組出包含 changed 的完整快照並保存，成功後才寫回記憶體。
// 呼叫端必須持有 b.mu。
func (b *Bank) commit(changed ...*Account) error {
	overrides := make(map[int64]*Account, len(changed))
	for _, a := range changed {
		overrides[a.ID] = a
	}
	ids := slices.Collect(maps.Keys(b.accts))
	for id := range overrides {
		if _, ok := b.accts[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	recs := make([]storage.Record, 0, len(ids))
	for _, id := range ids {
		a, ok := overrides[id]
		if !ok {
			a = b.accts[id]
		}
		recs = append(recs, a.record())
	}
	if err := b.store.Save(recs); err != nil {
		b.log.Error("snapshot save failed, change discarded", log.FieldOperation, log.OpSave, log.FieldError, err)
		return err
	}
	for id, a := range overrides {
		cp := *a
		b.accts[id] = &cp
	}
	return nil
}

// lookup 呼叫端必須持有 b.mu。
func (b *Bank) lookup(id int64) (*Account, error) {
	a, ok := b.accts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	return a, nil
}

// authenticate 呼叫端必須持有 b.mu。
func (b *Bank) authenticate(id int64, pin string) (*Account, error) {
	a, err := b.lookup(id)
	if err != nil {
		return nil, err
	}
	if digestPIN(pin, b.salt) != a.digest {
		return nil, fmt.Errorf("account %d: %w", id, ErrAuthentication)
	}
	return a, nil
}

func (b *Bank) publish(ev events.Event) {
	if b.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.pub.Publish(ctx, ev); err != nil {
		b.log.Warn("event publish failed", log.FieldOperation, log.OpPublish,
			log.FieldEventID, ev.ID, log.FieldAccountID, ev.AccountID, log.FieldError, err)
	}
}
