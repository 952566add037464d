// internal/bank/bank_test.go
//
// 本檔為 Bank 模組的單元與整合測試。
// 覆蓋開戶、查詢、存提款、轉帳、PIN 驗證、寫檔失敗、並發安全與重新載入。

package bank

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securebank/internal/cipher"
	"securebank/internal/events"
	"securebank/internal/storage"
)

const testSalt = "test-salt"

func newBank(t *testing.T, store Store) *Bank {
	t.Helper()
	b, err := New(store, Options{Salt: testSalt})
	require.NoError(t, err)
	return b
}

func newFileBank(t *testing.T, path string) *Bank {
	t.Helper()
	return newBank(t, storage.NewFileStore(path, cipher.Derive([]byte("k")), nil))
}

// balance 為小工具：以 PIN 取出餘額，失敗立即讓測試失敗。
func balance(t *testing.T, b *Bank, id int64, pin string) int64 {
	t.Helper()
	bal, err := b.Balance(id, pin)
	require.NoError(t, err, "Balance(%d)", id)
	return bal
}

func open(t *testing.T, b *Bank, name, pin string, initial int64) int64 {
	t.Helper()
	id, err := b.Open(name, pin, initial)
	require.NoError(t, err)
	return id
}

// TestAliceScenario 依序驗證開戶、查詢、存款、提光與餘額不足。
func TestAliceScenario(t *testing.T) {
	b := newBank(t, storage.NewMemoryStore())

	id := open(t, b, "Alice", "1234", 100000)
	assert.Equal(t, int64(1001), id)
	assert.Equal(t, int64(100000), balance(t, b, id, "1234"))

	require.NoError(t, b.Deposit(id, 5000))
	assert.Equal(t, int64(105000), balance(t, b, id, "1234"))

	require.NoError(t, b.Withdraw(id, "1234", 105000))
	assert.Equal(t, int64(0), balance(t, b, id, "1234"))

	err := b.Withdraw(id, "1234", 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(0), balance(t, b, id, "1234"))
}

func TestOpenValidation(t *testing.T) {
	store := storage.NewMemoryStore()
	b := newBank(t, store)

	tests := []struct {
		name, acct, pin string
		initial         int64
	}{
		{"empty name", "", "1234", 0},
		{"short pin", "Bob", "12", 0},
		{"negative initial", "Bob", "1234", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Open(tt.acct, tt.pin, tt.initial)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	assert.Empty(t, b.List())
	assert.Equal(t, 0, store.Saves())
	// 編號未被消耗
	assert.Equal(t, int64(1001), open(t, b, "Bob", "1234", 0))
}

func TestOpenAssignsIncreasingIDs(t *testing.T) {
	b := newBank(t, storage.NewMemoryStore())
	a1 := open(t, b, "A", "1111", 1000)
	a2 := open(t, b, "B", "2222", 500)
	assert.Equal(t, a1+1, a2)

	all := b.List()
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].Name)
	assert.Equal(t, int64(1000), all[0].Balance)
	assert.Equal(t, a2, all[1].ID)
}

func TestFirstIDOption(t *testing.T) {
	b, err := New(storage.NewMemoryStore(), Options{Salt: testSalt, FirstID: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(5), open(t, b, "A", "1234", 0))
}

func TestAuthentication(t *testing.T) {
	b := newBank(t, storage.NewMemoryStore())
	a1 := open(t, b, "A", "1234", 1000)
	a2 := open(t, b, "B", "9999", 0)

	_, err := b.Balance(a1, "4321")
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, b.Withdraw(a1, "12345", 1), ErrAuthentication)
	assert.ErrorIs(t, b.Transfer(a1, "9999", a2, 1), ErrAuthentication)
	assert.ErrorIs(t, b.Rename(a1, "0000", "X"), ErrAuthentication)

	// 存款不需要 PIN
	require.NoError(t, b.Deposit(a1, 1))
	assert.Equal(t, int64(1001), balance(t, b, a1, "1234"))
}

func TestSaltChangesDigest(t *testing.T) {
	store := storage.NewMemoryStore()
	b := newBank(t, store)
	id := open(t, b, "A", "1234", 10)

	other, err := New(store, Options{Salt: "another-salt"})
	require.NoError(t, err)
	_, err = other.Balance(id, "1234")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestNotFound(t *testing.T) {
	b := newBank(t, storage.NewMemoryStore())
	a1 := open(t, b, "A", "1234", 10)

	_, err := b.Balance(42, "1234")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.ErrorIs(t, b.Deposit(42, 1), ErrAccountNotFound)
	assert.ErrorIs(t, b.Withdraw(42, "1234", 1), ErrAccountNotFound)

	err = b.Transfer(a1, "1234", 42, 1)
	require.ErrorIs(t, err, ErrAccountNotFound)
	assert.Contains(t, err.Error(), "to account 42")

	err = b.Transfer(42, "1234", a1, 1)
	require.ErrorIs(t, err, ErrAccountNotFound)
	assert.Contains(t, err.Error(), "from account 42")
}

func TestBadAmounts(t *testing.T) {
	b := newBank(t, storage.NewMemoryStore())
	a1 := open(t, b, "A", "1234", 100)
	a2 := open(t, b, "B", "1234", 100)

	for _, amt := range []int64{0, -5} {
		assert.ErrorIs(t, b.Deposit(a1, amt), ErrInvalidArgument)
		assert.ErrorIs(t, b.Withdraw(a1, "1234", amt), ErrInvalidArgument)
		assert.ErrorIs(t, b.Transfer(a1, "1234", a2, amt), ErrInvalidArgument)
	}
	assert.ErrorIs(t, b.Transfer(a1, "1234", a1, 1), ErrInvalidArgument)
}

func TestTransfer(t *testing.T) {
	store := storage.NewMemoryStore()
	b := newBank(t, store)
	a1 := open(t, b, "A", "1234", 1000)
	a2 := open(t, b, "B", "5678", 500)
	saves := store.Saves()

	require.NoError(t, b.Transfer(a1, "1234", a2, 300))
	assert.Equal(t, int64(700), balance(t, b, a1, "1234"))
	assert.Equal(t, int64(800), balance(t, b, a2, "5678"))
	// 扣款與入帳只寫一次快照
	assert.Equal(t, saves+1, store.Saves())
}

func TestTransferInsufficientLeavesBothUntouched(t *testing.T) {
	store := storage.NewMemoryStore()
	b := newBank(t, store)
	a1 := open(t, b, "A", "1234", 4999)
	a2 := open(t, b, "B", "5678", 10)
	saves := store.Saves()

	err := b.Transfer(a1, "1234", a2, 5000)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(4999), balance(t, b, a1, "1234"))
	assert.Equal(t, int64(10), balance(t, b, a2, "5678"))
	assert.Equal(t, saves, store.Saves())
}

// TestDepositOverflowRejected 驗證入帳（存款與轉帳入帳方）不會讓餘額溢位，
// 失敗時雙方帳戶不變，且檔案仍可重新載入。
func TestDepositOverflowRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.db")
	b := newFileBank(t, path)
	big := open(t, b, "Big", "1234", math.MaxInt64-10)
	carl := open(t, b, "Carl", "5678", 100)

	assert.ErrorIs(t, b.Deposit(big, 11), ErrInvalidArgument)
	assert.Equal(t, int64(math.MaxInt64-10), balance(t, b, big, "1234"))

	require.NoError(t, b.Deposit(big, 10))
	assert.Equal(t, int64(math.MaxInt64), balance(t, b, big, "1234"))

	assert.ErrorIs(t, b.Deposit(big, math.MaxInt64), ErrInvalidArgument)
	assert.ErrorIs(t, b.Transfer(carl, "5678", big, 5), ErrInvalidArgument)
	assert.Equal(t, int64(100), balance(t, b, carl, "5678"))
	assert.Equal(t, int64(math.MaxInt64), balance(t, b, big, "1234"))

	b2 := newFileBank(t, path)
	assert.Equal(t, int64(math.MaxInt64), balance(t, b2, big, "1234"))
	assert.Equal(t, int64(100), balance(t, b2, carl, "5678"))
}

func TestRename(t *testing.T) {
	b := newBank(t, storage.NewMemoryStore())
	id := open(t, b, "A", "1234", 0)

	assert.ErrorIs(t, b.Rename(id, "1234", ""), ErrInvalidArgument)
	require.NoError(t, b.Rename(id, "1234", "A|renamed"))
	assert.Equal(t, "A|renamed", b.List()[0].Name)
}

// TestPersistenceFailureKeepsMemoryUnchanged 驗證寫檔失敗時記憶體與編號皆維持原狀。
func TestPersistenceFailureKeepsMemoryUnchanged(t *testing.T) {
	store := storage.NewMemoryStore()
	b := newBank(t, store)
	a1 := open(t, b, "A", "1234", 1000)
	a2 := open(t, b, "B", "5678", 0)

	store.FailWith(errors.New("disk full"))

	_, err := b.Open("C", "1234", 1)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, b.Deposit(a1, 1), ErrPersistence)
	assert.ErrorIs(t, b.Withdraw(a1, "1234", 1), ErrPersistence)
	assert.ErrorIs(t, b.Transfer(a1, "1234", a2, 1), ErrPersistence)
	assert.ErrorIs(t, b.Rename(a1, "1234", "Z"), ErrPersistence)

	assert.Len(t, b.List(), 2)
	assert.Equal(t, int64(1000), balance(t, b, a1, "1234"))
	assert.Equal(t, int64(0), balance(t, b, a2, "5678"))
	assert.Equal(t, "A", b.List()[0].Name)

	store.FailWith(nil)
	assert.Equal(t, a2+1, open(t, b, "C", "1234", 1))
}

// TestConcurrentTransfersAtomicity 模擬雙方帳戶各 200 次交互轉帳後，總額應不變且皆非負。
func TestConcurrentTransfersAtomicity(t *testing.T) {
	b := newBank(t, storage.NewMemoryStore())
	a1 := open(t, b, "A", "1111", 1000)
	a2 := open(t, b, "B", "2222", 1000)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := b.Transfer(a1, "1111", a2, 1); err != nil {
				t.Errorf("A->B: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := b.Transfer(a2, "2222", a1, 1); err != nil {
				t.Errorf("B->A: %v", err)
			}
		}()
	}
	wg.Wait()

	g1 := balance(t, b, a1, "1111")
	g2 := balance(t, b, a2, "2222")
	assert.GreaterOrEqual(t, g1, int64(0))
	assert.GreaterOrEqual(t, g2, int64(0))
	assert.Equal(t, int64(2000), g1+g2)
}

// TestConcurrentDepositsPersisted 驗證 N 個並發存款後，記憶體與重新載入的檔案一致。
func TestConcurrentDepositsPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.db")
	b := newFileBank(t, path)
	id := open(t, b, "A", "1234", 0)

	const workers = 50
	const amt = int64(7)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if err := b.Deposit(id, amt); err != nil {
				t.Errorf("deposit err: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*amt, balance(t, b, id, "1234"))
	reloaded := newFileBank(t, path)
	assert.Equal(t, workers*amt, balance(t, reloaded, id, "1234"))
}

// TestConcurrentOverdraw 驗證並發提款不會讓餘額變負。
func TestConcurrentOverdraw(t *testing.T) {
	b := newBank(t, storage.NewMemoryStore())
	id := open(t, b, "A", "1234", 100)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	wg.Add(30)
	for i := 0; i < 30; i++ {
		go func() {
			defer wg.Done()
			err := b.Withdraw(id, "1234", 10)
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("withdraw: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, ok)
	assert.Equal(t, int64(0), balance(t, b, id, "1234"))
}

// TestReloadRestoresState 驗證重新啟動後 List() 與之前一致，且編號接續。
func TestReloadRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.db")
	b := newFileBank(t, path)
	a1 := open(t, b, "A|lice\\", "1234", 1000)
	a2 := open(t, b, "Bob\n", "5678", 500)
	require.NoError(t, b.Deposit(a1, 200))
	require.NoError(t, b.Transfer(a1, "1234", a2, 800))
	before := b.List()

	b2 := newFileBank(t, path)
	assert.Equal(t, before, b2.List())
	assert.Equal(t, int64(400), balance(t, b2, a1, "1234"))
	assert.Equal(t, a2+1, open(t, b2, "C", "1234", 0))
}

func TestNewRejectsBadSnapshots(t *testing.T) {
	dup := storage.NewMemoryStore(
		storage.Record{ID: 1001, Name: "A"},
		storage.Record{ID: 1001, Name: "B"},
	)
	_, err := New(dup, Options{})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, storage.ErrMalformedRecord)

	neg := storage.NewMemoryStore(storage.Record{ID: 1001, Name: "A", Balance: -1})
	_, err = New(neg, Options{})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestNextIDSeededAboveHighest(t *testing.T) {
	store := storage.NewMemoryStore(
		storage.Record{ID: 5, Name: "low"},
		storage.Record{ID: 2000, Name: "high"},
	)
	b := newBank(t, store)
	assert.Equal(t, int64(2001), open(t, b, "next", "1234", 0))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestEventsPublishedAfterCommit(t *testing.T) {
	pub := &recordingPublisher{}
	store := storage.NewMemoryStore()
	b, err := New(store, Options{Salt: testSalt, Publisher: pub})
	require.NoError(t, err)

	a1 := open(t, b, "A", "1234", 100)
	a2 := open(t, b, "B", "1234", 0)
	require.NoError(t, b.Deposit(a1, 5))
	require.NoError(t, b.Withdraw(a1, "1234", 5))
	require.NoError(t, b.Transfer(a1, "1234", a2, 50))
	require.NoError(t, b.Rename(a2, "1234", "Bee"))

	// 失敗的操作不發送事件
	_ = b.Withdraw(a1, "1234", 1_000_000)
	store.FailWith(errors.New("boom"))
	_ = b.Deposit(a1, 1)

	var types []events.Type
	for _, e := range pub.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.Type{
		events.AccountOpened, events.AccountOpened,
		events.AccountDeposited, events.AccountWithdrawn,
		events.AccountTransferred, events.AccountRenamed,
	}, types)
	assert.Equal(t, a2, pub.events[4].CounterID)
	assert.Equal(t, int64(50), pub.events[4].Amount)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	b, err := New(storage.NewMemoryStore(), Options{Salt: testSalt, Publisher: pub})
	require.NoError(t, err)

	id := open(t, b, "A", "1234", 0)
	require.NoError(t, b.Deposit(id, 10))
	assert.Equal(t, int64(10), balance(t, b, id, "1234"))
}
