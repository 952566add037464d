package storage

import "sync"

// MemoryStore 只保存最後一次的快照，不落地。
// 用於測試與不需要保存的臨時工作階段。
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	saves   int
	failErr error
}

// NewMemoryStore 以初始紀錄建立記憶體儲存（可為 nil）。
func NewMemoryStore(initial ...Record) *MemoryStore {
	return &MemoryStore{records: append([]Record(nil), initial...)}
}

// Load 回傳最後快照的複本。
func (m *MemoryStore) Load() ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...), nil
}

// Save 以複本取代快照；若設定了 FailWith 則回傳 PersistenceError 且不變更內容。
func (m *MemoryStore) Save(records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return persistErr("save", "memory", m.failErr)
	}
	m.records = append([]Record(nil), records...)
	m.saves++
	return nil
}

// FailWith 使之後的 Save 失敗；傳入 nil 恢復正常。
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Saves 回傳成功儲存次數。
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
