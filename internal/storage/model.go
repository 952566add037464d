// internal/storage/model.go
//
// 定義持久化層的資料模型與錯誤型別。
// 本層只處理 I/O 與序列化，不含任何商業規則（餘額、驗證皆屬 bank 層）。
package storage

import (
	"errors"
	"fmt"
)

// Record 為帳戶在儲存層的格式。
// Digest 為 PIN 的加鹽雜湊，PIN 本身從不落地。
type Record struct {
	ID      int64
	Name    string
	Balance int64
	Digest  uint64
}

var (
	// ErrPersistence 代表 I/O 或格式錯誤；所有 PersistenceError 皆可用 errors.Is 比對。
	ErrPersistence = errors.New("persistence error")

	// ErrMalformedRecord 代表單筆紀錄無法解析，只會在載入時出現並包在 PersistenceError 中。
	ErrMalformedRecord = errors.New("malformed record")
)

// PersistenceError 記錄失敗的操作（load/save）、路徑與底層錯誤。
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrPersistence, e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is 讓 errors.Is(err, ErrPersistence) 成立。
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func persistErr(op, path string, err error) error {
	return &PersistenceError{Op: op, Path: path, Err: err}
}
