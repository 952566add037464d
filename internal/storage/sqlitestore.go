package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"securebank/internal/cipher"
	"securebank/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteStore 為檔案儲存的替代後端：每個帳戶一列，payload 為混淆後的紀錄行。
// Save 在單一交易內清空並重寫整張表，維持「整份快照」語意。
type SQLiteStore struct {
	db   *sql.DB
	path string
	key  cipher.Key
	log  *log.Logger
}

// NewSQLiteStore 開啟（必要時建立）資料庫並套用遷移。
func NewSQLiteStore(path string, key cipher.Key, logger *log.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, persistErr("open", path, fmt.Errorf("create db directory: %w", err))
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, persistErr("open", path, err)
	}
	// 單一寫入者；避免 SQLITE_BUSY。
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, persistErr("open", path, fmt.Errorf("ping database: %w", err))
	}
	if err := RunMigrations(path); err != nil {
		db.Close()
		return nil, persistErr("open", path, err)
	}
	return &SQLiteStore{db: db, path: path, key: key, log: logger.WithComponent(log.ComponentStorage)}, nil
}

// Load 依 id 遞增讀出所有帳戶。
func (s *SQLiteStore) Load() ([]Record, error) {
	ctx := context.Background()
	rows, err := s.db.QueryContext(ctx, `SELECT id, payload FROM accounts ORDER BY id`)
	if err != nil {
		return nil, persistErr(log.OpLoad, s.path, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id      int64
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, persistErr(log.OpLoad, s.path, err)
		}
		rec, ok, err := unseal(s.key, payload)
		if err != nil {
			return nil, persistErr(log.OpLoad, s.path, fmt.Errorf("row %d: %w", id, err))
		}
		if !ok {
			continue
		}
		if rec.ID != id {
			return nil, persistErr(log.OpLoad, s.path, fmt.Errorf("%w: row %d holds account %d", ErrMalformedRecord, id, rec.ID))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(log.OpLoad, s.path, err)
	}
	s.log.Debug("snapshot loaded", log.FieldPath, s.path, log.FieldRecords, len(out))
	return out, nil
}

// Save 在交易內以整份快照取代資料表內容。
func (s *SQLiteStore) Save(records []Record) (err error) {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr(log.OpSave, s.path, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return persistErr(log.OpSave, s.path, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO accounts (id, payload) VALUES (?, ?)`)
	if err != nil {
		return persistErr(log.OpSave, s.path, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err = stmt.ExecContext(ctx, rec.ID, seal(s.key, rec)); err != nil {
			return persistErr(log.OpSave, s.path, fmt.Errorf("insert %d: %w", rec.ID, err))
		}
	}
	if err = tx.Commit(); err != nil {
		return persistErr(log.OpSave, s.path, err)
	}
	s.log.Debug("snapshot saved", log.FieldPath, s.path, log.FieldRecords, len(records))
	return nil
}

// Close 關閉資料庫連線。
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
