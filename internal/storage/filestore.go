// internal/storage/filestore.go
//
// 提供以單一檔案保存完整快照的儲存實作。
// 檔案格式：連續的 [uint32 小端長度][混淆後的紀錄]，紀錄內容見 codec.go。
// 採「原子寫入」策略：先完整寫入 .tmp 並 fsync，再以 rename() 取代正式檔，
// 中途崩潰時正式路徑上只會看到舊檔或新檔，不會出現半寫入的檔案。
package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"securebank/internal/cipher"
	"securebank/internal/log"
)

// MaxRecordSize 為單筆紀錄長度上限（16 MiB），超過視為檔案損毀。
const MaxRecordSize = 1 << 24

const lenPrefix = 4

// 可於測試中替換，用來模擬 rename 失敗。
var rename = os.Rename

// FileStore 擁有單一備份檔案；同一路徑同時只能由一個行程使用。
type FileStore struct {
	path string
	key  cipher.Key
	log  *log.Logger
}

// NewFileStore 建立檔案儲存；logger 可為 nil。
func NewFileStore(path string, key cipher.Key, logger *log.Logger) *FileStore {
	if logger == nil {
		logger = log.Discard()
	}
	return &FileStore{path: path, key: key, log: logger.WithComponent(log.ComponentStorage)}
}

// Path 回傳備份檔路徑。
func (s *FileStore) Path() string { return s.path }

// Load 讀取所有紀錄。檔案不存在時視為首次啟動，回傳空集合。
func (s *FileStore) Load() ([]Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("no data file, starting empty", log.FieldPath, s.path)
		return nil, nil
	}
	if err != nil {
		return nil, persistErr(log.OpLoad, s.path, err)
	}
	defer f.Close()

	var (
		out []Record
		r   = bufio.NewReader(f)
		hdr [lenPrefix]byte
	)
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, persistErr(log.OpLoad, s.path, fmt.Errorf("truncated length prefix after %d records: %w", len(out), err))
		}
		n := binary.LittleEndian.Uint32(hdr[:])
		if n > MaxRecordSize {
			return nil, persistErr(log.OpLoad, s.path, fmt.Errorf("record %d too large: %d bytes", len(out), n))
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, persistErr(log.OpLoad, s.path, fmt.Errorf("unexpected end of file in record %d: %w", len(out), err))
		}
		rec, ok, err := unseal(s.key, payload)
		if err != nil {
			return nil, persistErr(log.OpLoad, s.path, fmt.Errorf("record %d: %w", len(out), err))
		}
		if ok {
			out = append(out, rec)
		}
	}
	s.log.Debug("snapshot loaded", log.FieldPath, s.path, log.FieldRecords, len(out))
	return out, nil
}

// Save 以整份快照取代備份檔。
// 流程：寫入 path+".tmp" → Flush → Sync → Close → rename。
// rename 失敗時先移除目標檔再重試一次；仍失敗則刪除暫存檔並回傳 PersistenceError，
// 此時舊快照已不存在。
func (s *FileStore) Save(records []Record) error {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return persistErr(log.OpSave, tmp, err)
	}

	if err := s.writeAll(f, records); err != nil {
		f.Close()
		os.Remove(tmp)
		return persistErr(log.OpSave, tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return persistErr(log.OpSave, tmp, err)
	}

	if err := rename(tmp, s.path); err != nil {
		s.log.Warn("rename failed, retrying after removing target", log.FieldPath, s.path, log.FieldError, err)
		_ = os.Remove(s.path)
		if err := rename(tmp, s.path); err != nil {
			os.Remove(tmp)
			s.log.Error("rename retry failed, previous snapshot removed", log.FieldPath, s.path, log.FieldError, err)
			return persistErr(log.OpSave, s.path, fmt.Errorf("rename: %w", err))
		}
	}
	s.log.Debug("snapshot saved", log.FieldPath, s.path, log.FieldRecords, len(records))
	return nil
}

func (s *FileStore) writeAll(f *os.File, records []Record) error {
	w := bufio.NewWriter(f)
	var hdr [lenPrefix]byte
	for _, rec := range records {
		payload := seal(s.key, rec)
		binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
