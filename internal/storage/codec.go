package storage

import (
	"fmt"
	"strconv"
	"strings"

	"securebank/internal/cipher"
)

const (
	fieldSep = '|'
	escape   = '\\'
	fieldCnt = 4
)

// Encode 將紀錄轉為單行文字：id|name|balance|digest。
// name 內的 \、|、\n、\r 皆以反斜線跳脫，其他欄位為十進位數字不需跳脫。
func Encode(r Record) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(r.ID, 10))
	sb.WriteByte(fieldSep)
	for i := 0; i < len(r.Name); i++ {
		switch c := r.Name[i]; c {
		case escape, fieldSep, '\n', '\r':
			sb.WriteByte(escape)
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(fieldSep)
	sb.WriteString(strconv.FormatInt(r.Balance, 10))
	sb.WriteByte(fieldSep)
	sb.WriteString(strconv.FormatUint(r.Digest, 10))
	return sb.String()
}

// Decode 為 Encode 的反向操作。跳脫只移除一次，
// 欄位數不為 4、尾端懸空跳脫或數字欄位無法解析時回傳 ErrMalformedRecord。
func Decode(line string) (Record, error) {
	fields, err := split(line)
	if err != nil {
		return Record{}, err
	}
	if len(fields) != fieldCnt {
		return Record{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedRecord, fieldCnt, len(fields))
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: id %q", ErrMalformedRecord, fields[0])
	}
	bal, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: balance %q", ErrMalformedRecord, fields[2])
	}
	digest, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: digest %q", ErrMalformedRecord, fields[3])
	}
	return Record{ID: id, Name: fields[1], Balance: bal, Digest: digest}, nil
}

func split(line string) ([]string, error) {
	var (
		fields []string
		cur    strings.Builder
		esc    bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case esc:
			cur.WriteByte(c)
			esc = false
		case c == escape:
			esc = true
		case c == fieldSep:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if esc {
		return nil, fmt.Errorf("%w: dangling escape", ErrMalformedRecord)
	}
	return append(fields, cur.String()), nil
}

// seal 編碼並混淆一筆紀錄，供檔案與 SQLite 兩種後端共用。
func seal(key cipher.Key, r Record) []byte {
	return key.Apply([]byte(Encode(r)))
}

// unseal 還原一筆紀錄；ok 為 false 表示空紀錄（應略過）。
func unseal(key cipher.Key, payload []byte) (rec Record, ok bool, err error) {
	line := key.Apply(payload)
	if len(line) == 0 {
		return Record{}, false, nil
	}
	rec, err = Decode(string(line))
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}
