// internal/storage/jsonstore.go
//
// 對帳單的 JSON 寫入與讀取。
// 採「原子寫入」：先寫入 .tmp 檔，再以 rename() 取代原檔，
// 寫入中斷時不會留下半份對帳單。
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LoadStatement 讀取並解析指定路徑的對帳單。
func LoadStatement(path string) (Statement, error) {
	var st Statement
	f, err := os.Open(path)
	if err != nil {
		return st, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&st); err != nil {
		return st, fmt.Errorf("decode statement %s: %w", path, err)
	}
	return st, nil
}

// SaveStatement 將對帳單寫入 path：
//  1. 補上 Meta.Storage 與時間戳。
//  2. 寫入 path+".tmp"。
//  3. 以 os.Rename() 取代正式檔案。
func SaveStatement(path string, st Statement) error {
	st.Meta.Storage = "json_statement"
	st.Meta.Timestamp = time.Now()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create statement dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}
