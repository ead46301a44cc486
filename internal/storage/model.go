// internal/storage/model.go
//
// 定義對帳單 (statement) 的序列化結構。
// 此層只負責資料格式與檔案 I/O，不涉入帳務規則；
// 對帳單是唯讀的稽核輸出，機台啟動時不會由此還原帳本。
package storage

import "time"

// Meta 為對帳單的中繼資料。
type Meta struct {
	Storage   string    `json:"storage"`        // 格式類型，例如 "json_statement"
	Version   int       `json:"version"`        // 結構版本號
	Timestamp time.Time `json:"timestamp"`      // 產出時間
	Note      string    `json:"note,omitempty"` // 備註
}

// StatementAccount 為單一帳戶在對帳單中的樣貌。
// 金額以兩位小數字串保存，避免 JSON 數字的浮點解讀。
type StatementAccount struct {
	ID      string `json:"id"`
	Owner   string `json:"owner"`
	Opening string `json:"opening"`
	Balance string `json:"balance"`
	Entries []any  `json:"entries"`
}

// Statement 為整個帳戶目錄的對帳單。
type Statement struct {
	Meta     Meta               `json:"_meta"`
	Total    string             `json:"total"`
	Accounts []StatementAccount `json:"accounts"`
}
