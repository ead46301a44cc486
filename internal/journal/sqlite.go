// Package journal 將帳務紀錄同步寫入 SQLite 稽核表。
// 稽核表只寫不讀回帳本：機台啟動時的帳戶狀態一律來自設定檔。
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"atm/internal/bank"
	"atm/internal/observability"
)

// Migrations 回傳稽核表的建表語句，每個字串為單一 SQL 敘述。
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id           TEXT PRIMARY KEY,
			account_id   TEXT NOT NULL,
			kind         TEXT NOT NULL,
			amount       TEXT NOT NULL,
			note         TEXT NOT NULL DEFAULT '',
			counterparty TEXT NOT NULL DEFAULT '',
			reason       TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_entries(account_id, created_at)`,
	}
}

// timeLayout 為固定寬度時間格式，字串排序即時間排序。
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Row 為稽核表中的一列。
type Row struct {
	ID           string
	AccountID    string
	Kind         bank.Kind
	Amount       string
	Note         string
	Counterparty string
	Reason       bank.Reason
	CreatedAt    time.Time
}

// SQLite 實作 bank.Journal。
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

// Open 開啟 dsn（例如 ":memory:" 或檔案路徑）並執行建表。
func Open(dsn string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dsn, err)
	}
	// :memory: 每個連線是獨立資料庫，且 SQLite 一次只允許一個寫入者。
	db.SetMaxOpenConns(1)

	for _, stmt := range Migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate journal: %w", err)
		}
	}
	return &SQLite{db: db, log: log}, nil
}

// Append 寫入一筆紀錄；失敗只記錄日誌與指標，不影響帳務操作。
func (j *SQLite) Append(accountID string, e bank.Entry) {
	kind, err := e.Kind.MarshalText()
	if err != nil {
		j.fail(accountID, e, err)
		return
	}
	_, err = j.db.Exec(
		`INSERT INTO ledger_entries (id, account_id, kind, amount, note, counterparty, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), accountID, string(kind), bank.AmountText(e.Amount),
		e.Note, e.Counterparty, string(e.Reason), e.Time.UTC().Format(timeLayout),
	)
	if err != nil {
		j.fail(accountID, e, err)
	}
}

func (j *SQLite) fail(accountID string, e bank.Entry, err error) {
	observability.JournalErrors.Inc()
	j.log.Error("journal append failed",
		zap.String("account", accountID),
		zap.Stringer("entry", e.ID),
		zap.Error(err))
}

// Entries 依時間順序回傳某帳戶的所有稽核紀錄。
func (j *SQLite) Entries(ctx context.Context, accountID string) ([]Row, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, account_id, kind, amount, note, counterparty, reason, created_at
		 FROM ledger_entries WHERE account_id = ? ORDER BY created_at, rowid`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r            Row
			kind, reason string
			created      string
		)
		if err := rows.Scan(&r.ID, &r.AccountID, &kind, &r.Amount, &r.Note, &r.Counterparty, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		if err := r.Kind.UnmarshalText([]byte(kind)); err != nil {
			return nil, err
		}
		r.Reason = bank.Reason(reason)
		if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse journal time: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count 回傳稽核表總筆數。
func (j *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries`).Scan(&n)
	return n, err
}

// Close 關閉資料庫連線。
func (j *SQLite) Close() error { return j.db.Close() }
