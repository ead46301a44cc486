// Package config 載入機台設定（TOML）：伺服器、機台現金、日誌、稽核日誌、
// 對帳單輸出，以及初始帳戶與卡片。
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"atm/internal/bank"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Terminal  TerminalConfig  `toml:"terminal"`
	Log       LogConfig       `toml:"log"`
	Journal   JournalConfig   `toml:"journal"`
	Statement StatementConfig `toml:"statement"`
	Accounts  []AccountConfig `toml:"accounts"`
	Cards     []CardConfig    `toml:"cards"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr 回傳 host:port。
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

type TerminalConfig struct {
	CashOnHand  string `toml:"cash_on_hand"`
	PINAttempts int    `toml:"pin_attempts"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug | info | warn | error
	Format string `toml:"format"` // json | console
}

type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
}

// StatementConfig 控制結束時是否輸出對帳單；Path 為空則不輸出。
type StatementConfig struct {
	Path string `toml:"path"`
}

type AccountConfig struct {
	ID      string `toml:"id"`
	PIN     string `toml:"pin"`
	Owner   string `toml:"owner"`
	Balance string `toml:"balance"`
}

// CardConfig 描述一張卡片；Account 為空時卡號即帳號。
type CardConfig struct {
	Number  string `toml:"number"`
	Account string `toml:"account"`
	PIN     string `toml:"pin"`
	Holder  string `toml:"holder"`
}

// DefaultConfig 回傳示範設定：三個帳戶、三張卡、機台現金 2500。
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 8080},
		Terminal: TerminalConfig{CashOnHand: "2500.00", PINAttempts: 3},
		Log:      LogConfig{Level: "info", Format: "console"},
		Journal:  JournalConfig{Enabled: true, DSN: ":memory:"},
		Accounts: []AccountConfig{
			{ID: "111111", PIN: "1234", Owner: "Alice", Balance: "500.00"},
			{ID: "222222", PIN: "4321", Owner: "Bob", Balance: "1200.00"},
			{ID: "333333", PIN: "5678", Owner: "Charlie", Balance: "800.00"},
		},
		Cards: []CardConfig{
			{Number: "111111", PIN: "1234", Holder: "Alice"},
			{Number: "222222", PIN: "4321", Holder: "Bob"},
			{Number: "333333", PIN: "5678", Holder: "Charlie"},
		},
	}
}

// Load 讀取 path 並覆寫預設值；path 為空時回傳預設設定。
// 檔案若定義了 [[accounts]] 或 [[cards]]，會整組取代預設清單。
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var file Config
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("parse config %s: unknown key %q", path, undec[0].String())
	}

	// 只覆寫檔案中出現的純量欄位，清單欄位整組取代。
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if md.IsDefined("accounts") {
		cfg.Accounts = file.Accounts
	}
	if md.IsDefined("cards") {
		cfg.Cards = file.Cards
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 檢查金額格式、帳號唯一、卡片對應帳戶存在等跨欄位規則。
func (c *Config) Validate() error {
	var errs []error

	cash, err := bank.ParseAmount(c.Terminal.CashOnHand)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("terminal.cash_on_hand: %w", err))
	case cash.IsNegative():
		errs = append(errs, errors.New("terminal.cash_on_hand: must not be negative"))
	}
	if c.Terminal.PINAttempts <= 0 {
		errs = append(errs, errors.New("terminal.pin_attempts: must be positive"))
	}
	if c.Journal.Enabled && c.Journal.DSN == "" {
		errs = append(errs, errors.New("journal.dsn: required when journal is enabled"))
	}

	ids := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("accounts[%d]: id is required", i))
			continue
		}
		if ids[a.ID] {
			errs = append(errs, fmt.Errorf("accounts[%d]: duplicate id %s", i, a.ID))
		}
		ids[a.ID] = true
		bal, err := bank.ParseAmount(a.Balance)
		if err != nil {
			errs = append(errs, fmt.Errorf("accounts[%d].balance: %w", i, err))
		} else if bal.IsNegative() {
			errs = append(errs, fmt.Errorf("accounts[%d].balance: must not be negative", i))
		}
	}

	for i, card := range c.Cards {
		target := card.AccountID()
		if card.Number == "" {
			errs = append(errs, fmt.Errorf("cards[%d]: number is required", i))
		} else if !ids[target] {
			errs = append(errs, fmt.Errorf("cards[%d]: account %s not found", i, target))
		}
	}
	return errors.Join(errs...)
}

// AccountID 回傳卡片對應的帳號。
func (c CardConfig) AccountID() string {
	if c.Account != "" {
		return c.Account
	}
	return c.Number
}
