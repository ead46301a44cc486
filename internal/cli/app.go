package cli

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"atm/internal/atm"
	"atm/internal/bank"
	"atm/internal/config"
	"atm/internal/journal"
	"atm/internal/observability"
	"atm/internal/storage"
)

// app 持有由設定組裝出的帳戶目錄、機台與稽核日誌。
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	dir     *bank.Directory
	term    *atm.Terminal
	journal *journal.SQLite
}

// newApp 依設定建立目錄（含卡片對照）與機台。
func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	var opts []bank.DirectoryOption
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.DSN, log.Named("journal"))
		if err != nil {
			return nil, err
		}
		a.journal = j
		opts = append(opts, bank.WithJournal(j))
	}

	a.dir = bank.NewDirectory(opts...)
	for _, ac := range cfg.Accounts {
		opening, err := bank.ParseAmount(ac.Balance)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("account %s: %w", ac.ID, err)
		}
		if _, err := a.dir.Open(ac.ID, ac.PIN, ac.Owner, opening); err != nil {
			a.Close()
			return nil, err
		}
	}
	for _, c := range cfg.Cards {
		if c.Account == "" {
			continue
		}
		if err := a.dir.IssueCard(c.Number, c.Account); err != nil {
			a.Close()
			return nil, err
		}
	}

	cash, err := bank.ParseAmount(cfg.Terminal.CashOnHand)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("terminal cash: %w", err)
	}
	a.term = atm.New(a.dir, cash,
		atm.WithLogger(log.Named("terminal")),
		atm.WithPINAttempts(cfg.Terminal.PINAttempts),
		atm.WithCashGauge(observability.CashOnHand))
	return a, nil
}

// cards 回傳設定中的卡片，供互動選單挑選。
func (a *app) cards() []bank.Card {
	out := make([]bank.Card, 0, len(a.cfg.Cards))
	for _, c := range a.cfg.Cards {
		out = append(out, bank.Card{Number: c.Number, PIN: c.PIN, Holder: c.Holder})
	}
	return out
}

// Close 輸出對帳單（若有設定）並關閉稽核日誌。
func (a *app) Close() error {
	var errs []error
	if a.dir != nil && a.cfg.Statement.Path != "" {
		if err := storage.SaveStatement(a.cfg.Statement.Path, a.dir.Statement()); err != nil {
			errs = append(errs, fmt.Errorf("write statement: %w", err))
		} else {
			a.log.Info("statement written", zap.String("path", a.cfg.Statement.Path))
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	return errors.Join(errs...)
}
