package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"atm/internal/atm"
	"atm/internal/bank"
)

func init() {
	rootCmd.AddCommand(shellCmd)
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run the interactive terminal menu",
	Long: `Run the interactive terminal menu on stdin/stdout: pick a card, enter
its PIN, then withdraw, deposit, check balance, transfer or list recent
transactions. Three wrong PINs capture the card.`,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	// 互動模式只輸出警告以上，避免干擾選單。
	log = log.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
	defer log.Sync()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	sh := newShell(a.term, a.cards(), cmd.InOrStdin(), cmd.OutOrStdout())
	return errors.Join(sh.run(), a.Close())
}

// errQuit 代表輸入結束或使用者選擇離開。
var errQuit = errors.New("quit")

// shell 為文字選單；輸入輸出可替換以便測試。
type shell struct {
	term  *atm.Terminal
	cards []bank.Card
	in    *bufio.Scanner
	out   io.Writer
}

func newShell(t *atm.Terminal, cards []bank.Card, in io.Reader, out io.Writer) *shell {
	if in == nil {
		in = os.Stdin
	}
	return &shell{term: t, cards: cards, in: bufio.NewScanner(in), out: out}
}

func (s *shell) printf(format string, a ...any) { fmt.Fprintf(s.out, format, a...) }

// prompt 印出提示並讀取一行；輸入結束時回傳 errQuit。
func (s *shell) prompt(msg string) (string, error) {
	s.printf("%s", msg)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *shell) run() error {
	s.printf("Welcome to the ATM System!\n")
	s.printf("(ATM cash on hand: %s)\n", bank.FormatAmount(s.term.CashOnHand()))

	for {
		err := s.session()
		if errors.Is(err, errQuit) {
			if s.term.State() != atm.Idle {
				_ = s.term.EjectCard()
			}
			s.printf("Goodbye.\n")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// session 處理一次插卡到退卡（或沒收）的完整流程。
func (s *shell) session() error {
	if err := s.insertCard(); err != nil {
		return err
	}
	authed, err := s.authenticate()
	if err != nil || !authed {
		return err
	}
	return s.menu()
}

func (s *shell) insertCard() error {
	choices := make([]string, len(s.cards))
	for i := range s.cards {
		choices[i] = strconv.Itoa(i + 1)
	}
	for {
		s.printf("\nAvailable cards:\n")
		for i, c := range s.cards {
			s.printf("  %d) %s (card %s)\n", i+1, c.Holder, c.Number)
		}
		pick, err := s.prompt(fmt.Sprintf("Insert which card (%s), or 'q' to quit: ", strings.Join(choices, "/")))
		if err != nil {
			return err
		}
		if strings.EqualFold(pick, "q") {
			return errQuit
		}
		n, err := strconv.Atoi(pick)
		if err != nil || n < 1 || n > len(s.cards) {
			s.printf("Invalid selection.\n")
			continue
		}
		if err := s.term.InsertCard(s.cards[n-1]); err != nil {
			s.printf("ERROR: %v\n", err)
			continue
		}
		s.printf("Card inserted.\n")
		return nil
	}
}

// authenticate 重複要求密碼直到成功；卡片被沒收時回傳 false。
func (s *shell) authenticate() (bool, error) {
	for {
		pin, err := s.prompt("Enter PIN: ")
		if err != nil {
			return false, err
		}
		ok, err := s.term.EnterPIN(pin)
		switch {
		case err != nil:
			s.printf("ERROR: %v\n", err)
			return false, nil
		case ok:
			s.printf("Access granted.\n")
			return true, nil
		default:
			s.printf("Incorrect PIN. Try again. (%d attempts left)\n", s.term.AttemptsRemaining())
		}
	}
}

func (s *shell) menu() error {
	for {
		s.printf("\nWhat would you like to do?\n")
		s.printf("1. Withdraw\n2. Deposit\n3. Check Balance\n4. Transfer\n5. Recent Transactions\n6. Eject Card\n")
		choice, err := s.prompt("Enter your choice (1-6): ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = s.moveMoney("withdraw", s.term.Withdraw)
		case "2":
			err = s.moveMoney("deposit", s.term.Deposit)
		case "3":
			err = s.showBalance("Your current balance is")
		case "4":
			err = s.transfer()
		case "5":
			err = s.recent()
		case "6":
			if err := s.term.EjectCard(); err != nil {
				s.printf("ERROR: %v\n", err)
			}
			s.printf("Thank you for using the ATM System!\n")
			return nil
		default:
			s.printf("Invalid option.\n")
		}
		if err != nil {
			return err
		}
	}
}

func (s *shell) readAmount(msg string) (decimal.Decimal, bool, error) {
	raw, err := s.prompt(msg)
	if err != nil {
		return decimal.Zero, false, err
	}
	v, err := bank.ParseAmount(raw)
	if err != nil {
		s.printf("ERROR: invalid amount %q\n", raw)
		return decimal.Zero, false, nil
	}
	return v, true, nil
}

func (s *shell) moveMoney(verb string, op func(amount decimal.Decimal) (bank.Entry, error)) error {
	amount, ok, err := s.readAmount(fmt.Sprintf("Enter the amount to %s: ", verb))
	if err != nil || !ok {
		return err
	}
	e, err := op(amount)
	if err != nil {
		s.printf("ERROR: %v\n", err)
		return nil
	}
	s.printf("%s\n", e)
	return s.showBalance("Your new balance is")
}

func (s *shell) transfer() error {
	to, err := s.prompt("Enter the destination bank account number: ")
	if err != nil {
		return err
	}
	return s.moveMoney("transfer", func(amount decimal.Decimal) (bank.Entry, error) {
		return s.term.Transfer(amount, to)
	})
}

func (s *shell) showBalance(label string) error {
	bal, err := s.term.CheckBalance()
	if err != nil {
		s.printf("ERROR: %v\n", err)
		return nil
	}
	s.printf("%s: %s\n", label, bank.FormatAmount(bal))
	return nil
}

func (s *shell) recent() error {
	entries, err := s.term.RecentTransactions(10)
	if err != nil {
		s.printf("ERROR: %v\n", err)
		return nil
	}
	if len(entries) == 0 {
		s.printf("No transactions yet.\n")
		return nil
	}
	s.printf("Recent transactions:\n")
	for _, e := range entries {
		s.printf("   %s\n", e)
	}
	return nil
}
