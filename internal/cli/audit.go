package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"atm/internal/bank"
	"atm/internal/storage"
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringP("statement", "s", "", "Verify a statement written by a previous run instead of the configured directory")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Verify ledger balances against their history",
	Long: `Replay every account's history from its opening balance and check the
result against the recorded balance. Without --statement the configured
directory is checked; with --statement a JSON statement is verified.`,
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if path, _ := cmd.Flags().GetString("statement"); path != "" {
		st, err := storage.LoadStatement(path)
		if err != nil {
			return err
		}
		return auditStatement(out, st)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer a.Close()
	return auditStatement(out, a.dir.Statement())
}

// auditStatement 印出每個帳戶的餘額與紀錄筆數，並回傳重播驗證結果。
func auditStatement(out io.Writer, st storage.Statement) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tOWNER\tOPENING\tBALANCE\tENTRIES")
	for _, sa := range st.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", sa.ID, sa.Owner, sa.Opening, sa.Balance, len(sa.Entries))
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t%s\t\n", st.Total)
	tw.Flush()

	if err := bank.VerifyStatement(st); err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}
	fmt.Fprintln(out, "ledger consistent")
	return nil
}
