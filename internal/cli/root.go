// Package cli 組裝機台的命令列介面：serve（HTTP）、shell（互動選單）、audit（帳本驗證）。
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"atm/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "atm",
	Short: "Self-service terminal over an in-memory account ledger",
	Long: `atm runs a single self-service terminal against a directory of bank
accounts seeded from configuration. Use "atm shell" for the interactive
menu or "atm serve" to expose the terminal over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file (defaults to the demo directory)")
}

// Execute 執行根命令。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// newLogger 依設定建立 zap logger。
func newLogger(c config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	var zc zap.Config
	switch c.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "console", "":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("log.format: unknown format %q", c.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
