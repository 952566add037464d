// Package cli 為 bank 指令列介面：單次子命令、互動式選單 shell、並行示範與 HTTP 服務。
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"securebank/internal/bank"
	"securebank/internal/config"
	"securebank/internal/log"
	"securebank/internal/money"
)

var version = "0.1.0"

// app 保存旗標與延遲建立的 Bank；需要帳本的子命令以 withBank 包裝。
type app struct {
	configPath string
	dataPath   string
	store      string
	logLevel   string

	cfg     *config.Config
	logger  *log.Logger
	bank    *bank.Bank
	closers []func() error
}

// NewRootCmd 建立完整的命令樹。每次呼叫回傳獨立的實例，測試可各自設定輸入輸出。
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "bank",
		Short:         "Secure account ledger with an obfuscated on-disk store",
		Long:          "bank manages PIN-protected accounts. Every change is written to the data file before it becomes visible.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.dataPath, "data", "", "data file path (overrides BANK_DATA_PATH)")
	pf.StringVar(&a.store, "store", "", "storage backend: file|sqlite|memory")
	pf.StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error")

	root.AddCommand(
		a.openCmd(),
		a.balanceCmd(),
		a.depositCmd(),
		a.withdrawCmd(),
		a.transferCmd(),
		a.renameCmd(),
		a.listCmd(),
		a.demoCmd(),
		a.shellCmd(),
		a.serveCmd(),
	)
	return root
}

// Execute 執行 CLI，由 main 呼叫。
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode：輸入錯誤 2，其他失敗 1。
func exitCode(err error) int {
	if errors.Is(err, bank.ErrInvalidArgument) || errors.Is(err, money.ErrInvalidAmount) {
		return 2
	}
	return 1
}

// setup 載入設定、建立 logger 並開啟帳本；重複呼叫不會重建。
func (a *app) setup(cmd *cobra.Command) error {
	if a.bank != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataPath != "" {
		cfg.DataPath = a.dataPath
	}
	if a.store != "" {
		cfg.StoreBackend = a.store
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: log.ComponentCLI, Output: cmd.ErrOrStderr()})

	b, closers, err := openBank(cfg, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	a.cfg, a.logger, a.bank, a.closers = cfg, logger, b, closers
	return nil
}

// withBank 在執行 fn 前開啟帳本，結束後關閉外部連線（即使 fn 失敗）。
func (a *app) withBank(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.setup(cmd); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, a.close()) }()
		return fn(cmd, args)
	}
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
