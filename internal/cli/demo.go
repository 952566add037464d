package cli

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"securebank/internal/bank"
	"securebank/internal/log"
	"securebank/internal/money"
)

// 示範帳戶的 PIN；demo 會以這兩組 PIN 查詢最終餘額。
const (
	demoAlicePIN = "1234"
	demoBobPIN   = "9999"
)

// demoPlan 描述並行示範：偶數 worker 存款，奇數 worker 自 Alice 轉給 Bob。
type demoPlan struct {
	Workers  int
	Rounds   int
	Deposit  int64
	Transfer int64
}

func defaultDemoPlan() demoPlan {
	return demoPlan{Workers: 8, Rounds: 20, Deposit: 100, Transfer: 50}
}

func (a *app) demoCmd() *cobra.Command {
	plan := defaultDemoPlan()
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Open two demo accounts and run concurrent deposits and transfers",
		RunE: a.withBank(func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), a.bank, cmd.OutOrStdout(), a.cfg.Currency, plan, a.logger)
		}),
	}
	cmd.Flags().IntVar(&plan.Workers, "workers", plan.Workers, "number of concurrent workers")
	cmd.Flags().IntVar(&plan.Rounds, "rounds", plan.Rounds, "operations per worker")
	return cmd
}

// runDemo 開兩個帳戶並以 errgroup 同時執行存款與轉帳，最後印出雙方餘額。
// 個別操作失敗只計數不中斷，其餘 worker 照常完成。
func runDemo(ctx context.Context, b *bank.Bank, out io.Writer, currency string, plan demoPlan, logger *log.Logger) error {
	if plan.Workers < 1 || plan.Rounds < 1 {
		return fmt.Errorf("%w: workers and rounds must be positive", bank.ErrInvalidArgument)
	}
	fmt.Fprintln(out, "Creating two demo accounts...")
	alice, err := b.Open("Alice", demoAlicePIN, 100000)
	if err != nil {
		return err
	}
	bob, err := b.Open("Bob", demoBobPIN, 50000)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Running concurrent transactions...")
	var failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for i := range plan.Workers {
		g.Go(func() error {
			for range plan.Rounds {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				var err error
				if i%2 == 0 {
					err = b.Deposit(alice, plan.Deposit)
				} else {
					err = b.Transfer(alice, demoAlicePIN, bob, plan.Transfer)
				}
				if err != nil {
					failed.Add(1)
					logger.Debug("demo operation failed", log.FieldError, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ab, err := b.Balance(alice, demoAlicePIN)
	if err != nil {
		return err
	}
	bb, err := b.Balance(bob, demoBobPIN)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Final balances:")
	fmt.Fprintf(out, "Alice (%d): %s\n", alice, money.Format(ab, currency))
	fmt.Fprintf(out, "Bob   (%d): %s\n", bob, money.Format(bb, currency))
	if n := failed.Load(); n > 0 {
		fmt.Fprintf(out, "%d operations failed\n", n)
	}
	return nil
}
