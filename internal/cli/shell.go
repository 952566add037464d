package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"securebank/internal/bank"
	"securebank/internal/money"
)

const menu = `
=== Banking System ===
1) Open Account
2) Balance
3) Deposit
4) Withdraw
5) Transfer
6) List Accounts
7) Multithreaded Demo
8) Rename Account
0) Exit
Choice: `

func (a *app) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive numbered menu",
		RunE: a.withBank(func(cmd *cobra.Command, args []string) error {
			sh := &shell{
				app: a,
				in:  bufio.NewScanner(cmd.InOrStdin()),
				out: cmd.OutOrStdout(),
				err: cmd.ErrOrStderr(),
			}
			return sh.run(cmd.Context())
		}),
	}
}

// shell 為互動式選單。單一命令失敗只印出錯誤，工作階段繼續；輸入結束 (EOF) 即離開。
type shell struct {
	app *app
	in  *bufio.Scanner
	out io.Writer
	err io.Writer
}

// errEOF 表示輸入已結束。
var errEOF = errors.New("end of input")

func (s *shell) run(ctx context.Context) error {
	for {
		fmt.Fprint(s.out, menu)
		if !s.in.Scan() {
			return s.in.Err()
		}
		choice := strings.TrimSpace(s.in.Text())
		if choice == "0" {
			fmt.Fprintln(s.out, "Bye!")
			return nil
		}
		err := s.dispatch(ctx, choice)
		if errors.Is(err, errEOF) {
			return s.in.Err()
		}
		if err != nil {
			fmt.Fprintln(s.err, label(err), err)
		}
	}
}

func (s *shell) dispatch(ctx context.Context, choice string) error {
	b, cur := s.app.bank, s.app.cfg.Currency
	switch choice {
	case "1":
		name, err := s.ask("Name: ")
		if err != nil {
			return err
		}
		pin, err := s.ask("Set PIN (>=4 digits): ")
		if err != nil {
			return err
		}
		amt, err := s.askAmount("Initial deposit (e.g., 1000.00): ")
		if err != nil {
			return err
		}
		id, err := b.Open(name, pin, amt)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Account created. ID = %d\n", id)

	case "2":
		id, err := s.askID("Account ID: ")
		if err != nil {
			return err
		}
		pin, err := s.ask("PIN: ")
		if err != nil {
			return err
		}
		bal, err := b.Balance(id, pin)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Balance: %s\n", money.Format(bal, cur))

	case "3":
		id, err := s.askID("Account ID: ")
		if err != nil {
			return err
		}
		amt, err := s.askAmount("Amount (e.g., 250.00): ")
		if err != nil {
			return err
		}
		if err := b.Deposit(id, amt); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Deposited.")

	case "4":
		id, err := s.askID("Account ID: ")
		if err != nil {
			return err
		}
		pin, err := s.ask("PIN: ")
		if err != nil {
			return err
		}
		amt, err := s.askAmount("Amount (e.g., 99.99): ")
		if err != nil {
			return err
		}
		if err := b.Withdraw(id, pin, amt); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Withdrawn.")

	case "5":
		from, err := s.askID("From ID: ")
		if err != nil {
			return err
		}
		pin, err := s.ask("PIN: ")
		if err != nil {
			return err
		}
		to, err := s.askID("To ID: ")
		if err != nil {
			return err
		}
		amt, err := s.askAmount("Amount (e.g., 10.00): ")
		if err != nil {
			return err
		}
		if err := b.Transfer(from, pin, to, amt); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Transferred.")

	case "6":
		return renderAccounts(s.out, b.List(), cur)

	case "7":
		return runDemo(ctx, b, s.out, cur, defaultDemoPlan(), s.app.logger)

	case "8":
		id, err := s.askID("Account ID: ")
		if err != nil {
			return err
		}
		pin, err := s.ask("PIN: ")
		if err != nil {
			return err
		}
		name, err := s.ask("New name: ")
		if err != nil {
			return err
		}
		if err := b.Rename(id, pin, name); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Renamed.")

	default:
		fmt.Fprintln(s.out, "Invalid choice.")
	}
	return nil
}

// ask 印出提示並讀取一整行（名稱可含空白）。
func (s *shell) ask(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		return "", errEOF
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *shell) askID(prompt string) (int64, error) {
	raw, err := s.ask(prompt)
	if err != nil {
		return 0, err
	}
	id, perr := strconv.ParseInt(raw, 10, 64)
	if perr != nil {
		return 0, fmt.Errorf("%w: account id %q", bank.ErrInvalidArgument, raw)
	}
	return id, nil
}

func (s *shell) askAmount(prompt string) (int64, error) {
	raw, err := s.ask(prompt)
	if err != nil {
		return 0, err
	}
	return money.Parse(raw)
}

// label 依錯誤類別加上前綴。
func label(err error) string {
	switch {
	case errors.Is(err, bank.ErrInvalidArgument), errors.Is(err, money.ErrInvalidAmount):
		return "[Invalid Input]"
	case errors.Is(err, bank.ErrAccountNotFound), errors.Is(err, bank.ErrAuthentication),
		errors.Is(err, bank.ErrInsufficientFunds), errors.Is(err, bank.ErrPersistence):
		return "[Bank Error]"
	default:
		return "[Error]"
	}
}
