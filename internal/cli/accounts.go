package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"securebank/internal/bank"
	"securebank/internal/money"
)

func (a *app) openCmd() *cobra.Command {
	var name, pin, initial string
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new account",
		RunE: a.withBank(func(cmd *cobra.Command, args []string) error {
			amt := int64(0)
			if initial != "" {
				v, err := money.Parse(initial)
				if err != nil {
					return err
				}
				amt = v
			}
			id, err := a.bank.Open(name, pin, amt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created. ID = %d\n", id)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "account holder name")
	cmd.Flags().StringVar(&pin, "pin", "", "PIN (at least 4 characters)")
	cmd.Flags().StringVar(&initial, "initial", "", "initial deposit, e.g. 1000.00")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func (a *app) balanceCmd() *cobra.Command {
	var id int64
	var pin string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show an account balance",
		RunE: a.withBank(func(cmd *cobra.Command, args []string) error {
			bal, err := a.bank.Balance(id, pin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s\n", money.Format(bal, a.cfg.Currency))
			return nil
		}),
	}
	cmd.Flags().Int64Var(&id, "id", 0, "account id")
	cmd.Flags().StringVar(&pin, "pin", "", "account PIN")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func (a *app) depositCmd() *cobra.Command {
	var id int64
	var amount string
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit into an account (no PIN required)",
		RunE: a.withBank(func(cmd *cobra.Command, args []string) error {
			amt, err := money.Parse(amount)
			if err != nil {
				return err
			}
			if err := a.bank.Deposit(id, amt); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deposited.")
			return nil
		}),
	}
	cmd.Flags().Int64Var(&id, "id", 0, "account id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 250.00")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) withdrawCmd() *cobra.Command {
	var id int64
	var pin, amount string
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw from an account",
		RunE: a.withBank(func(cmd *cobra.Command, args []string) error {
			amt, err := money.Parse(amount)
			if err != nil {
				return err
			}
			if err := a.bank.Withdraw(id, pin, amt); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Withdrawn.")
			return nil
		}),
	}
	cmd.Flags().Int64Var(&id, "id", 0, "account id")
	cmd.Flags().StringVar(&pin, "pin", "", "account PIN")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 99.99")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("pin")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) transferCmd() *cobra.Command {
	var from, to int64
	var pin, amount string
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between two accounts",
		RunE: a.withBank(func(cmd *cobra.Command, args []string) error {
			amt, err := money.Parse(amount)
			if err != nil {
				return err
			}
			if err := a.bank.Transfer(from, pin, to, amt); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Transferred.")
			return nil
		}),
	}
	cmd.Flags().Int64Var(&from, "from", 0, "source account id")
	cmd.Flags().StringVar(&pin, "pin", "", "source account PIN")
	cmd.Flags().Int64Var(&to, "to", 0, "destination account id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 10.00")
	for _, f := range []string{"from", "pin", "to", "amount"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (a *app) renameCmd() *cobra.Command {
	var id int64
	var pin, name string
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Change the account holder name",
		RunE: a.withBank(func(cmd *cobra.Command, args []string) error {
			if err := a.bank.Rename(id, pin, name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Renamed.")
			return nil
		}),
	}
	cmd.Flags().Int64Var(&id, "id", 0, "account id")
	cmd.Flags().StringVar(&pin, "pin", "", "account PIN")
	cmd.Flags().StringVar(&name, "name", "", "new name")
	for _, f := range []string{"id", "pin", "name"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: a.withBank(func(cmd *cobra.Command, args []string) error {
			return renderAccounts(cmd.OutOrStdout(), a.bank.List(), a.cfg.Currency)
		}),
	}
}

// renderAccounts 以表格列出帳戶（ID 遞增）。
func renderAccounts(w io.Writer, accounts []bank.Account, currency string) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Balance")
	for _, acc := range accounts {
		if err := table.Append([]string{fmt.Sprint(acc.ID), acc.Name, money.Format(acc.Balance, currency)}); err != nil {
			return err
		}
	}
	return table.Render()
}
