package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellarpay-dev/stellarpay/internal/ledger"
)

func newConnectCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect the signer and show the account, balance, and recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, 0, func(a *app) error {
				if err := a.connect(cmd.Context()); err != nil {
					return err
				}
				v := a.session.Snapshot()
				a.printer.Account(v)
				fmt.Fprintln(cmd.OutOrStdout(), "Recent transactions:")
				a.printer.History(v.History)
				return nil
			})
		},
	}
}

func newBalanceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the native XLM balance of the signer's account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, 0, func(a *app) error {
				if err := a.connect(cmd.Context()); err != nil {
					return err
				}
				v := a.session.Snapshot()
				a.printer.Account(v)
				if v.BalanceNote != "" {
					return fmt.Errorf("balance unavailable: %s", v.BalanceNote)
				}
				return nil
			})
		},
	}
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transactions of the signer's account, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return withApp(cmd, opts, limit, func(a *app) error {
				if err := a.connect(cmd.Context()); err != nil {
					return err
				}
				records := a.session.Snapshot().History
				if asCSV {
					return ledger.WriteHistory(cmd.OutOrStdout(), records)
				}
				a.printer.History(records)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "number of transactions (default from config)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")

	return cmd
}
