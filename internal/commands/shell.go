package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stellarpay-dev/stellarpay/internal/model"
)

const shellHelp = `Commands:
  connect                       connect the signer
  send <to> <amount> [memo...]  send XLM
  refresh                       reload balance and history
  dismiss                       clear the last result or error
  disconnect                    forget the connected account
  status                        show the session
  quit                          exit
`

func newShellCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with one persistent signer connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, 0, func(a *app) error {
				return runShell(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

func runShell(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "Type 'help' for commands.\nstellarpay> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			if fields[0] == "quit" || fields[0] == "exit" {
				return nil
			}
			if err := shellCommand(ctx, a, out, fields); err != nil {
				fmt.Fprintf(out, "Error: %s\n", err)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(out, "stellarpay> ")
	}
	return scanner.Err()
}

func shellCommand(ctx context.Context, a *app, out io.Writer, fields []string) error {
	sess := a.session
	switch fields[0] {
	case "help":
		fmt.Fprint(out, shellHelp)
	case "connect":
		if err := a.connect(ctx); err != nil {
			return err
		}
		a.printer.View(sess.Snapshot())
	case "send":
		if len(fields) < 3 {
			return fmt.Errorf("usage: send <to> <amount> [memo...]")
		}
		intent := model.TransactionIntent{
			Destination: fields[1],
			Amount:      fields[2],
			Memo:        strings.Join(fields[3:], " "),
		}
		res, err := sess.Send(ctx, intent)
		if err != nil {
			return errors.New(model.Message(err))
		}
		a.printer.Result(res)
	case "refresh":
		if err := sess.Refresh(ctx); err != nil && sess.State() != model.StateConnected {
			return err
		}
		v := sess.Snapshot()
		a.printer.Account(v)
		a.printer.History(v.History)
	case "dismiss":
		if sess.State() == model.StateError {
			return sess.Dismiss()
		}
		return sess.DismissResult()
	case "disconnect":
		if err := sess.Disconnect(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Disconnected.")
	case "status":
		a.printer.View(sess.Snapshot())
	default:
		return fmt.Errorf("unknown command %q (try 'help')", fields[0])
	}
	return nil
}
