package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/stellarpay-dev/stellarpay/internal/model"
)

func newSendCommand(opts *rootOptions) *cobra.Command {
	var intent model.TransactionIntent

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send XLM, creating the destination account if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, 0, func(a *app) error {
				if err := a.connect(cmd.Context()); err != nil {
					return err
				}
				res, err := a.session.Send(cmd.Context(), intent)
				if err != nil {
					return errors.New(model.Message(err))
				}
				a.printer.Result(res)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&intent.Destination, "to", "", "destination account (G...)")
	cmd.Flags().StringVar(&intent.Amount, "amount", "", "amount of XLM")
	cmd.Flags().StringVar(&intent.Memo, "memo", "", "optional text memo (up to 28 bytes)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
