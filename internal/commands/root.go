package commands

import (
	"github.com/spf13/cobra"

	"github.com/stellarpay-dev/stellarpay/internal/buildinfo"
	"github.com/stellarpay-dev/stellarpay/internal/config"
)

// rootOptions carries persistent flags and the signer launcher shared by
// every subcommand.
type rootOptions struct {
	configPath  string
	logLevel    string
	startSigner signerStarter
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(startSignerProcess)
}

func newRootCommand(start signerStarter) *cobra.Command {
	opts := &rootOptions{startSigner: start}

	rootCmd := &cobra.Command{
		Use:     "stellarpay",
		Short:   "Send XLM on the Stellar testnet through a Freighter-compatible signer",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.FileName, "path to config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCommand(),
		newConnectCommand(opts),
		newBalanceCommand(opts),
		newHistoryCommand(opts),
		newSendCommand(opts),
		newShellCommand(opts),
	)

	return rootCmd
}
