package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stellarpay-dev/stellarpay/internal/config"
)

func newInitCommand() *cobra.Command {
	var horizonURL string
	var signer string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default stellarpay.yaml for the Stellar testnet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			path, err := runInit(absDir, horizonURL, signer, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&horizonURL, "horizon-url", "", "Horizon endpoint (default: public testnet)")
	cmd.Flags().StringVar(&signer, "signer", "", "signer command (default: freighter-bridge)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	return cmd
}

func runInit(dir, horizonURL, signer string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking %s: %w", path, err)
	}

	cfg := config.Default()
	if horizonURL != "" {
		cfg.Network.HorizonURL = horizonURL
	}
	if signer != "" {
		cfg.Signer.Command = signer
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	if err := config.Save(path, cfg); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}
