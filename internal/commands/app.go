package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stellarpay-dev/stellarpay/internal/config"
	"github.com/stellarpay-dev/stellarpay/internal/display"
	"github.com/stellarpay-dev/stellarpay/internal/ledger"
	"github.com/stellarpay-dev/stellarpay/internal/logging"
	"github.com/stellarpay-dev/stellarpay/internal/model"
	"github.com/stellarpay-dev/stellarpay/internal/payment"
	"github.com/stellarpay-dev/stellarpay/internal/session"
	"github.com/stellarpay-dev/stellarpay/internal/wallet"
)

// signerStarter launches the signer described by cfg. The returned close
// function releases it.
type signerStarter func(cfg config.SignerConfig, stderr io.Writer, logger *slog.Logger) (wallet.Extension, func() error, error)

func startSignerProcess(cfg config.SignerConfig, stderr io.Writer, logger *slog.Logger) (wallet.Extension, func() error, error) {
	p, err := wallet.StartProcess(wallet.ProcessConfig{
		Command: cfg.Command,
		Args:    cfg.Args,
		Env:     cfg.Env,
		Stderr:  stderr,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

// absentSigner stands in for a signer that could not be launched, so the
// session reports it as not installed.
func absentSigner(cause error) wallet.Extension {
	return wallet.ExtensionFunc(func(context.Context, string, any) (json.RawMessage, error) {
		return nil, cause
	})
}

// app is the wired object graph behind one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	ledger  *ledger.Client
	session *session.Session
	printer display.Printer
	close   func() error
}

// openApp loads config and wires ledger, signer, orchestrator, and session.
// historyLimit overrides the configured limit when positive.
func openApp(cmd *cobra.Command, opts *rootOptions, historyLimit int) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w (run 'stellarpay init' to create one)", err)
		}
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if historyLimit > 0 {
		cfg.Ledger.HistoryLimit = historyLimit
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	lc := ledger.New(cfg.Network.HorizonURL, cfg.Network.Passphrase,
		ledger.WithRateLimit(cfg.Ledger.RequestsPerSecond, cfg.Ledger.Burst),
		ledger.WithLogger(logger),
	)

	ext, closeSigner, err := opts.startSigner(cfg.Signer, cmd.ErrOrStderr(), logger)
	if err != nil {
		logger.Debug("signer not started", "command", cfg.Signer.Command, "error", err)
		ext, closeSigner = absentSigner(err), func() error { return nil }
	}
	bridge := wallet.NewBridge(ext, logger)

	orch := payment.New(lc, bridge, cfg.Network.Passphrase,
		payment.WithBaseFee(cfg.Ledger.BaseFee),
		payment.WithLogger(logger),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		ledger:  lc,
		session: session.New(bridge, lc, orch, cfg.Ledger.HistoryLimit, logger),
		printer: display.Printer{W: cmd.OutOrStdout(), ExplorerURL: cfg.Network.ExplorerURL},
		close:   closeSigner,
	}, nil
}

// connect runs the session connect and turns a failure into the message
// the session recorded for it.
func (a *app) connect(ctx context.Context) error {
	err := a.session.Connect(ctx)
	if err == nil {
		return nil
	}
	if v := a.session.Snapshot(); v.State == model.StateError {
		return errors.New(v.Message)
	}
	return err
}

func (a *app) Close() {
	if err := a.close(); err != nil {
		a.logger.Warn("closing signer", "error", err)
	}
}

// withApp opens the app, runs fn, and closes the signer afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, historyLimit int, fn func(*app) error) error {
	a, err := openApp(cmd, opts, historyLimit)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
