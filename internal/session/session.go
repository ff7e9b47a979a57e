// Package session sequences connect, send, refresh, and disconnect for a
// single wallet session as one guarded state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stellarpay-dev/stellarpay/internal/logging"
	"github.com/stellarpay-dev/stellarpay/internal/model"
	"github.com/stellarpay-dev/stellarpay/internal/payment"
)

// Wallet is the signer capability a session connects through.
type Wallet interface {
	Detect(ctx context.Context) bool
	RequestPublicKey(ctx context.Context) (string, error)
}

// Ledger supplies the data shown for a connected key.
type Ledger interface {
	FetchBalance(ctx context.Context, publicKey string) (string, error)
	FetchTransactionHistory(ctx context.Context, publicKey string, limit int) []model.TransactionRecord
}

// Sender performs one transfer.
type Sender interface {
	Send(ctx context.Context, source string, intent model.TransactionIntent) (payment.Result, error)
}

var (
	// ErrBusy is returned when a transition is attempted while a connect,
	// send, or refresh is in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrInvalidTransition is returned when an event does not apply to
	// the current state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNotConnected is returned by events that need a connected key.
	ErrNotConnected = errors.New("wallet is not connected")
)

const notDetectedMessage = "Freighter wallet not found. Please install it first."

// View is an immutable snapshot of a session for presentation.
type View struct {
	State       model.SessionState
	PublicKey   string
	Balance     string // four decimals; empty until loaded
	BalanceNote string // set when the balance could not be loaded
	History     []model.TransactionRecord
	Result      *payment.Result // last successful send
	Message     string          // connect error, or last failed send
	Refreshing  bool
}

// Session is the single owner of the active key and the data derived from
// it. The mutex guards fields only and is never held across a wallet or
// ledger call; the Connecting and Sending states are what keep calls from
// overlapping.
type Session struct {
	wallet       Wallet
	ledger       Ledger
	sender       Sender
	historyLimit int
	logger       *slog.Logger

	mu          sync.Mutex
	state       model.SessionState
	epoch       uint64 // bumped on disconnect; stale refreshes are dropped
	publicKey   string
	balance     string
	balanceNote string
	history     []model.TransactionRecord
	result      *payment.Result
	message     string
	refreshing  bool
}

// New creates a disconnected session.
func New(wallet Wallet, ledger Ledger, sender Sender, historyLimit int, logger *slog.Logger) *Session {
	if historyLimit <= 0 {
		historyLimit = model.DefaultHistoryLimit
	}
	return &Session{
		wallet:       wallet,
		ledger:       ledger,
		sender:       sender,
		historyLimit: historyLimit,
		logger:       logging.OrDiscard(logger),
		state:        model.StateDisconnected,
	}
}

// Snapshot returns the current view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:       s.state,
		PublicKey:   s.publicKey,
		Balance:     s.balance,
		BalanceNote: s.balanceNote,
		History:     slices.Clone(s.history),
		Message:     s.message,
		Refreshing:  s.refreshing,
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	return v
}

// State returns the current state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect detects the signer, obtains its public key, and loads balance and
// history. It is allowed from Disconnected and from Error, which it
// dismisses. A missing signer fails with WalletUnavailable before any key
// is requested.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != model.StateDisconnected && s.state != model.StateError {
		err := s.transitionErrorLocked("connect")
		s.mu.Unlock()
		return err
	}
	s.clearLocked()
	s.state = model.StateConnecting
	s.mu.Unlock()

	if !s.wallet.Detect(ctx) {
		return s.failConnect(model.Errorf(model.CodeWalletUnavailable, "signer not detected"), notDetectedMessage)
	}

	key, err := s.wallet.RequestPublicKey(ctx)
	if err != nil {
		return s.failConnect(err, model.Message(err))
	}

	s.mu.Lock()
	s.state = model.StateConnected
	s.publicKey = key
	s.mu.Unlock()
	s.logger.Info("wallet connected", "account", key)

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("initial refresh incomplete", "error", err)
	}
	return nil
}

func (s *Session) failConnect(err error, message string) error {
	s.mu.Lock()
	s.state = model.StateError
	s.message = message
	s.mu.Unlock()
	s.logger.Warn("connect failed", "error", err)
	return err
}

// Refresh reloads balance and history for the connected key. Both are
// fetched concurrently and applied together. A balance failure marks the
// balance unavailable and is returned; history failures read as empty.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.state != model.StateConnected {
		err := s.notConnectedLocked("refresh")
		s.mu.Unlock()
		return err
	}
	if s.refreshing {
		s.mu.Unlock()
		return fmt.Errorf("%w: refresh already running", ErrBusy)
	}
	s.refreshing = true
	key, epoch := s.publicKey, s.epoch
	s.mu.Unlock()

	var (
		balance string
		history []model.TransactionRecord
		g       errgroup.Group
	)
	g.Go(func() error {
		b, err := s.ledger.FetchBalance(ctx, key)
		balance = b
		return err
	})
	g.Go(func() error {
		// History is best effort and never fails the group.
		history = s.ledger.FetchTransactionHistory(ctx, key, s.historyLimit)
		return nil
	})
	balanceErr := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// Disconnected meanwhile; the refresh belongs to a session that no longer exists.
		return nil
	}
	s.refreshing = false
	s.history = history
	if balanceErr != nil {
		s.balance = ""
		s.balanceNote = model.Message(balanceErr)
		return balanceErr
	}
	s.balance = balance
	s.balanceNote = ""
	return nil
}

// Send runs one transfer from the connected key. It is only allowed from
// Connected with no refresh in flight, and returns to Connected annotated with either the result or
// the error message. A successful send refreshes balance and history.
func (s *Session) Send(ctx context.Context, intent model.TransactionIntent) (payment.Result, error) {
	s.mu.Lock()
	if s.state != model.StateConnected {
		err := s.notConnectedLocked("send")
		s.mu.Unlock()
		return payment.Result{}, err
	}
	if s.refreshing {
		s.mu.Unlock()
		return payment.Result{}, fmt.Errorf("%w: cannot send while refreshing", ErrBusy)
	}
	s.state = model.StateSending
	s.result = nil
	s.message = ""
	key := s.publicKey
	s.mu.Unlock()

	res, err := s.sender.Send(ctx, key, intent)

	s.mu.Lock()
	s.state = model.StateConnected
	if err != nil {
		s.message = model.Message(err)
	} else {
		s.result = &res
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("send failed", "error", err)
		return payment.Result{}, err
	}
	if rerr := s.Refresh(ctx); rerr != nil {
		s.logger.Warn("post-send refresh incomplete", "error", rerr)
	}
	return res, nil
}

// DismissResult clears the last send annotation so another send can be
// composed.
func (s *Session) DismissResult() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.StateConnected {
		return s.notConnectedLocked("dismiss result")
	}
	s.result = nil
	s.message = ""
	return nil
}

// Dismiss acknowledges a connect error and returns to Disconnected.
func (s *Session) Dismiss() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.StateError {
		return s.transitionErrorLocked("dismiss")
	}
	s.clearLocked()
	s.state = model.StateDisconnected
	return nil
}

// Disconnect drops the key and everything derived from it. It is refused
// while a connect or send is in flight.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Transient() {
		return s.transitionErrorLocked("disconnect")
	}
	if s.state == model.StateConnected {
		s.logger.Info("wallet disconnected", "account", s.publicKey)
	}
	s.clearLocked()
	s.epoch++
	s.state = model.StateDisconnected
	return nil
}

func (s *Session) clearLocked() {
	s.publicKey = ""
	s.balance = ""
	s.balanceNote = ""
	s.history = nil
	s.result = nil
	s.message = ""
	s.refreshing = false
}

func (s *Session) notConnectedLocked(event string) error {
	if s.state.Transient() {
		return s.transitionErrorLocked(event)
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrNotConnected, event, s.state)
}

func (s *Session) transitionErrorLocked(event string) error {
	if s.state.Transient() {
		return fmt.Errorf("%w: cannot %s while %s", ErrBusy, event, s.state)
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, event, s.state)
}
