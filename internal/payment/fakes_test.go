package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stellarpay-dev/stellarpay/internal/model"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) LoadAccount(ctx context.Context, publicKey string) (model.Account, error) {
	args := m.Called(ctx, publicKey)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *mockLedger) Submit(ctx context.Context, tx *txnbuild.Transaction) (string, error) {
	args := m.Called(ctx, tx)
	return args.String(0), args.Error(1)
}

// keySigner stands in for the external signer. It signs with its own key
// under whatever passphrase it is configured with.
type keySigner struct {
	kp         *keypair.Full
	passphrase string // empty: use the passphrase it is asked to sign for
	err        error
	tamper     func(tx *txnbuild.Transaction) *txnbuild.Transaction
	calls      int
	envelopes  []string
	passes     []string
}

func (s *keySigner) SignEnvelope(_ context.Context, envelope, passphrase string) (string, error) {
	s.calls++
	s.envelopes = append(s.envelopes, envelope)
	s.passes = append(s.passes, passphrase)
	if s.err != nil {
		return "", s.err
	}

	generic, err := txnbuild.TransactionFromXDR(envelope)
	if err != nil {
		return "", err
	}
	tx, ok := generic.Transaction()
	if !ok {
		return "", errors.New("not a transaction")
	}
	if s.tamper != nil {
		tx = s.tamper(tx)
	}
	pass := passphrase
	if s.passphrase != "" {
		pass = s.passphrase
	}
	tx, err = tx.Sign(pass, s.kp)
	if err != nil {
		return "", err
	}
	return tx.Base64()
}

type fixture struct {
	source   *keypair.Full
	dest     string
	ledger   *mockLedger
	signer   *keySigner
	orch     *Orchestrator
	captured *txnbuild.Transaction
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		source: keypair.MustRandom(),
		dest:   keypair.MustRandom().Address(),
		ledger: &mockLedger{},
	}
	f.signer = &keySigner{kp: f.source}
	f.orch = New(f.ledger, f.signer, network.TestNetworkPassphrase)
	return f
}

func (f *fixture) destinationExists() {
	f.ledger.On("LoadAccount", mock.Anything, f.dest).Return(model.Account{PublicKey: f.dest, Sequence: 7}, nil).Once()
}

func (f *fixture) destinationMissing() {
	f.ledger.On("LoadAccount", mock.Anything, f.dest).Return(model.Account{}, model.NewError(model.CodeAccountNotFound, errors.New("404"))).Once()
}

func (f *fixture) sourceLoads(seq int64) {
	f.ledger.On("LoadAccount", mock.Anything, f.source.Address()).Return(model.Account{PublicKey: f.source.Address(), Sequence: seq}, nil).Once()
}

func (f *fixture) submitReturns(hash string, err error) {
	f.ledger.On("Submit", mock.Anything, mock.AnythingOfType("*txnbuild.Transaction")).
		Run(func(args mock.Arguments) { f.captured = args.Get(1).(*txnbuild.Transaction) }).
		Return(hash, err).Once()
}

func (f *fixture) send(amount, memo string) (Result, error) {
	return f.orch.Send(context.Background(), f.source.Address(), model.TransactionIntent{
		Destination: f.dest,
		Amount:      amount,
		Memo:        memo,
	})
}

func onlyOperation(t *testing.T, tx *txnbuild.Transaction) txnbuild.Operation {
	t.Helper()
	require.NotNil(t, tx)
	ops := tx.Operations()
	require.Len(t, ops, 1)
	return ops[0]
}
