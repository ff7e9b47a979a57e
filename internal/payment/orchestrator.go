package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/stellarpay-dev/stellarpay/internal/logging"
	"github.com/stellarpay-dev/stellarpay/internal/model"
)

// Ledger is the ledger access the orchestrator needs.
type Ledger interface {
	LoadAccount(ctx context.Context, publicKey string) (model.Account, error)
	Submit(ctx context.Context, tx *txnbuild.Transaction) (string, error)
}

// Signer signs serialized envelopes without exposing key material.
type Signer interface {
	SignEnvelope(ctx context.Context, envelope, passphrase string) (string, error)
}

// OperationKind names the single operation a transfer is built from.
type OperationKind string

const (
	OperationPayment       OperationKind = "payment"
	OperationCreateAccount OperationKind = "create_account"
)

// Result describes a submitted transfer.
type Result struct {
	Hash        string
	Operation   OperationKind
	Destination string
	Amount      string // seven fractional digits
	Memo        string
}

// Orchestrator turns a transfer intent into a signed, submitted
// transaction. It is not reentrant; callers serialise Send.
type Orchestrator struct {
	ledger     Ledger
	signer     Signer
	passphrase string
	baseFee    int64
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBaseFee sets the per-operation fee in stroops.
func WithBaseFee(fee int64) Option {
	return func(o *Orchestrator) { o.baseFee = fee }
}

// WithClock sets the time source for the validity window.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.OrDiscard(l) }
}

// New creates an Orchestrator building transactions for the network
// identified by passphrase.
func New(ledger Ledger, signer Signer, passphrase string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:     ledger,
		signer:     signer,
		passphrase: passphrase,
		baseFee:    txnbuild.MinBaseFee,
		now:        time.Now,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Send validates intent, builds the matching operation, has it signed,
// and submits it. Nothing is retried: a failed attempt must be rerun from
// the start so the source sequence number is reloaded.
func (o *Orchestrator) Send(ctx context.Context, source string, intent model.TransactionIntent) (Result, error) {
	dest, err := ValidateDestination(intent.Destination)
	if err != nil {
		return Result{}, err
	}
	amount, err := ParseAmount(intent.Amount)
	if err != nil {
		return Result{}, err
	}
	memo := NormalizeMemo(intent.Memo)

	existence, err := o.resolveDestination(ctx, dest)
	if err != nil {
		return Result{}, err
	}
	o.logger.Debug("destination resolved", "destination", dest, "existence", existence)

	src, err := o.ledger.LoadAccount(ctx, source)
	if err != nil {
		return Result{}, model.NewError(model.CodeSourceLoadFailed, err)
	}

	op, kind, err := selectOperation(dest, amount, existence)
	if err != nil {
		return Result{}, err
	}

	tx, err := o.build(source, src.Sequence, op, memo)
	if err != nil {
		return Result{}, err
	}
	envelope, err := tx.Base64()
	if err != nil {
		return Result{}, fmt.Errorf("encoding envelope: %w", err)
	}

	signedEnvelope, err := o.signer.SignEnvelope(ctx, envelope, o.passphrase)
	if err != nil {
		return Result{}, err
	}
	signed, err := o.verifySigned(tx, signedEnvelope, source)
	if err != nil {
		return Result{}, err
	}

	hash, err := o.ledger.Submit(ctx, signed)
	if err != nil {
		o.logger.Info("transaction rejected", "operation", kind, "error", err)
		return Result{}, err
	}

	res := Result{
		Hash:        hash,
		Operation:   kind,
		Destination: dest,
		Amount:      FormatAmount(amount),
		Memo:        memo,
	}
	o.logger.Info("transaction submitted", "hash", hash, "operation", kind, "amount", res.Amount)
	return res, nil
}

// resolveDestination decides once whether dest exists. Only a confirmed
// not-found counts as absence; any other failure is fatal.
func (o *Orchestrator) resolveDestination(ctx context.Context, dest string) (model.DestinationExistence, error) {
	_, err := o.ledger.LoadAccount(ctx, dest)
	switch {
	case err == nil:
		return model.DestinationExists, nil
	case model.CodeOf(err) == model.CodeAccountNotFound:
		return model.DestinationNotExists, nil
	}
	return 0, model.NewError(model.CodeVerificationFailed, err)
}

func selectOperation(dest string, amount decimal.Decimal, existence model.DestinationExistence) (txnbuild.Operation, OperationKind, error) {
	switch existence {
	case model.DestinationExists:
		return &txnbuild.Payment{
			Destination: dest,
			Amount:      FormatAmount(amount),
			Asset:       txnbuild.NativeAsset{},
		}, OperationPayment, nil
	case model.DestinationNotExists:
		if amount.LessThan(model.MinStartingBalance) {
			return nil, "", model.Errorf(model.CodeInsufficientStartingBalance,
				"starting balance %s is below %s XLM", amount, model.MinStartingBalance)
		}
		return &txnbuild.CreateAccount{
			Destination: dest,
			Amount:      FormatAmount(amount),
		}, OperationCreateAccount, nil
	}
	return nil, "", fmt.Errorf("destination existence %s", existence)
}

func (o *Orchestrator) build(source string, sequence int64, op txnbuild.Operation, memo string) (*txnbuild.Transaction, error) {
	params := txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: source, Sequence: sequence},
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              o.baseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimebounds(0, o.now().Add(model.TxTimeoutSeconds*time.Second).Unix()),
		},
	}
	if memo != "" {
		params.Memo = txnbuild.MemoText(memo)
	}

	tx, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, fmt.Errorf("building transaction: %w", err)
	}
	return tx, nil
}

// verifySigned decodes the signer's envelope and accepts it only if it is
// the transaction that was built, signed by source for this network.
func (o *Orchestrator) verifySigned(built *txnbuild.Transaction, signedEnvelope, source string) (*txnbuild.Transaction, error) {
	generic, err := txnbuild.TransactionFromXDR(signedEnvelope)
	if err != nil {
		return nil, &model.Error{Code: model.CodeSigningRejected, Reason: "signer returned a malformed envelope", Err: err}
	}
	signed, ok := generic.Transaction()
	if !ok {
		return nil, model.Errorf(model.CodeNetworkMismatch, "signer returned a fee-bump envelope")
	}

	want, err := built.Hash(o.passphrase)
	if err != nil {
		return nil, fmt.Errorf("hashing transaction: %w", err)
	}
	got, err := signed.Hash(o.passphrase)
	if err != nil {
		return nil, model.NewError(model.CodeNetworkMismatch, err)
	}
	if got != want {
		return nil, model.Errorf(model.CodeNetworkMismatch, "signed transaction differs from the one built")
	}

	kp, err := keypair.ParseAddress(source)
	if err != nil {
		return nil, fmt.Errorf("parsing source key: %w", err)
	}
	for _, sig := range signed.Signatures() {
		if kp.Verify(got[:], sig.Signature) == nil {
			return signed, nil
		}
	}
	return nil, model.Errorf(model.CodeNetworkMismatch, "no signature by %s for this network", source)
}
