package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
	"golang.org/x/time/rate"

	"github.com/stellarpay-dev/stellarpay/internal/logging"
	"github.com/stellarpay-dev/stellarpay/internal/model"
)

// maxPageLimit is the largest page Horizon serves.
const maxPageLimit = 200

// Horizon is the subset of horizonclient.ClientInterface the client uses.
type Horizon interface {
	AccountDetail(request horizonclient.AccountRequest) (hProtocol.Account, error)
	Transactions(request horizonclient.TransactionRequest) (hProtocol.TransactionsPage, error)
	SubmitTransactionWithOptions(transaction *txnbuild.Transaction, opts horizonclient.SubmitTxOpts) (hProtocol.Transaction, error)
}

var _ Horizon = (*horizonclient.Client)(nil)

// Client provides account, history, and submission access to one network.
type Client struct {
	horizon    Horizon
	passphrase string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHorizon replaces the Horizon backend.
func WithHorizon(h Horizon) Option {
	return func(c *Client) { c.horizon = h }
}

// WithHTTPClient sets the HTTP client of the default Horizon backend.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hz, ok := c.horizon.(*horizonclient.Client); ok {
			hz.HTTP = hc
		}
	}
}

// WithRateLimit paces Horizon calls to rps with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.OrDiscard(l) }
}

// New creates a Client for the Horizon server at horizonURL. passphrase is
// the network identifier transactions for this ledger are built and
// signed with.
func New(horizonURL, passphrase string, opts ...Option) *Client {
	c := &Client{
		horizon: &horizonclient.Client{
			HorizonURL: horizonURL,
			HTTP:       http.DefaultClient,
			AppName:    "stellarpay",
		},
		passphrase: passphrase,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Passphrase returns the network identifier of this ledger.
func (c *Client) Passphrase() string {
	return c.passphrase
}

// LoadAccount fetches the current state of an account. A not-found
// response yields AccountNotFound; every other failure is a NetworkError.
func (c *Client) LoadAccount(ctx context.Context, publicKey string) (model.Account, error) {
	if err := c.wait(ctx); err != nil {
		return model.Account{}, model.NewError(model.CodeNetworkError, err)
	}

	acct, err := c.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: publicKey})
	if err != nil {
		if isNotFound(err) {
			return model.Account{}, model.NewError(model.CodeAccountNotFound, err)
		}
		return model.Account{}, model.NewError(model.CodeNetworkError, fmt.Errorf("loading account %s: %w", publicKey, err))
	}

	out, err := projectAccount(acct)
	if err != nil {
		return model.Account{}, model.NewError(model.CodeNetworkError, fmt.Errorf("decoding account %s: %w", publicKey, err))
	}
	c.logger.Debug("loaded account", "account", publicKey, "sequence", out.Sequence)
	return out, nil
}

// FetchBalance returns the native balance of an account with exactly four
// fractional digits. An account without a native entry reports "0.0000".
func (c *Client) FetchBalance(ctx context.Context, publicKey string) (string, error) {
	acct, err := c.LoadAccount(ctx, publicKey)
	if err != nil {
		return "", err
	}
	bal, ok := acct.NativeBalance()
	if !ok {
		return decimal.Zero.StringFixed(model.BalanceDisplayPlaces), nil
	}
	return bal.StringFixed(model.BalanceDisplayPlaces), nil
}

// FetchTransactionHistory returns up to limit of the account's most recent
// transactions, newest first. History is best effort: any failure yields
// an empty slice.
func (c *Client) FetchTransactionHistory(ctx context.Context, publicKey string, limit int) []model.TransactionRecord {
	if limit <= 0 {
		limit = model.DefaultHistoryLimit
	}
	limit = min(limit, maxPageLimit)

	records := []model.TransactionRecord{}
	if err := c.wait(ctx); err != nil {
		c.logger.Warn("transaction history unavailable", "account", publicKey, "error", err)
		return records
	}

	page, err := c.horizon.Transactions(horizonclient.TransactionRequest{
		ForAccount:    publicKey,
		Order:         horizonclient.OrderDesc,
		Limit:         uint(limit),
		IncludeFailed: true,
	})
	if err != nil {
		c.logger.Warn("transaction history unavailable", "account", publicKey, "error", err)
		return records
	}

	for _, tx := range page.Embedded.Records {
		if len(records) == limit {
			break
		}
		records = append(records, model.TransactionRecord{
			Hash:       tx.Hash,
			CreatedAt:  tx.LedgerCloseTime,
			Successful: tx.Successful,
			Ledger:     tx.Ledger,
		})
	}
	slices.SortStableFunc(records, func(a, b model.TransactionRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return records
}

// Submit sends a signed transaction and returns its hash. A rejection is
// reported as SubmissionFailed carrying the ledger's reason. Submission
// is never retried here.
func (c *Client) Submit(ctx context.Context, tx *txnbuild.Transaction) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", &model.Error{Code: model.CodeSubmissionFailed, Err: err}
	}

	resp, err := c.horizon.SubmitTransactionWithOptions(tx, horizonclient.SubmitTxOpts{})
	if err != nil {
		return "", &model.Error{Code: model.CodeSubmissionFailed, Reason: rejectionReason(err), Err: err}
	}
	c.logger.Debug("transaction submitted", "hash", resp.Hash, "ledger", resp.Ledger)
	return resp.Hash, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	return c.limiter.Wait(ctx)
}

func projectAccount(acct hProtocol.Account) (model.Account, error) {
	seq, err := acct.GetSequenceNumber()
	if err != nil {
		return model.Account{}, fmt.Errorf("sequence: %w", err)
	}

	out := model.Account{PublicKey: acct.AccountID, Sequence: seq}
	for _, b := range acct.Balances {
		amount, err := decimal.NewFromString(b.Balance)
		if err != nil {
			return model.Account{}, fmt.Errorf("balance %q: %w", b.Balance, err)
		}
		out.Balances = append(out.Balances, model.Balance{
			AssetType: b.Type,
			AssetCode: b.Code,
			Issuer:    b.Issuer,
			Amount:    amount,
		})
	}
	return out, nil
}

func isNotFound(err error) bool {
	if horizonclient.IsNotFoundError(err) {
		return true
	}
	herr := horizonclient.GetError(err)
	return herr != nil && herr.Problem.Status == http.StatusNotFound
}

// rejectionReason condenses a Horizon submission error into result codes
// such as "tx_failed, op_underfunded".
func rejectionReason(err error) string {
	if errors.Is(err, horizonclient.ErrAccountRequiresMemo) {
		return "destination account requires a memo"
	}
	herr := horizonclient.GetError(err)
	if herr == nil {
		return ""
	}
	if codes, cerr := herr.ResultCodes(); cerr == nil && codes != nil && codes.TransactionCode != "" {
		parts := []string{codes.TransactionCode}
		if codes.InnerTransactionCode != "" {
			parts = append(parts, codes.InnerTransactionCode)
		}
		for _, op := range codes.OperationCodes {
			if op != "op_success" {
				parts = append(parts, op)
			}
		}
		return strings.Join(parts, ", ")
	}
	if herr.Problem.Title != "" {
		return strings.ToLower(herr.Problem.Title)
	}
	return fmt.Sprintf("status %d", herr.Problem.Status)
}
