package ledger

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarpay-dev/stellarpay/internal/model"
)

func TestLoadAccount(t *testing.T) {
	f, client := newFakeHorizon(t)
	key := keypair.MustRandom().Address()
	issuer := keypair.MustRandom().Address()
	f.accounts[key] = accountJSON(key, 103720918407102464,
		creditBalance("USDC", issuer, "25.0000000"),
		nativeBalance("9999.9999900"),
	)

	acct, err := client.LoadAccount(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, key, acct.PublicKey)
	assert.Equal(t, int64(103720918407102464), acct.Sequence)
	require.Len(t, acct.Balances, 2)
	assert.Equal(t, "USDC", acct.Balances[0].AssetCode)
	assert.Equal(t, issuer, acct.Balances[0].Issuer)
	native, ok := acct.NativeBalance()
	require.True(t, ok)
	assert.Equal(t, "9999.99999", native.String())
}

func TestLoadAccountNotFound(t *testing.T) {
	_, client := newFakeHorizon(t)

	_, err := client.LoadAccount(context.Background(), keypair.MustRandom().Address())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestLoadAccountServerErrorIsNetworkError(t *testing.T) {
	f, client := newFakeHorizon(t)
	f.accountCode = http.StatusServiceUnavailable

	_, err := client.LoadAccount(context.Background(), keypair.MustRandom().Address())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNetwork)
	assert.NotErrorIs(t, err, model.ErrAccountNotFound)
}

func TestLoadAccountUnreachable(t *testing.T) {
	client := New("http://127.0.0.1:1", network.TestNetworkPassphrase)

	_, err := client.LoadAccount(context.Background(), keypair.MustRandom().Address())
	assert.ErrorIs(t, err, model.ErrNetwork)
}

func TestFetchBalance(t *testing.T) {
	tests := []struct {
		name     string
		balances []string
		want     string
	}{
		{"exact", []string{nativeBalance("100.5000000")}, "100.5000"},
		{"rounds", []string{nativeBalance("12.3456700")}, "12.3457"},
		{"zero", []string{nativeBalance("0.0000000")}, "0.0000"},
		{"no native entry", []string{creditBalance("USDC", keypair.MustRandom().Address(), "3.0000000")}, "0.0000"},
		{"no balances", nil, "0.0000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, client := newFakeHorizon(t)
			key := keypair.MustRandom().Address()
			f.accounts[key] = accountJSON(key, 1, tt.balances...)

			got, err := client.FetchBalance(context.Background(), key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchBalanceUnfunded(t *testing.T) {
	_, client := newFakeHorizon(t)

	_, err := client.FetchBalance(context.Background(), keypair.MustRandom().Address())
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestFetchTransactionHistory(t *testing.T) {
	f, client := newFakeHorizon(t)
	key := keypair.MustRandom().Address()
	f.txPages[key] = transactionsPage(
		transactionJSON("bbbb", 1002, "2025-03-02T10:00:00Z", false),
		transactionJSON("aaaa", 1001, "2025-03-01T10:00:00Z", true),
	)

	records := client.FetchTransactionHistory(context.Background(), key, 5)
	require.Len(t, records, 2)

	assert.Equal(t, "bbbb", records[0].Hash)
	assert.False(t, records[0].Successful)
	assert.Equal(t, int32(1002), records[0].Ledger)
	assert.Equal(t, time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC), records[0].CreatedAt.UTC())
	assert.Equal(t, "aaaa", records[1].Hash)
	assert.True(t, records[1].Successful)

	require.Len(t, f.queries, 1)
	assert.Contains(t, f.queries[0], "order=desc")
	assert.Contains(t, f.queries[0], "limit=5")
}

func TestFetchTransactionHistoryCapsAtLimit(t *testing.T) {
	f, client := newFakeHorizon(t)
	key := keypair.MustRandom().Address()
	f.txPages[key] = transactionsPage(
		transactionJSON("cccc", 3, "2025-03-03T10:00:00Z", true),
		transactionJSON("bbbb", 2, "2025-03-02T10:00:00Z", true),
		transactionJSON("aaaa", 1, "2025-03-01T10:00:00Z", true),
	)

	records := client.FetchTransactionHistory(context.Background(), key, 2)
	require.Len(t, records, 2)
	assert.Equal(t, "cccc", records[0].Hash)
	assert.Equal(t, "bbbb", records[1].Hash)
}

func TestFetchTransactionHistoryDefaultsLimit(t *testing.T) {
	f, client := newFakeHorizon(t)
	key := keypair.MustRandom().Address()
	f.txPages[key] = transactionsPage()

	records := client.FetchTransactionHistory(context.Background(), key, 0)
	assert.Empty(t, records)
	require.Len(t, f.queries, 1)
	assert.Contains(t, f.queries[0], "limit=5")
}

func TestFetchTransactionHistoryFailureIsEmpty(t *testing.T) {
	f, client := newFakeHorizon(t)
	f.txCode = http.StatusInternalServerError

	records := client.FetchTransactionHistory(context.Background(), keypair.MustRandom().Address(), 5)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFetchTransactionHistoryUnfundedIsEmpty(t *testing.T) {
	_, client := newFakeHorizon(t)

	records := client.FetchTransactionHistory(context.Background(), keypair.MustRandom().Address(), 5)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestSubmit(t *testing.T) {
	f, client := newFakeHorizon(t)
	f.submitBody = transactionJSON("3389e9f0f1a65f19736cacf544c2e825313e8447f569233bb8db39aa607c8889", 2000, "2025-03-04T10:00:00Z", true)
	tx := signedPayment(t)

	hash, err := client.Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, "3389e9f0f1a65f19736cacf544c2e825313e8447f569233bb8db39aa607c8889", hash)

	want, err := tx.Base64()
	require.NoError(t, err)
	require.Len(t, f.submitted, 1)
	assert.Equal(t, want, f.submitted[0])
}

func TestSubmitRejected(t *testing.T) {
	f, client := newFakeHorizon(t)
	f.submitCode = http.StatusBadRequest
	f.submitBody = `{
  "type": "https://stellar.org/horizon-errors/transaction_failed",
  "title": "Transaction Failed",
  "status": 400,
  "detail": "The transaction failed when submitted to the stellar network.",
  "extras": {
    "envelope_xdr": "",
    "result_xdr": "AAAAAAAAAGT/////AAAAAQAAAAAAAAAB////+wAAAAA=",
    "result_codes": {"transaction": "tx_failed", "operations": ["op_underfunded"]}
  }
}`

	_, err := client.Submit(context.Background(), signedPayment(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSubmissionFailed)

	var merr *model.Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "tx_failed, op_underfunded", merr.Reason)
	assert.Equal(t, "Transaction failed: tx_failed, op_underfunded.", model.Message(err))
}

func TestSubmitBadSequence(t *testing.T) {
	f, client := newFakeHorizon(t)
	f.submitCode = http.StatusBadRequest
	f.submitBody = `{
  "type": "https://stellar.org/horizon-errors/transaction_failed",
  "title": "Transaction Failed",
  "status": 400,
  "extras": {"result_codes": {"transaction": "tx_bad_seq"}}
}`

	_, err := client.Submit(context.Background(), signedPayment(t))
	var merr *model.Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, model.CodeSubmissionFailed, merr.Code)
	assert.Equal(t, "tx_bad_seq", merr.Reason)
}

func TestRateLimitHonoursContext(t *testing.T) {
	f, client := newFakeHorizon(t)
	WithRateLimit(1, 1)(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.LoadAccount(ctx, keypair.MustRandom().Address())
	assert.ErrorIs(t, err, model.ErrNetwork)
	assert.Empty(t, client.FetchTransactionHistory(ctx, keypair.MustRandom().Address(), 5))
	assert.Zero(t, f.callCount())
}

func TestPassphrase(t *testing.T) {
	client := New("https://horizon-testnet.stellar.org", network.TestNetworkPassphrase)
	assert.Equal(t, network.TestNetworkPassphrase, client.Passphrase())
}
