package ledger

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/require"
)

const notFoundProblem = `{
  "type": "https://stellar.org/horizon-errors/not_found",
  "title": "Resource Missing",
  "status": 404,
  "detail": "The resource at the url requested was not found."
}`

// fakeHorizon serves the handful of Horizon endpoints the client touches.
type fakeHorizon struct {
	mu          sync.Mutex
	accounts    map[string]string // account ID -> account JSON
	accountCode int               // non-zero forces this status on account lookups
	txPages     map[string]string // account ID -> transactions page JSON
	txCode      int
	submitCode  int
	submitBody  string
	submitted   []string
	queries     []string
	calls       int
}

func newFakeHorizon(t *testing.T) (*fakeHorizon, *Client) {
	t.Helper()
	f := &fakeHorizon{
		accounts: map[string]string{},
		txPages:  map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /accounts/{id}", f.account)
	mux.HandleFunc("GET /accounts/{id}/transactions", f.transactions)
	mux.HandleFunc("POST /transactions", f.submit)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.count()
		writeJSON(w, http.StatusNotFound, notFoundProblem)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return f, New(srv.URL, network.TestNetworkPassphrase, WithHTTPClient(srv.Client()))
}

func (f *fakeHorizon) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeHorizon) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeHorizon) account(w http.ResponseWriter, r *http.Request) {
	f.count()
	f.mu.Lock()
	body, ok := f.accounts[r.PathValue("id")]
	code := f.accountCode
	f.mu.Unlock()

	switch {
	case code != 0:
		writeJSON(w, code, fmt.Sprintf(`{"type":"https://stellar.org/horizon-errors/server_error","title":"Internal Server Error","status":%d}`, code))
	case !ok:
		writeJSON(w, http.StatusNotFound, notFoundProblem)
	default:
		writeJSON(w, http.StatusOK, body)
	}
}

func (f *fakeHorizon) transactions(w http.ResponseWriter, r *http.Request) {
	f.count()
	f.mu.Lock()
	f.queries = append(f.queries, r.URL.RawQuery)
	body, ok := f.txPages[r.PathValue("id")]
	code := f.txCode
	f.mu.Unlock()

	switch {
	case code != 0:
		writeJSON(w, code, fmt.Sprintf(`{"title":"Error","status":%d}`, code))
	case !ok:
		writeJSON(w, http.StatusNotFound, notFoundProblem)
	default:
		writeJSON(w, http.StatusOK, body)
	}
}

func (f *fakeHorizon) submit(w http.ResponseWriter, r *http.Request) {
	f.count()
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.submitted = append(f.submitted, r.PostForm.Get("tx"))
	code, body := f.submitCode, f.submitBody
	f.mu.Unlock()

	if code == 0 {
		code = http.StatusOK
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/hal+json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// accountJSON renders a minimal Horizon account resource. Each balance is
// a raw JSON object.
func accountJSON(id string, seq int64, balances ...string) string {
	return fmt.Sprintf(`{
  "id": %[1]q,
  "account_id": %[1]q,
  "sequence": "%[2]d",
  "subentry_count": 0,
  "last_modified_ledger": 100,
  "thresholds": {"low_threshold": 0, "med_threshold": 0, "high_threshold": 0},
  "flags": {"auth_required": false, "auth_revocable": false},
  "balances": [%[3]s],
  "signers": [{"weight": 1, "key": %[1]q, "type": "ed25519_public_key"}],
  "data": {},
  "paging_token": %[1]q
}`, id, seq, strings.Join(balances, ","))
}

func nativeBalance(amount string) string {
	return fmt.Sprintf(`{"balance": %q, "asset_type": "native"}`, amount)
}

func creditBalance(code, issuer, amount string) string {
	return fmt.Sprintf(`{"balance": %q, "limit": "1000.0000000", "asset_type": "credit_alphanum4", "asset_code": %q, "asset_issuer": %q}`, amount, code, issuer)
}

// transactionJSON renders a minimal Horizon transaction resource.
func transactionJSON(hash string, ledger int32, createdAt string, successful bool) string {
	return fmt.Sprintf(`{
  "id": %[1]q,
  "paging_token": "%[2]d",
  "successful": %[4]t,
  "hash": %[1]q,
  "ledger": %[2]d,
  "created_at": %[3]q,
  "source_account": "GAAZI4TCR3TY5OJHCTJC2A4QSY6CJWJH5IAJTGKIN2ER7LBNVKOCCWN7",
  "source_account_sequence": "1",
  "fee_account": "GAAZI4TCR3TY5OJHCTJC2A4QSY6CJWJH5IAJTGKIN2ER7LBNVKOCCWN7",
  "fee_charged": "100",
  "max_fee": "100",
  "operation_count": 1,
  "memo_type": "none",
  "signatures": []
}`, hash, ledger, createdAt, successful)
}

func transactionsPage(records ...string) string {
	return fmt.Sprintf(`{"_links": {}, "_embedded": {"records": [%s]}}`, strings.Join(records, ","))
}

// signedPayment builds a signed single-payment transaction.
func signedPayment(t *testing.T) *txnbuild.Transaction {
	t.Helper()
	source := keypair.MustRandom()
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: source.Address(), Sequence: 41},
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{&txnbuild.Payment{
			Destination: keypair.MustRandom().Address(),
			Amount:      "1.0000000",
			Asset:       txnbuild.NativeAsset{},
		}},
		BaseFee:       txnbuild.MinBaseFee,
		Memo:          txnbuild.MemoText("rent"),
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(180)},
	})
	require.NoError(t, err)
	tx, err = tx.Sign(network.TestNetworkPassphrase, source)
	require.NoError(t, err)
	return tx
}
