package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stellarpay-dev/stellarpay/internal/model"
	"github.com/stellarpay-dev/stellarpay/internal/payment"
	"github.com/stellarpay-dev/stellarpay/internal/session"
)

// Shortening widths for hashes in history rows and send results.
const (
	historyHashHead = 12
	historyHashTail = 8
	resultHashHead  = 16
	resultHashTail  = 8
	keyHead         = 6
	keyTail         = 6
)

// Shorten returns s as "<head>...<tail>", or s unchanged when it is too
// short to benefit.
func Shorten(s string, head, tail int) string {
	if len(s) <= head+tail+3 {
		return s
	}
	return s[:head] + "..." + s[len(s)-tail:]
}

// ShortKey returns an account key like "GABCDE...UVWXYZ".
func ShortKey(key string) string {
	return Shorten(key, keyHead, keyTail)
}

// ShortHash returns a transaction hash shortened for a history row.
func ShortHash(hash string) string {
	return Shorten(hash, historyHashHead, historyHashTail)
}

// ResultHash returns a transaction hash shortened for a send result.
func ResultHash(hash string) string {
	return Shorten(hash, resultHashHead, resultHashTail)
}

// ExplorerURL returns the explorer page for a transaction hash.
// "https://stellar.expert/explorer/testnet" + "ab12" -> ".../tx/ab12"
func ExplorerURL(base, hash string) string {
	return strings.TrimRight(base, "/") + "/tx/" + hash
}

// Balance formats a balance string to four decimal places. Unparseable
// input is returned as-is.
func Balance(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return d.StringFixed(model.BalanceDisplayPlaces)
}

// Status reports a record's outcome.
func Status(r model.TransactionRecord) string {
	if r.Successful {
		return "success"
	}
	return "failed"
}

// Printer writes session views as plain text.
type Printer struct {
	W           io.Writer
	ExplorerURL string
}

// Account prints the key and balance lines.
func (p Printer) Account(v session.View) {
	fmt.Fprintf(p.W, "Account: %s\n", v.PublicKey)
	switch {
	case v.BalanceNote != "":
		fmt.Fprintf(p.W, "Balance: unavailable (%s)\n", v.BalanceNote)
	case v.Balance == "":
		fmt.Fprintln(p.W, "Balance: loading")
	default:
		fmt.Fprintf(p.W, "Balance: %s XLM\n", Balance(v.Balance))
	}
}

// History prints one line per record, newest first.
func (p Printer) History(records []model.TransactionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(p.W, "No transactions yet.")
		return
	}
	for _, r := range records {
		fmt.Fprintf(p.W, "%-23s  %s  %-7s  %s\n",
			ShortHash(r.Hash),
			r.CreatedAt.UTC().Format(time.DateTime),
			Status(r),
			ExplorerURL(p.ExplorerURL, r.Hash))
	}
}

// Result prints a successful send.
func (p Printer) Result(r payment.Result) {
	verb := "Sent"
	if r.Operation == payment.OperationCreateAccount {
		verb = "Created account with"
	}
	fmt.Fprintf(p.W, "%s %s XLM to %s\n", verb, r.Amount, ShortKey(r.Destination))
	if r.Memo != "" {
		fmt.Fprintf(p.W, "Memo: %s\n", r.Memo)
	}
	fmt.Fprintf(p.W, "Hash: %s\n", ResultHash(r.Hash))
	fmt.Fprintf(p.W, "View: %s\n", ExplorerURL(p.ExplorerURL, r.Hash))
}

// View prints the whole session.
func (p Printer) View(v session.View) {
	fmt.Fprintf(p.W, "State: %s\n", v.State)
	if v.Message != "" {
		fmt.Fprintf(p.W, "Error: %s\n", v.Message)
	}
	if v.PublicKey == "" {
		return
	}
	p.Account(v)
	if v.Result != nil {
		p.Result(*v.Result)
	}
	fmt.Fprintln(p.W, "Recent transactions:")
	p.History(v.History)
}
