package payment

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/strkey"

	"github.com/stellarpay-dev/stellarpay/internal/model"
)

// Exponent bounds checked before any arithmetic; rescaling a decimal with
// an extreme exponent costs time and memory proportional to the exponent.
const (
	maxAmountExponent = 12
	minAmountExponent = -64
)

// maxAmount is the largest amount the ledger can represent (int64 stroops).
var maxAmount = decimal.RequireFromString("922337203685.4775807")

// ValidateDestination checks that dest is a well-formed account key.
// It makes no network call.
func ValidateDestination(dest string) (string, error) {
	dest = strings.TrimSpace(dest)
	if !strkey.IsValidEd25519PublicKey(dest) {
		return "", model.Errorf(model.CodeInvalidDestination, "%q is not an account key", dest)
	}
	return dest, nil
}

// ParseAmount parses a user-entered amount. It must be strictly positive,
// remain positive at the ledger's seven-place precision, and fit the
// ledger's range.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &model.Error{Code: model.CodeInvalidAmount, Reason: "not a number", Err: err}
	}
	if exp := amount.Exponent(); exp > maxAmountExponent || exp < minAmountExponent {
		return decimal.Zero, model.Errorf(model.CodeInvalidAmount, "%s is out of range", s)
	}
	if !amount.IsPositive() || !amount.Round(model.LedgerAmountPlaces).IsPositive() {
		return decimal.Zero, model.Errorf(model.CodeInvalidAmount, "%s is not a positive amount", s)
	}
	if amount.GreaterThan(maxAmount) {
		return decimal.Zero, model.Errorf(model.CodeInvalidAmount, "%s exceeds the largest ledger amount", s)
	}
	return amount, nil
}

// FormatAmount renders an amount at the ledger's fixed precision.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(model.LedgerAmountPlaces)
}

// NormalizeMemo trims memo and cuts it to the ledger's text memo limit
// without splitting a UTF-8 sequence. An empty result means no memo.
func NormalizeMemo(memo string) string {
	memo = strings.TrimSpace(memo)
	if len(memo) <= model.MaxMemoLength {
		return memo
	}
	cut := model.MaxMemoLength
	for cut > 0 && !utf8.RuneStart(memo[cut]) {
		cut--
	}
	return memo[:cut]
}
