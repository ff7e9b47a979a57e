package model

import "github.com/shopspring/decimal"

// AssetTypeNative is the Horizon asset_type of the network's base currency.
const AssetTypeNative = "native"

// Balance is one entry of an account's balances array.
type Balance struct {
	AssetType string
	AssetCode string // empty for native
	Issuer    string // empty for native
	Amount    decimal.Decimal
}

// Account is a snapshot of ledger account state. It is loaded fresh for
// every operation that needs it.
type Account struct {
	PublicKey string
	Sequence  int64
	Balances  []Balance
}

// NativeBalance returns the native-asset balance, or false if the account
// carries no native entry.
func (a Account) NativeBalance() (decimal.Decimal, bool) {
	for _, b := range a.Balances {
		if b.AssetType == AssetTypeNative {
			return b.Amount, true
		}
	}
	return decimal.Zero, false
}
