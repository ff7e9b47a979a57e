package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxMemoLength is the ledger's limit for a text memo, in bytes.
	MaxMemoLength = 28
	// BalanceDisplayPlaces is the precision balances are shown with.
	BalanceDisplayPlaces = 4
	// LedgerAmountPlaces is the ledger's fixed amount precision.
	LedgerAmountPlaces = 7
	// DefaultHistoryLimit is how many recent transactions a session shows.
	DefaultHistoryLimit = 5
	// TxTimeoutSeconds is the validity window of every built transaction.
	TxTimeoutSeconds = 180
)

// MinStartingBalance is the reserve needed to activate a new account (1 XLM).
var MinStartingBalance = decimal.NewFromInt(1)

// TransactionIntent is what the user asked for. It lives for one submit
// attempt and is discarded once the attempt resolves.
type TransactionIntent struct {
	Destination string
	Amount      string // decimal string as typed
	Memo        string // optional
}

// DestinationExistence is resolved once per intent and decides the
// operation type.
type DestinationExistence int

const (
	DestinationExists DestinationExistence = iota + 1
	DestinationNotExists
)

func (d DestinationExistence) String() string {
	switch d {
	case DestinationExists:
		return "exists"
	case DestinationNotExists:
		return "not-exists"
	}
	return "unresolved"
}

// TransactionRecord is a read-only projection of one ledger history entry.
type TransactionRecord struct {
	Hash       string
	CreatedAt  time.Time
	Successful bool
	Ledger     int32
}
