// Package ledger reads and writes the Stellar ledger through Horizon.
//
// Every call is paced by a token-bucket limiter so interactive refreshes
// stay inside Horizon's per-client quota. No timeout is added on top of
// the caller's context.
package ledger
