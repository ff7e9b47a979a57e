// Package wallet talks to an external signer that holds the user's key.
//
// Signer builds disagree on method availability and response shapes, so
// Bridge probes the live API at call time and normalises what comes back.
// Key material never crosses this boundary: only public keys and signed
// envelopes do.
package wallet
