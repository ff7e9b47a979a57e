package model

import (
	"errors"
	"fmt"
)

// Kind groups error codes by who has to act on them.
type Kind string

const (
	KindValidation Kind = "ValidationError"
	KindWallet     Kind = "WalletError"
	KindNetwork    Kind = "NetworkError"
	KindAccount    Kind = "AccountError"
	KindSubmission Kind = "SubmissionError"
)

// Retryable reports whether repeating the same call may succeed without
// user remediation. Even then a retry is a fresh run of the whole flow.
func (k Kind) Retryable() bool {
	return k == KindNetwork
}

// Code identifies a specific failure.
type Code string

const (
	CodeInvalidDestination          Code = "InvalidDestination"
	CodeInvalidAmount               Code = "InvalidAmount"
	CodeInsufficientStartingBalance Code = "InsufficientStartingBalance"
	CodeWalletUnavailable           Code = "WalletUnavailable"
	CodeSigningRejected             Code = "SigningRejected"
	CodeNetworkError                Code = "NetworkError"
	CodeAccountNotFound             Code = "AccountNotFound"
	CodeVerificationFailed          Code = "VerificationFailed"
	CodeSourceLoadFailed            Code = "SourceLoadFailed"
	CodeSubmissionFailed            Code = "SubmissionFailed"
	CodeNetworkMismatch             Code = "NetworkMismatch"
)

// Kind returns the taxonomy group of c.
func (c Code) Kind() Kind {
	switch c {
	case CodeInvalidDestination, CodeInvalidAmount, CodeInsufficientStartingBalance:
		return KindValidation
	case CodeWalletUnavailable, CodeSigningRejected:
		return KindWallet
	case CodeAccountNotFound, CodeVerificationFailed, CodeSourceLoadFailed:
		return KindAccount
	case CodeSubmissionFailed, CodeNetworkMismatch:
		return KindSubmission
	}
	return KindNetwork
}

// Error is the error type returned across package boundaries.
type Error struct {
	Code   Code
	Reason string // ledger rejection reason or other detail
	Err    error
}

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrInvalidDestination          = &Error{Code: CodeInvalidDestination}
	ErrInvalidAmount               = &Error{Code: CodeInvalidAmount}
	ErrInsufficientStartingBalance = &Error{Code: CodeInsufficientStartingBalance}
	ErrWalletUnavailable           = &Error{Code: CodeWalletUnavailable}
	ErrSigningRejected             = &Error{Code: CodeSigningRejected}
	ErrNetwork                     = &Error{Code: CodeNetworkError}
	ErrAccountNotFound             = &Error{Code: CodeAccountNotFound}
	ErrVerificationFailed          = &Error{Code: CodeVerificationFailed}
	ErrSourceLoadFailed            = &Error{Code: CodeSourceLoadFailed}
	ErrSubmissionFailed            = &Error{Code: CodeSubmissionFailed}
	ErrNetworkMismatch             = &Error{Code: CodeNetworkMismatch}
)

// NewError wraps err under code.
func NewError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Errorf builds an *Error whose reason is formatted from args.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// KindOf returns the taxonomy group of err. Unclassified errors are
// treated as network errors.
func KindOf(err error) Kind {
	return CodeOf(err).Kind()
}

var messages = map[Code]string{
	CodeInvalidDestination:          "Invalid destination address.",
	CodeInvalidAmount:               "Amount must be a positive number.",
	CodeInsufficientStartingBalance: "Minimum 1 XLM required to activate a new account.",
	CodeWalletUnavailable:           "Could not retrieve public key. Please unlock Freighter.",
	CodeSigningRejected:             "Transaction was not signed by the wallet.",
	CodeNetworkError:                "Could not reach the Stellar network. Please try again.",
	CodeAccountNotFound:             "Account not found. It may not be funded on testnet.",
	CodeVerificationFailed:          "Could not verify destination account.",
	CodeSourceLoadFailed:            "Could not load your account. Make sure it is funded on testnet.",
	CodeSubmissionFailed:            "Transaction failed.",
	CodeNetworkMismatch:             "Signed transaction does not match the transaction or network it was built for.",
}

// Message renders err as the single human-readable line shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	msg, ok := messages[e.Code]
	if !ok {
		msg = "Transaction failed."
	}
	if e.Code == CodeSubmissionFailed && e.Reason != "" {
		msg = "Transaction failed: " + e.Reason + "."
	}
	return msg
}
