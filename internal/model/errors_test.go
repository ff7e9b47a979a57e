package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("sending: %w", NewError(CodeVerificationFailed, errors.New("503")))

	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, CodeVerificationFailed, CodeOf(err))
	assert.Equal(t, KindAccount, KindOf(err))
}

func TestCodeKinds(t *testing.T) {
	tests := []struct {
		code Code
		want Kind
	}{
		{CodeInvalidDestination, KindValidation},
		{CodeInvalidAmount, KindValidation},
		{CodeInsufficientStartingBalance, KindValidation},
		{CodeWalletUnavailable, KindWallet},
		{CodeSigningRejected, KindWallet},
		{CodeNetworkError, KindNetwork},
		{CodeAccountNotFound, KindAccount},
		{CodeVerificationFailed, KindAccount},
		{CodeSourceLoadFailed, KindAccount},
		{CodeSubmissionFailed, KindSubmission},
		{CodeNetworkMismatch, KindSubmission},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.Kind(), "Kind(%s)", tt.code)
	}
	assert.True(t, KindNetwork.Retryable())
	assert.False(t, KindSubmission.Retryable())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "Invalid destination address.", Message(ErrInvalidDestination))
	assert.Equal(t, "Transaction failed: tx_bad_seq.", Message(Errorf(CodeSubmissionFailed, "tx_bad_seq")))
	assert.Equal(t, "Transaction failed.", Message(NewError(CodeSubmissionFailed, errors.New("boom"))))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}

func TestErrorString(t *testing.T) {
	err := &Error{Code: CodeSubmissionFailed, Reason: "tx_failed", Err: errors.New("400")}
	assert.Equal(t, "SubmissionFailed: tx_failed: 400", err.Error())
}
