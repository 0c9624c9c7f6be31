package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

var errRootCause = errors.New("root cause")

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, walleterr.ExitSuccess},
		{"general error", walleterr.ErrGeneral, walleterr.ExitGeneral},
		{"input error", walleterr.ErrInvalidInput, walleterr.ExitInput},
		{"wrong password", walleterr.ErrDecryptionFailed, walleterr.ExitAuth},
		{"not found", walleterr.ErrWalletNotFound, walleterr.ExitNotFound},
		{"insufficient funds", walleterr.ErrInsufficientFunds, walleterr.ExitPermission},
		{"corrupt wallet", walleterr.ErrWalletCorrupt, walleterr.ExitIntegrity},
		{"plain error", errRootCause, walleterr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, walleterr.ExitCode(tt.err))
		})
	}
}

func TestWrapPreservesIdentity(t *testing.T) {
	t.Parallel()

	wrapped := walleterr.Wrap(walleterr.ErrInsufficientFunds, "send %s", "cell")
	require.ErrorIs(t, wrapped, walleterr.ErrInsufficientFunds)
	assert.Equal(t, walleterr.ExitPermission, walleterr.ExitCode(wrapped))
	assert.Equal(t, walleterr.CategoryResource, walleterr.CategoryOf(wrapped))
	assert.Contains(t, wrapped.Error(), "send cell")

	// Plain errors become GENERAL_ERROR but keep their cause.
	plain := walleterr.Wrap(errRootCause, "context")
	require.ErrorIs(t, plain, errRootCause)
	assert.Equal(t, "GENERAL_ERROR", walleterr.Code(plain))

	assert.NoError(t, walleterr.Wrap(nil, "ignored"))
}

func TestFmtWrappingKeepsCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("loading key: %w", walleterr.ErrDecryptionFailed)
	assert.Equal(t, "DECRYPTION_FAILED", walleterr.Code(err))
	assert.Equal(t, walleterr.CategoryCrypto, walleterr.CategoryOf(err))
	require.ErrorIs(t, err, walleterr.ErrDecryptionFailed)
}

func TestWithDetails(t *testing.T) {
	t.Parallel()

	err := walleterr.WithDetails(walleterr.ErrInsufficientFunds, map[string]string{
		"required":  "100",
		"available": "20",
	})
	require.ErrorIs(t, err, walleterr.ErrInsufficientFunds)
	// Details are rendered sorted by key.
	assert.Equal(t, "insufficient funds for transaction (available: 20) (required: 100)", err.Error())
}

func TestWithSuggestion(t *testing.T) {
	t.Parallel()

	err := walleterr.WithSuggestion(walleterr.ErrInvalidMnemonic, "did you mean 'abandon'?")
	require.ErrorIs(t, err, walleterr.ErrInvalidMnemonic)
	assert.Equal(t, "did you mean 'abandon'?", walleterr.SuggestionOf(err))

	plain := walleterr.WithSuggestion(errRootCause, "try again")
	assert.Equal(t, "try again", walleterr.SuggestionOf(plain))
	assert.Empty(t, walleterr.SuggestionOf(errRootCause))
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.True(t, walleterr.IsTransient(walleterr.ErrNetworkError))
	assert.True(t, walleterr.IsTransient(fmt.Errorf("balance: %w", walleterr.ErrMalformedResponse)))
	assert.False(t, walleterr.IsTransient(walleterr.ErrTxRejected))
	assert.False(t, walleterr.IsTransient(walleterr.ErrTxNotCreated))
	assert.False(t, walleterr.IsTransient(errRootCause))
	assert.False(t, walleterr.IsTransient(nil))
}

func TestDistinctNetworkOutcomes(t *testing.T) {
	t.Parallel()

	// A transaction that reached the node but was not created is not a network failure.
	assert.NotErrorIs(t, walleterr.ErrTxNotCreated, walleterr.ErrNetworkError)
	assert.NotErrorIs(t, walleterr.ErrTxRejected, walleterr.ErrTxNotCreated)
}
