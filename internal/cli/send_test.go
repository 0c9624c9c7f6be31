package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/txstore"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

const ethRecipient = "0x00000000000000000000000000000000000000aa"

// restoreTestWallet restores abandon12 as wallet "main" on the given chains.
func restoreTestWallet(t *testing.T, env *testEnv, password string, chains string) {
	t.Helper()
	t.Setenv(EnvPassword, password)
	env.mustRun(t, "wallet", "restore", "main", "--chain", chains, "--mnemonic-file", writeMnemonic(t), "-o", "json")
}

func TestSend_ETH(t *testing.T) {
	env := setupCLI(t)
	restoreTestWallet(t, env, testPass, "eth")

	stdout := env.mustRun(t, "send", "--wallet", "main", "--chain", "eth", "--to", ethRecipient,
		"--amount", "1.5", "--yes", "-o", "json")

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "0xABCDEF", got["hash"])
	assert.Equal(t, "eth", got["chain"])

	require.Len(t, env.eth.sent, 1)
	req := env.eth.sent[0]
	assert.Equal(t, abandonETH, req.From)
	assert.Equal(t, ethRecipient, req.To)
	want, err := chain.ParseAmount("1.5", 18)
	require.NoError(t, err)
	assert.Equal(t, want, req.Amount)
	assert.Equal(t, []int{32}, env.eth.keyLens)
	assert.Len(t, req.PublicKey, 65)
}

func TestSend_Cell(t *testing.T) {
	env := setupCLI(t)
	restoreTestWallet(t, env, "", "cell")

	stdout := env.mustRun(t, "send", "--wallet", "main", "--to", "recipient", "--amount", "2",
		"--fee", "0.1", "--data", "memo", "--data-type", "7", "--yes", "-o", "text")
	assert.Contains(t, stdout, "Transaction submitted: 0xABCDEF")

	require.Len(t, env.cell.sent, 1)
	req := env.cell.sent[0]
	assert.Equal(t, []byte("memo"), req.CustomData)
	assert.Equal(t, uint16(7), req.DataType)
	fee, err := chain.ParseAmount("0.1", 18)
	require.NoError(t, err)
	assert.Equal(t, fee, req.ValidatorFee)
	assert.NotEmpty(t, req.PublicKey)
	assert.Positive(t, env.cell.keyLens[0])
}

func TestSend_Confirmation(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		env := setupCLI(t)
		restoreTestWallet(t, env, "", "eth")
		withMockPrompts(t, nil, false)

		stdout := env.mustRun(t, "send", "--wallet", "main", "--chain", "eth", "--to", ethRecipient,
			"--amount", "1", "-o", "text")
		assert.Contains(t, stdout, "Fee:    0.000000000000001 ETH")
		assert.Empty(t, env.eth.sent)
		assert.Contains(t, env.messages.String(), "cancelled")
	})

	t.Run("accepted", func(t *testing.T) {
		env := setupCLI(t)
		restoreTestWallet(t, env, "", "eth")
		withMockPrompts(t, nil, true)

		env.mustRun(t, "send", "--wallet", "main", "--chain", "eth", "--to", ethRecipient, "--amount", "1", "-o", "text")
		assert.Len(t, env.eth.sent, 1)
	})

	t.Run("json needs --yes", func(t *testing.T) {
		env := setupCLI(t)
		restoreTestWallet(t, env, "", "eth")

		_, _, err := env.run(t, "", "send", "--wallet", "main", "--chain", "eth", "--to", ethRecipient,
			"--amount", "1", "-o", "json")
		require.ErrorIs(t, err, walleterr.ErrInvalidInput)
		assert.Empty(t, env.eth.sent)
	})
}

func TestSend_Errors(t *testing.T) {
	env := setupCLI(t)
	restoreTestWallet(t, env, testPass, "all")

	tests := []struct {
		name    string
		pass    string
		args    []string
		wantErr error
	}{
		{
			name:    "wrong password",
			pass:    "not the password",
			args:    []string{"--chain", "eth", "--to", ethRecipient, "--amount", "1"},
			wantErr: walleterr.ErrDecryptionFailed,
		},
		{
			name:    "bad amount",
			pass:    testPass,
			args:    []string{"--chain", "eth", "--to", ethRecipient, "--amount", "-1"},
			wantErr: walleterr.ErrInvalidAmount,
		},
		{
			name:    "too many decimals",
			pass:    testPass,
			args:    []string{"--to", "recipient", "--amount", "0.0000000000000000001"},
			wantErr: walleterr.ErrInvalidAmount,
		},
		{
			name:    "bad recipient",
			pass:    testPass,
			args:    []string{"--to", "bad", "--amount", "1"},
			wantErr: walleterr.ErrInvalidAddress,
		},
		{
			name:    "fee on eth",
			pass:    testPass,
			args:    []string{"--chain", "eth", "--to", ethRecipient, "--amount", "1", "--fee", "0.1"},
			wantErr: walleterr.ErrInvalidInput,
		},
		{
			name:    "unknown wallet",
			pass:    testPass,
			args:    []string{"--wallet", "other", "--to", "recipient", "--amount", "1"},
			wantErr: walleterr.ErrWalletNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvPassword, tc.pass)
			args := append([]string{"send", "--wallet", "main", "--yes", "-o", "json"}, tc.args...)
			_, _, err := env.run(t, "", args...)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
	assert.Empty(t, env.cell.sent)
	assert.Empty(t, env.eth.sent)
}

func TestSend_NotRetried(t *testing.T) {
	env := setupCLI(t)
	restoreTestWallet(t, env, "", "eth")
	env.eth.sendErr = walleterr.WithDetails(walleterr.ErrNetworkError, map[string]string{"endpoint": "stub"})

	_, stderr, err := env.run(t, "", "send", "--wallet", "main", "--chain", "eth", "--to", ethRecipient,
		"--amount", "1", "--yes", "-o", "json")
	require.ErrorIs(t, err, walleterr.ErrNetworkError)
	assert.Len(t, env.eth.sent, 1)
	assert.Contains(t, stderr, walleterr.ErrNetworkError.Code)
}

func TestBalance(t *testing.T) {
	env := setupCLI(t)
	restoreTestWallet(t, env, testPass, "all")
	env.cell.balance = uint256.NewInt(2_500_000_000_000_000_000)
	env.eth.balance = uint256.NewInt(1_000_000_000_000_000)

	stdout := env.mustRun(t, "balance", "main", "-o", "json")

	var rows []balanceRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, chain.TypeCell, rows[0].Chain)
	assert.Equal(t, "2.5", rows[0].Balance)
	assert.Equal(t, "CELL", rows[0].Ticker)
	assert.Equal(t, "2500000000000000000", rows[0].Raw)
	assert.Equal(t, abandonETH, rows[1].Address)
	assert.Equal(t, "0.001", rows[1].Balance)
}

func TestBalance_TextAndTicker(t *testing.T) {
	env := setupCLI(t)
	restoreTestWallet(t, env, "", "cell")
	env.cell.balance = uint256.NewInt(7)

	stdout := env.mustRun(t, "balance", "main", "--chain", "cell", "--ticker", "KEL", "-o", "text")
	assert.Contains(t, stdout, "0.000000000000000007 KEL")
}

func TestBalance_Address(t *testing.T) {
	env := setupCLI(t)

	stdout := env.mustRun(t, "balance", "--chain", "eth", "--address", ethRecipient, "-o", "json")
	var rows []balanceRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Wallet)
	assert.Equal(t, ethRecipient, rows[0].Address)

	_, _, err := env.run(t, "", "balance", "--address", ethRecipient)
	require.ErrorIs(t, err, walleterr.ErrInvalidInput)

	_, _, err = env.run(t, "", "balance", "--chain", "eth", "--address", "bad")
	require.ErrorIs(t, err, walleterr.ErrInvalidAddress)

	_, _, err = env.run(t, "", "balance")
	require.ErrorIs(t, err, walleterr.ErrInvalidInput)
}

func TestBalance_CachedFallback(t *testing.T) {
	env := setupCLI(t)
	restoreTestWallet(t, env, "", "eth")
	env.eth.balance = uint256.NewInt(5)
	env.mustRun(t, "balance", "main", "--chain", "eth", "-o", "json")

	env.eth.balanceErr = walleterr.WithDetails(walleterr.ErrNetworkError, map[string]string{"endpoint": "stub"})
	stdout := env.mustRun(t, "balance", "main", "--chain", "eth", "-o", "json")

	var rows []balanceRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Cached)
	assert.Equal(t, "5", rows[0].Raw)
	require.NotNil(t, rows[0].UpdatedAt)
	assert.Contains(t, env.messages.String(), "unreachable")
	assert.Equal(t, 1+retryConfig.MaxAttempts, env.eth.balCalls)

	t.Run("permanent errors are not masked", func(t *testing.T) {
		env.eth.balanceErr = walleterr.ErrInvalidAddress
		_, _, err := env.run(t, "", "balance", "main", "--chain", "eth")
		require.ErrorIs(t, err, walleterr.ErrInvalidAddress)
	})

	t.Run("no cache entry", func(t *testing.T) {
		env.eth.balanceErr = walleterr.ErrNetworkError
		_, _, err := env.run(t, "", "balance", "--chain", "eth", "--address", ethRecipient)
		require.ErrorIs(t, err, walleterr.ErrNetworkError)
	})
}

func TestTxStatus(t *testing.T) {
	env := setupCLI(t)
	env.cell.status = &chain.TxStatusResult{Hash: "0xAA", Status: chain.StatusConfirmed, Confirmations: 3}

	stdout := env.mustRun(t, "tx", "status", "0xAA", "-o", "text")
	assert.Contains(t, stdout, "Status: confirmed")
	assert.Contains(t, stdout, "Confirmations: 3")

	stdout = env.mustRun(t, "tx", "status", "0xBB", "--chain", "eth", "-o", "json")
	var got chain.TxStatusResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, chain.StatusNotFound, got.Status)
}

func TestTxList(t *testing.T) {
	env := setupCLI(t)
	assert.Contains(t, env.mustRun(t, "tx", "list", "-o", "text"), "No transactions recorded.")

	journal, err := txstore.Open(filepath.Join(env.home, "journal"), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, journal.Put(&txstore.Record{Hash: "0xAA", Chain: "cell", Amount: "1", Ticker: "CELL", To: "r1"}))
	require.NoError(t, journal.Put(&txstore.Record{Hash: "0xBB", Chain: "eth", Amount: "2", Ticker: "ETH", To: "r2"}))
	require.NoError(t, journal.Close())

	stdout := env.mustRun(t, "tx", "list", "--chain", "eth", "-o", "json")
	var recs []txstore.Record
	require.NoError(t, json.Unmarshal([]byte(stdout), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "0xBB", recs[0].Hash)
	assert.Equal(t, txstore.StatusPending, recs[0].Status)

	stdout = env.mustRun(t, "tx", "list", "-o", "text")
	assert.Contains(t, stdout, "0xAA")
	assert.Contains(t, stdout, "2 ETH")
}

func TestUnlockWallet_RequiresName(t *testing.T) {
	env := setupCLI(t)
	_, _, err := env.run(t, "", "send", "--to", "recipient", "--amount", "1", "--yes")
	require.ErrorIs(t, err, walleterr.ErrInvalidInput)
	assert.False(t, errors.Is(err, walleterr.ErrWalletNotFound))
}
