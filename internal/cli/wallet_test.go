package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/wallet"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

func TestWalletCreate_Text(t *testing.T) {
	env := setupCLI(t)
	t.Setenv(EnvPassword, "")

	stdout := env.mustRun(t, "wallet", "create", "main", "--chain", "all", "--words", "12", "-o", "text")

	assert.Contains(t, stdout, "Mnemonic (write it down")
	assert.Contains(t, stdout, "cell  ")
	assert.Contains(t, stdout, "eth   0x")
	assert.Contains(t, env.messages.String(), "unencrypted")
}

func TestWalletCreate_JSON(t *testing.T) {
	env := setupCLI(t)
	t.Setenv(EnvPassword, testPass)

	stdout := env.mustRun(t, "wallet", "create", "main", "--words", "24", "-o", "json")

	var got walletCreated
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "main", got.Name)
	assert.True(t, got.Protected)
	assert.Len(t, strings.Fields(got.Mnemonic), 24)
	require.Len(t, got.Wallets, 1)
	assert.Equal(t, chain.TypeCell, got.Wallets[0].Chain)
	assert.NotContains(t, env.messages.String(), "unencrypted")
}

func TestWalletCreate_Errors(t *testing.T) {
	t.Run("bad word count", func(t *testing.T) {
		env := setupCLI(t)
		_, _, err := env.run(t, "", "wallet", "create", "main", "--words", "15")
		require.ErrorIs(t, err, walleterr.ErrInvalidInput)
	})

	t.Run("bad name suggests a fix", func(t *testing.T) {
		env := setupCLI(t)
		t.Setenv(EnvPassword, "")
		_, _, err := env.run(t, "", "wallet", "create", "my wallet")
		require.ErrorIs(t, err, walleterr.ErrInvalidInput)
		assert.Contains(t, walleterr.SuggestionOf(err), `"my-wallet"`)
	})

	t.Run("short password", func(t *testing.T) {
		env := setupCLI(t)
		t.Setenv(EnvPassword, "short")
		_, _, err := env.run(t, "", "wallet", "create", "main")
		require.ErrorIs(t, err, walleterr.ErrInvalidInput)
	})

	t.Run("unknown chain", func(t *testing.T) {
		env := setupCLI(t)
		_, _, err := env.run(t, "", "wallet", "create", "main", "--chain", "bsv")
		require.ErrorIs(t, err, walleterr.ErrChainNotFound)
	})

	t.Run("existing wallet", func(t *testing.T) {
		env := setupCLI(t)
		t.Setenv(EnvPassword, "")
		env.mustRun(t, "wallet", "create", "main", "-o", "json")
		_, _, err := env.run(t, "", "wallet", "create", "main", "-o", "json")
		require.ErrorIs(t, err, walleterr.ErrWalletExists)
	})
}

func TestWalletCreate_PromptedPassword(t *testing.T) {
	env := setupCLI(t)
	withMockPrompts(t, []byte(testPass), true)

	env.mustRun(t, "wallet", "create", "main", "-o", "json")

	data, err := os.ReadFile(filepath.Join(env.home, "default", "wallets", "main.walletext")) //nolint:gosec // test path
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	stdout := env.mustRun(t, "wallet", "list", "-o", "json")
	var list []wallet.Summary
	require.NoError(t, json.Unmarshal([]byte(stdout), &list))
	require.Len(t, list, 1)
	assert.True(t, list[0].Protected)
}

func TestWalletRestore(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		env := setupCLI(t)
		t.Setenv(EnvPassword, "")

		stdout := env.mustRun(t, "wallet", "restore", "main", "--chain", "eth",
			"--mnemonic-file", writeMnemonic(t), "-o", "json")

		var got walletCreated
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.Empty(t, got.Mnemonic)
		require.Len(t, got.Wallets, 1)
		assert.Equal(t, abandonETH, got.Wallets[0].Address)
	})

	t.Run("from prompt", func(t *testing.T) {
		env := setupCLI(t)
		withMockPrompts(t, nil, true)

		stdout := env.mustRun(t, "wallet", "restore", "main", "--chain", "eth", "-o", "text")
		assert.Contains(t, stdout, abandonETH)
		assert.NotContains(t, stdout, "abandon")
	})

	t.Run("same mnemonic same cell address", func(t *testing.T) {
		env := setupCLI(t)
		t.Setenv(EnvPassword, "")

		first := env.mustRun(t, "wallet", "restore", "one", "--mnemonic-file", writeMnemonic(t), "-o", "json")
		second := env.mustRun(t, "wallet", "restore", "two", "--mnemonic-file", writeMnemonic(t), "-o", "json")

		var a, b walletCreated
		require.NoError(t, json.Unmarshal([]byte(first), &a))
		require.NoError(t, json.Unmarshal([]byte(second), &b))
		assert.Equal(t, a.Wallets[0].Address, b.Wallets[0].Address)
	})

	t.Run("invalid mnemonic file", func(t *testing.T) {
		env := setupCLI(t)
		path := filepath.Join(t.TempDir(), "bad.txt")
		require.NoError(t, os.WriteFile(path, []byte("abandon abandon abandon"), 0o600))

		_, _, err := env.run(t, "", "wallet", "restore", "main", "--mnemonic-file", path)
		require.ErrorIs(t, err, walleterr.ErrInvalidMnemonic)
	})

	t.Run("misspelled word is suggested", func(t *testing.T) {
		env := setupCLI(t)
		phrase := strings.Repeat("abandon ", 11) + "abouz"
		_, _, err := env.run(t, phrase+"\n", "wallet", "restore", "main")
		require.ErrorIs(t, err, walleterr.ErrInvalidMnemonic)
		assert.Contains(t, walleterr.SuggestionOf(err), "Word 12: 'abouz' - did you mean 'about'?")
	})
}

func TestWalletAddress(t *testing.T) {
	env := setupCLI(t)
	t.Setenv(EnvPassword, testPass)
	env.mustRun(t, "wallet", "restore", "main", "--chain", "all", "--mnemonic-file", writeMnemonic(t), "-o", "json")

	stdout := env.mustRun(t, "wallet", "address", "main", "-o", "json")
	var got []wallet.Summary
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 2)
	assert.Equal(t, chain.TypeCell, got[0].Chain)
	assert.NotEmpty(t, got[0].Address)
	assert.Equal(t, abandonETH, got[1].Address)

	_, _, err := env.run(t, "", "wallet", "address", "missing")
	require.ErrorIs(t, err, walleterr.ErrWalletNotFound)
}

func TestWalletList_Empty(t *testing.T) {
	env := setupCLI(t)

	assert.Contains(t, env.mustRun(t, "wallet", "list", "-o", "text"), "No wallets found")
	assert.Equal(t, "[]\n", env.mustRun(t, "wallet", "list", "-o", "json"))
}

func TestWalletList_Table(t *testing.T) {
	env := setupCLI(t)
	t.Setenv(EnvPassword, "")
	env.mustRun(t, "wallet", "restore", "main", "--chain", "eth", "--mnemonic-file", writeMnemonic(t), "-o", "json")

	stdout := env.mustRun(t, "wallet", "list", "-o", "text")
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "PROTECTED")
	assert.Contains(t, stdout, abandonETH)
}

func TestWalletPasswd(t *testing.T) {
	env := setupCLI(t)
	t.Setenv(EnvPassword, testPass)
	env.mustRun(t, "wallet", "restore", "main", "--chain", "eth", "--mnemonic-file", writeMnemonic(t), "-o", "json")

	t.Run("new password required with env", func(t *testing.T) {
		_, _, err := env.run(t, "", "wallet", "passwd", "main", "--chain", "eth")
		require.ErrorIs(t, err, walleterr.ErrInvalidInput)
	})

	t.Run("wrong current password", func(t *testing.T) {
		t.Setenv(EnvPassword, "wrong password")
		t.Setenv(EnvNewPassword, testNewPass)
		_, _, err := env.run(t, "", "wallet", "passwd", "main", "--chain", "eth")
		require.ErrorIs(t, err, walleterr.ErrDecryptionFailed)
	})

	t.Run("changed", func(t *testing.T) {
		t.Setenv(EnvNewPassword, testNewPass)
		env.mustRun(t, "wallet", "passwd", "main", "--chain", "eth", "-o", "json")

		t.Setenv(EnvPassword, testNewPass)
		env.mustRun(t, "send", "--wallet", "main", "--chain", "eth", "--to", "0x00000000000000000000000000000000000000aa",
			"--amount", "0.1", "--yes", "-o", "json")
		require.Len(t, env.eth.sent, 1)
	})

	t.Run("protection removed", func(t *testing.T) {
		t.Setenv(EnvPassword, testNewPass)
		t.Setenv(EnvNewPassword, "")
		env.mustRun(t, "wallet", "passwd", "main", "--chain", "eth", "-o", "json")

		stdout := env.mustRun(t, "wallet", "list", "-o", "json")
		var list []wallet.Summary
		require.NoError(t, json.Unmarshal([]byte(stdout), &list))
		require.Len(t, list, 1)
		assert.False(t, list[0].Protected)
	})
}
