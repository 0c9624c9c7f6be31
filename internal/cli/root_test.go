package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/config"
	"github.com/mrz1836/dnawallet/internal/output"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{
			name: "all fields populated",
			info: BuildInfo{Version: "v1.2.3", Commit: "abc1234", Date: "2026-01-15"},
			want: "v1.2.3 (commit: abc1234, built: 2026-01-15)",
		},
		{
			name: "all fields empty",
			info: BuildInfo{},
			want: "dev (commit: unknown, built: unknown)",
		},
		{
			name: "only version empty",
			info: BuildInfo{Commit: "def5678", Date: "2026-02-20"},
			want: "dev (commit: def5678, built: 2026-02-20)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatVersion(tc.info))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	env := setupCLI(t)
	SetBuildInfo(BuildInfo{Version: "v0.3.0", Commit: "abc"})
	t.Cleanup(func() { SetBuildInfo(BuildInfo{}) })

	stdout := env.mustRun(t, "version", "-o", "text")
	assert.Equal(t, "dnawallet v0.3.0 (commit: abc, built: unknown)\n", stdout)

	stdout = env.mustRun(t, "version", "-o", "json")
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "v0.3.0", got["version"])
	assert.Equal(t, "unknown", got["date"])
	assert.NotEmpty(t, got["go"])
}

func TestParseChains(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []chain.Type
		wantErr error
	}{
		{name: "single", in: []string{"eth"}, want: []chain.Type{chain.TypeETH}},
		{name: "all", in: []string{"all"}, want: []chain.Type{chain.TypeCell, chain.TypeETH}},
		{name: "dedupe", in: []string{"cell", "cell", "eth"}, want: []chain.Type{chain.TypeCell, chain.TypeETH}},
		{name: "unknown", in: []string{"bsv"}, wantErr: walleterr.ErrChainNotFound},
		{name: "empty", in: nil, wantErr: walleterr.ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseChains(tc.in)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, walleterr.ExitSuccess, ExitCode(nil))
	assert.Equal(t, walleterr.ExitInput, ExitCode(walleterr.ErrInvalidInput))
}

func TestExecute_InvalidConfig(t *testing.T) {
	env := setupCLI(t)
	t.Setenv(config.EnvRPC, "ftp://node.example.com")

	_, stderr, err := env.run(t, "", "wallet", "list", "-o", "json")
	require.ErrorIs(t, err, walleterr.ErrConfigInvalid)

	var got output.ErrorOutput
	require.NoError(t, json.Unmarshal([]byte(stderr), &got))
	assert.Equal(t, walleterr.ErrConfigInvalid.Code, got.Error.Code)
	assert.Contains(t, got.Error.Details["reason"], "unsupported scheme")
}

func TestExecute_ConfigFileIsRead(t *testing.T) {
	env := setupCLI(t)

	cfg := config.Defaults()
	cfg.Home = env.home
	cfg.Identity = "alice"
	require.NoError(t, config.Save(cfg, config.Path(env.home)))

	t.Setenv(EnvPassword, "")
	env.mustRun(t, "wallet", "restore", "main", "--chain", "eth", "--mnemonic-file", writeMnemonic(t))

	_, err := os.Stat(filepath.Join(env.home, "alice", "wallets", "eth", "main.eth.json"))
	require.NoError(t, err)
}

func TestExecute_WritesMetricsFile(t *testing.T) {
	env := setupCLI(t)
	path := filepath.Join(t.TempDir(), "metrics.prom")

	t.Setenv(EnvPassword, "")
	env.mustRun(t, "--metrics-file", path, "wallet", "create", "main", "--words", "12", "-o", "json")

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Contains(t, string(data), "dnawallet_wallet_operations_total")
}

func writeMnemonic(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("1. abandon 2. abandon 3. abandon 4. abandon 5. abandon 6. abandon\n"+
		"7. abandon 8. abandon 9. abandon 10. abandon 11. abandon 12. about\n"), 0o600))
	return path
}
