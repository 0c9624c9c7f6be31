package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/dnawallet/internal/config"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

func TestLoadSave_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := config.Defaults()
	cfg.Network.RPC = "https://node.example.org/rpc"
	cfg.Network.FallbackRPCs = []string{"https://backup.example.org/rpc"}
	cfg.Network.FeeCollector = "collector"
	cfg.ETH.ChainID = 11155111

	require.NoError(t, config.Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network:\n  name: KelVPN\n  net_id: 1234\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "KelVPN", cfg.Network.Name)
	assert.Equal(t, uint64(1234), cfg.Network.NetID)
	assert.Equal(t, config.DefaultCellRPCURL, cfg.Network.RPC)
	assert.Equal(t, config.DefaultETHRPCURL, cfg.ETH.RPC)
	assert.Equal(t, 30, cfg.RPC.TimeoutSeconds)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("network: [unclosed"), 0o600))
	_, err = config.Load(bad)
	require.ErrorIs(t, err, walleterr.ErrConfigInvalid)
}

func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "~/.dnawallet", cfg.Home)
	assert.Equal(t, "default", cfg.Identity)
	assert.Equal(t, "Backbone", cfg.Network.Name)
	assert.Equal(t, uint64(0x0404202200000000), cfg.Network.NetID)
	assert.Equal(t, "CELL", cfg.Network.NativeTicker)
	assert.Equal(t, int32(18), cfg.Network.Decimals)
	assert.Equal(t, "https://ethereum-rpc.publicnode.com", cfg.ETH.RPC)
	assert.Equal(t, int64(1), cfg.ETH.ChainID)
	assert.True(t, cfg.Security.MemoryLock)
	assert.Equal(t, "error", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Fees(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	netFee, err := cfg.NetworkFee()
	require.NoError(t, err)
	assert.True(t, netFee.IsZero())

	valFee, err := cfg.ValidatorFee()
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000", valFee.Dec())

	cfg.Network.NetworkFee = "0.002"
	netFee, err = cfg.NetworkFee()
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000", netFee.Dec())

	cfg.Network.ValidatorFee = "abc"
	_, err = cfg.ValidatorFee()
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty home", func(c *config.Config) { c.Home = "" }},
		{"empty network", func(c *config.Config) { c.Network.Name = "" }},
		{"empty rpc", func(c *config.Config) { c.Network.RPC = "" }},
		{"empty identity", func(c *config.Config) { c.Identity = "" }},
		{"bad fee", func(c *config.Config) { c.Network.NetworkFee = "-1" }},
		{"zero validator fee", func(c *config.Config) { c.Network.ValidatorFee = "0" }},
		{"empty validator fee", func(c *config.Config) { c.Network.ValidatorFee = "" }},
		{"bad decimals", func(c *config.Config) { c.Network.Decimals = 90 }},
		{"bad scheme", func(c *config.Config) { c.ETH.RPC = "file:///etc/passwd" }},
		{"negative burst", func(c *config.Config) { c.RPC.Burst = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Defaults()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, walleterr.ErrConfigInvalid)
		})
	}
}

func TestConfig_Endpoints(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Network.RPC = "https://a.example"
	cfg.Network.FallbackRPCs = []string{"", "https://a.example", "https://b.example"}

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Endpoints())
}

func TestConfig_InsecureEndpoints(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	assert.Empty(t, cfg.InsecureEndpoints())

	cfg.Network.FallbackRPCs = []string{"http://node.example.org:8079"}
	assert.Equal(t, []string{"http://node.example.org:8079"}, cfg.InsecureEndpoints())
	require.NoError(t, cfg.Validate())
}

func TestConfig_PathsAndTimeout(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Home = "/srv/dna"

	assert.Equal(t, "/srv/dna", cfg.WalletRoot())
	assert.Equal(t, filepath.Join("/srv/dna", "journal"), cfg.JournalDir())
	assert.Equal(t, filepath.Join("/srv/dna", "config.yaml"), config.Path(cfg.Home))
	assert.Equal(t, 30*time.Second, cfg.Timeout())

	cfg.RPC.TimeoutSeconds = 0
	assert.Zero(t, cfg.Timeout())
}

func TestExpandHome(t *testing.T) {
	t.Parallel()
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), config.ExpandHome("~/x"))
	assert.Equal(t, "/abs/x", config.ExpandHome("/abs/x"))
	assert.Equal(t, "~user/x", config.ExpandHome("~user/x"))
}
