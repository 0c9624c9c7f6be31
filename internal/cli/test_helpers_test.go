package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/dnawallet/internal/chain"
	"github.com/mrz1836/dnawallet/internal/config"
	"github.com/mrz1836/dnawallet/internal/output"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

const (
	abandon12   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	abandonETH  = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	testPass    = "correct horse"
	testNewPass = "battery staple"
)

// stubChain is a chain.Chain that records sends and answers queries from fields.
type stubChain struct {
	chain.Unsupported

	mu         sync.Mutex
	balance    *uint256.Int
	fee        *uint256.Int
	decimals   int32
	ticker     string
	status     *chain.TxStatusResult
	sendErr    error
	balanceErr error
	balCalls   int
	sent       []chain.SendRequest
	keyLens    []int
}

func newStubChain(t chain.Type, ticker string) *stubChain {
	return &stubChain{
		Unsupported: chain.Unsupported{Chain: t},
		balance:     uint256.NewInt(0),
		fee:         uint256.NewInt(1000),
		decimals:    18,
		ticker:      ticker,
	}
}

func (s *stubChain) Balance(_ context.Context, address, ticker string) (*chain.Balance, error) {
	s.mu.Lock()
	s.balCalls++
	s.mu.Unlock()
	if s.balanceErr != nil {
		return nil, s.balanceErr
	}
	if ticker == "" {
		ticker = s.ticker
	}
	return &chain.Balance{Address: address, Ticker: ticker, Value: s.balance.Clone(), Decimals: s.decimals}, nil
}

func (s *stubChain) EstimateFee(context.Context, *chain.SendRequest) (*chain.FeeEstimate, error) {
	return &chain.FeeEstimate{
		Ticker:     s.ticker,
		NetworkFee: s.fee.Clone(),
		Total:      s.fee.Clone(),
		Decimals:   s.decimals,
	}, nil
}

func (s *stubChain) Send(_ context.Context, req *chain.SendRequest) (*chain.TransactionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyLens = append(s.keyLens, len(req.PrivateKey))
	s.sent = append(s.sent, *req)
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &chain.TransactionResult{
		Hash:   "0xABCDEF",
		From:   req.From,
		To:     req.To,
		Amount: chain.FormatAmount(req.Amount, s.decimals),
		Ticker: s.ticker,
		Status: chain.StatusPending,
	}, nil
}

func (s *stubChain) TxStatus(_ context.Context, hash string) (*chain.TxStatusResult, error) {
	if s.status != nil {
		return s.status, nil
	}
	return &chain.TxStatusResult{Hash: hash, Status: chain.StatusNotFound}, nil
}

func (s *stubChain) ValidateAddress(address string) error {
	if address == "" || address == "bad" {
		return walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"address": address})
	}
	return nil
}

// testEnv is an isolated CLI environment rooted in a temp home.
type testEnv struct {
	home     string
	cell     *stubChain
	eth      *stubChain
	messages *bytes.Buffer
}

// setupCLI isolates the CLI from the host: a temp home, logging off, stub
// chains in place of RPC clients.
func setupCLI(t *testing.T) *testEnv {
	t.Helper()

	unsetEnv(t,
		config.EnvHome, config.EnvIdentity, config.EnvNetwork, config.EnvRPC,
		config.EnvFeeCollector, config.EnvValidatorFee, config.EnvETHRPC,
		config.EnvLogFile, config.EnvRPCTimeout, EnvPassword, EnvNewPassword,
	)
	t.Setenv(config.EnvLogLevel, "off")
	t.Setenv(config.EnvMemoryLock, "false")

	env := &testEnv{
		home:     t.TempDir(),
		cell:     newStubChain(chain.TypeCell, "CELL"),
		eth:      newStubChain(chain.TypeETH, "ETH"),
		messages: &bytes.Buffer{},
	}

	origFactory, origRetry := registryFactory, retryConfig
	retryConfig = chain.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	registryFactory = func(*CommandContext) (*chain.Registry, error) {
		reg := chain.NewRegistry(zerolog.Nop())
		if err := reg.Register(chain.TypeCell.String(), chain.TypeCell, env.cell); err != nil {
			return nil, err
		}
		if err := reg.Register(chain.TypeETH.String(), chain.TypeETH, env.eth); err != nil {
			return nil, err
		}
		return reg, nil
	}
	output.SetMessageWriter(env.messages)
	t.Cleanup(func() {
		registryFactory, retryConfig = origFactory, origRetry
		output.SetMessageWriter(os.Stderr)
	})
	return env
}

// run executes the CLI with args and returns stdout and stderr.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetCommands(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--home", e.home}, args...))

	err := Execute()
	return stdout.String(), stderr.String(), err
}

// mustRun is run that fails the test on error.
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := e.run(t, "", args...)
	require.NoError(t, err, "stderr: %s", stderr)
	return stdout
}

// resetCommands restores every flag to its default and drops contexts left
// by a previous run; cobra keeps both on the package-level commands.
func resetCommands(cmd *cobra.Command) {
	cmd.SetContext(context.Background())
	for _, fs := range []*pflag.FlagSet{cmd.LocalNonPersistentFlags(), cmd.PersistentFlags()} {
		fs.VisitAll(resetFlag)
	}
	for _, c := range cmd.Commands() {
		resetCommands(c)
	}
}

func resetFlag(f *pflag.Flag) {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		def := strings.Trim(f.DefValue, "[]")
		var vals []string
		if def != "" {
			vals = strings.Split(def, ",")
		}
		_ = sv.Replace(vals)
	} else {
		_ = f.Value.Set(f.DefValue)
	}
	f.Changed = false
}

// withMockPrompts replaces the prompt functions and restores them on cleanup.
// Password prompts return password; the mnemonic prompt returns abandon12.
func withMockPrompts(t *testing.T, password []byte, confirm bool) {
	t.Helper()
	origPW := promptPasswordFn
	origConfirm := promptConfirmFn
	origMnemonic := promptMnemonicFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptConfirmFn = origConfirm
		promptMnemonicFn = origMnemonic
	})
	promptPasswordFn = func(*cobra.Command, string) ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptConfirmFn = func(*cobra.Command, string) bool { return confirm }
	promptMnemonicFn = func(*cobra.Command) (string, error) { return abandon12, nil }
}

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}
