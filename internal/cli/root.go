// Package cli implements the dnawallet command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The per-invocation state lives in a
// CommandContext built in PersistentPreRunE and released in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mrz1836/dnawallet/internal/config"
	"github.com/mrz1836/dnawallet/internal/metrics"
	"github.com/mrz1836/dnawallet/internal/output"
	"github.com/mrz1836/dnawallet/internal/secure"
	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	metricsFile  string

	buildInfo BuildInfo

	// lastFormat is kept for Execute's error rendering after PostRun.
	lastFormat = output.FormatText
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dnawallet",
	Short: "A multi-chain wallet for the cell network and Ethereum",
	Long: `dnawallet keeps post-quantum cell wallets and Ethereum wallets derived
from BIP39 mnemonics, and checks balances and sends native transfers.

Example:
  dnawallet wallet create main --chain cell,eth
  dnawallet balance main
  dnawallet send --wallet main --to <address> --amount 1.5`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cc, err := initGlobals(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		base := cmd.Context()
		if base == nil {
			base = context.Background()
		}
		cmd.SetContext(WithCmdContext(base, cc))
		return nil
	},
}

// Execute runs the root command. Cleanup runs here rather than in a
// post-run hook because cobra skips post-run hooks when a command fails.
func Execute() error {
	cmd, err := rootCmd.ExecuteC()
	if cmd != nil {
		cleanup(GetCmdContext(cmd))
	}
	if err != nil {
		_ = output.FormatError(rootCmd.ErrOrStderr(), err, lastFormat)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return walleterr.ExitCode(err)
}

// SetBuildInfo records version information for the version command.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

// initGlobals loads configuration and builds the command context.
func initGlobals(stdout io.Writer) (*CommandContext, error) {
	explicit, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	format := output.DetectFormat(stdout, explicit)
	lastFormat = format

	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	cfg, err := config.LoadOrDefault(config.Path(home))
	if err != nil {
		return nil, err
	}
	if cfg.Home == config.Defaults().Home {
		cfg.Home = home
	}

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	secure.SetMemoryLock(cfg.Security.MemoryLock)

	logger, err := config.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		// Use null logger if we can't create the file
		logger = config.NullLogger()
	}
	for _, u := range cfg.InsecureEndpoints() {
		logger.Warn().Str("url", u).Msg("RPC endpoint uses plain http")
	}

	return &CommandContext{
		Cfg:     cfg,
		Log:     logger,
		Fmt:     output.NewFormatter(format, stdout),
		Metrics: metrics.New(),
	}, nil
}

// cleanup releases resources and writes metrics when requested.
func cleanup(cc *CommandContext) {
	if cc == nil {
		return
	}
	if cc.Metrics != nil {
		snap := cc.Metrics.Snapshot()
		cc.Log.Debug().
			Int64("rpc_calls", snap.RPCCallsTotal).
			Int64("rpc_errors", snap.RPCErrorsTotal).
			Float64("rpc_latency_avg_ms", snap.RPCLatencyAvgMs).
			Msg("metrics")
		if metricsFile != "" {
			if err := prometheus.WriteToTextfile(metricsFile, cc.Metrics.Registry()); err != nil {
				output.Warnf("writing metrics to %s: %v", metricsFile, err)
			}
		}
	}
	cc.Close()
	_ = cc.Log.Close()
}

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "dnawallet data directory (default: ~/.dnawallet)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
}
