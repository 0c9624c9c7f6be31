package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Environment variable names.
const (
	EnvHome         = "DNAWALLET_HOME"
	EnvIdentity     = "DNAWALLET_IDENTITY"
	EnvNetwork      = "DNAWALLET_NETWORK"
	EnvRPC          = "DNAWALLET_RPC"
	EnvFeeCollector = "DNAWALLET_FEE_COLLECTOR"
	EnvValidatorFee = "DNAWALLET_VALIDATOR_FEE"
	EnvETHRPC       = "DNAWALLET_ETH_RPC"
	EnvLogLevel     = "DNAWALLET_LOG_LEVEL"
	EnvLogFile      = "DNAWALLET_LOG_FILE"
	EnvMemoryLock   = "DNAWALLET_MEMORY_LOCK"
	EnvRPCTimeout   = "DNAWALLET_RPC_TIMEOUT"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvIdentity); v != "" {
		cfg.Identity = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Network.Name = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvRPC); v != "" {
		cfg.Network.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvFeeCollector); v != "" {
		cfg.Network.FeeCollector = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvValidatorFee); v != "" {
		cfg.Network.ValidatorFee = strings.TrimSpace(v)
	}

	// An explicitly empty DNAWALLET_ETH_RPC disables the eth chain.
	if v, ok := os.LookupEnv(EnvETHRPC); ok {
		cfg.ETH.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v, ok := os.LookupEnv(EnvLogFile); ok {
		cfg.Logging.File = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvMemoryLock); v != "" {
		cfg.Security.MemoryLock = parseBool(v)
	}

	if v := os.Getenv(EnvRPCTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.RPC.TimeoutSeconds = secs
		}
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL trims copy-paste artifacts from a user-provided RPC URL:
// surrounding whitespace and quotes, embedded control characters and spaces.
// A value that does not parse as an absolute URL is returned trimmed but
// otherwise untouched so the connect error names what the user typed.
func SanitizeURL(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), `"'`)
	s = strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		return u.String()
	}
	return s
}

// ErrInsecureRPCURL flags a plain-http endpoint on a non-loopback host.
var ErrInsecureRPCURL = &walleterr.WalletError{
	Code:       "INSECURE_RPC_URL",
	Message:    "RPC endpoint uses plain http to a remote host",
	Suggestion: "use https or a node on localhost",
	ExitCode:   walleterr.ExitInput,
	Category:   walleterr.CategoryInput,
}

// ValidateRPCURL accepts http(s) and ws(s) URLs. Plain http or ws to a
// remote host returns ErrInsecureRPCURL. An empty URL is valid.
func ValidateRPCURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{
			"url":    raw,
			"reason": "not an absolute URL",
		})
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		return nil
	case "http", "ws":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return walleterr.WithDetails(ErrInsecureRPCURL, map[string]string{"url": raw})
	default:
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{
			"url":    raw,
			"reason": "unsupported scheme " + u.Scheme,
		})
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
