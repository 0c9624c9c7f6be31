package config

// Default cell network values.
const (
	DefaultNetworkName  = "Backbone"
	DefaultNetID        = uint64(0x0404202200000000)
	DefaultCellRPCURL   = "http://127.0.0.1:8079"
	DefaultNativeTicker = "CELL"
	DefaultDecimals     = int32(18)
	DefaultValidatorFee = "0.05"
	DefaultIdentity     = "default"
)

// DefaultETHRPCURL is the default Ethereum RPC endpoint.
// Uses PublicNode (Allnodes), a privacy-first provider that requires no API key.
const DefaultETHRPCURL = "https://ethereum-rpc.publicnode.com"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version:  1,
		Home:     "~/.dnawallet",
		Identity: DefaultIdentity,
		Network: NetworkConfig{
			Name:         DefaultNetworkName,
			NetID:        DefaultNetID,
			RPC:          DefaultCellRPCURL,
			NetworkFee:   "0",
			ValidatorFee: DefaultValidatorFee,
			NativeTicker: DefaultNativeTicker,
			Decimals:     DefaultDecimals,
		},
		ETH: ETHConfig{
			RPC:     DefaultETHRPCURL,
			ChainID: 1,
		},
		RPC: RPCConfig{
			TimeoutSeconds: 30,
			RatePerSecond:  10,
			Burst:          5,
		},
		Security: SecurityConfig{
			MemoryLock: true,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.dnawallet/dnawallet.log",
		},
	}
}
