package network

import (
	"fmt"
	"os"
	"time"
)

// Environment variables consulted by ResolveConfig.
const (
	EnvRPCURL  = "CONSTITUTION_RPC_URL"
	EnvRPCUser = "CONSTITUTION_RPC_USER"
	EnvRPCPass = "CONSTITUTION_RPC_PASS"
)

// RPCConfig holds the connection parameters for a BSV node's JSON-RPC interface.
type RPCConfig struct {
	URL      string        `json:"url"`
	User     string        `json:"user"`
	Password string        `json:"password"`
	Network  string        `json:"network"`
	Timeout  time.Duration `json:"timeout"`
}

// NetworkPresets contains default RPC configurations for local nodes.
// Mainnet has no preset and must be configured explicitly.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18332", User: "constitution", Password: "constitution"},
	"testnet": {URL: "http://localhost:18333", User: "constitution", Password: "constitution"},
}

// ResolveConfig merges RPC settings with decreasing priority: explicit
// values (CLI flags or config file), environment variables, network presets.
func ResolveConfig(flags *RPCConfig, env map[string]string, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}

	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	if v := env[EnvRPCURL]; v != "" {
		result.URL = v
	}
	if v := env[EnvRPCUser]; v != "" {
		result.User = v
	}
	if v := env[EnvRPCPass]; v != "" {
		result.Password = v
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.User != "" {
			result.User = flags.User
		}
		if flags.Password != "" {
			result.Password = flags.Password
		}
		if flags.Timeout > 0 {
			result.Timeout = flags.Timeout
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("%w: %s requires an explicit RPC URL (set rpc_url or %s)", ErrNotConfigured, network, EnvRPCURL)
	}
	return &result, nil
}

// EnvFromOS returns the RPC environment variables that are set.
func EnvFromOS() map[string]string {
	env := make(map[string]string)
	for _, k := range []string{EnvRPCURL, EnvRPCUser, EnvRPCPass} {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	return env
}
