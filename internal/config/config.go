package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// RPC settings
	RPCUrl       string
	RPCTimeout   time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Jupiter settings
	JupiterBaseURL string
	JupiterAPIKey  string
	JupiterRPS     float64

	// Wallet settings
	WalletPrivateKey string
	WalletSignMode   string // sign | send-only

	// Swap execution settings
	SwapMaxAttempts        int
	SwapConfirmTimeout     time.Duration
	SwapComputeUnitLimit   int
	SwapComputeUnitPrice   int
	SwapBackoffBase        time.Duration
	SwapBackoffJitter      time.Duration
	SwapBackoffMax         time.Duration
	SwapDefaultSlippageBps int
	SwapMaxSlippageBps     int
	SwapCommitment         string
	SwapMaxPriceImpactBps  int
	SwapAllowedTokens      []string
	ExplorerTxURL          string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// API settings
	APIAddr  string
	APIKey   string
	DevMode  bool
	LogLevel string

	// APISwapRPS is POST /v1/swaps requests per second per client.
	APISwapRPS     float64
	APISwapTimeout time.Duration
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl:       getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		RPCTimeout:   getDurationEnv("RPC_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("RPC_MAX_RETRIES", 0),
		RetryBackoff: getDurationEnv("RPC_RETRY_BACKOFF", 500*time.Millisecond),

		// Jupiter
		JupiterBaseURL: getEnv("JUPITER_BASE_URL", "https://api.jup.ag/swap/v1"),
		JupiterAPIKey:  getEnv("JUPITER_API_KEY", ""),
		JupiterRPS:     getFloatEnv("JUPITER_RPS", 0),

		// Wallet
		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),
		WalletSignMode:   getEnv("WALLET_SIGN_MODE", "sign"),

		// Swap
		SwapMaxAttempts:        getIntEnv("SWAP_MAX_ATTEMPTS", 3),
		SwapConfirmTimeout:     getDurationEnv("SWAP_CONFIRM_TIMEOUT", 60*time.Second),
		SwapComputeUnitLimit:   getIntEnv("SWAP_CU_LIMIT", 400_000),
		SwapComputeUnitPrice:   getIntEnv("SWAP_CU_PRICE_MICROLAMPORTS", 1_000_000),
		SwapBackoffBase:        getDurationEnv("SWAP_BACKOFF_BASE", time.Second),
		SwapBackoffJitter:      getDurationEnv("SWAP_BACKOFF_JITTER", time.Second),
		SwapBackoffMax:         getDurationEnv("SWAP_BACKOFF_MAX", 5*time.Second),
		SwapDefaultSlippageBps: getIntEnv("SWAP_DEFAULT_SLIPPAGE_BPS", 50),
		SwapMaxSlippageBps:     getIntEnv("SWAP_MAX_SLIPPAGE_BPS", 1000),
		SwapCommitment:         getEnv("SWAP_COMMITMENT", "confirmed"),
		SwapMaxPriceImpactBps:  getIntEnv("SWAP_MAX_PRICE_IMPACT_BPS", 500),
		SwapAllowedTokens:      getListEnv("SWAP_ALLOWED_TOKENS"),
		ExplorerTxURL:          getEnv("EXPLORER_TX_URL", "https://solscan.io/tx/%s/"),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// API
		APIAddr:  getEnv("API_ADDR", ":8090"),
		APIKey:   getEnv("API_KEY", ""),
		DevMode:  getBoolEnv("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APISwapRPS:     getFloatEnv("API_SWAP_RPS", 0.5),
		APISwapTimeout: getDurationEnv("API_SWAP_TIMEOUT", 4*time.Minute),
	}
}

// Validate rejects settings the swap path cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCUrl) == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.SwapMaxAttempts < 1 {
		return fmt.Errorf("SWAP_MAX_ATTEMPTS must be >= 1, got %d", c.SwapMaxAttempts)
	}
	if c.SwapConfirmTimeout <= 0 {
		return fmt.Errorf("SWAP_CONFIRM_TIMEOUT must be positive")
	}
	if c.SwapComputeUnitLimit <= 0 || c.SwapComputeUnitLimit > 1_400_000 {
		return fmt.Errorf("SWAP_CU_LIMIT out of range: %d", c.SwapComputeUnitLimit)
	}
	if c.SwapComputeUnitPrice < 0 {
		return fmt.Errorf("SWAP_CU_PRICE_MICROLAMPORTS must be >= 0")
	}
	if c.SwapDefaultSlippageBps < 0 || c.SwapDefaultSlippageBps > c.SwapMaxSlippageBps {
		return fmt.Errorf("SWAP_DEFAULT_SLIPPAGE_BPS must be within [0, %d]", c.SwapMaxSlippageBps)
	}
	if c.SwapMaxSlippageBps > 10_000 {
		return fmt.Errorf("SWAP_MAX_SLIPPAGE_BPS must be <= 10000")
	}
	if c.SwapMaxPriceImpactBps < 0 || c.SwapMaxPriceImpactBps > 10_000 {
		return fmt.Errorf("SWAP_MAX_PRICE_IMPACT_BPS must be within [0, 10000]")
	}
	switch c.SwapCommitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("SWAP_COMMITMENT must be processed|confirmed|finalized, got %q", c.SwapCommitment)
	}
	switch c.WalletSignMode {
	case "sign", "send-only":
	default:
		return fmt.Errorf("WALLET_SIGN_MODE must be sign|send-only, got %q", c.WalletSignMode)
	}
	if !strings.Contains(c.ExplorerTxURL, "%s") {
		return fmt.Errorf("EXPLORER_TX_URL must contain %%s")
	}
	return nil
}

// ValidateAPI adds the checks only the HTTP server needs.
func (c *Config) ValidateAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.APIAddr) == "" {
		return fmt.Errorf("API_ADDR is required")
	}
	if !c.DevMode && strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("API_KEY is required unless DEV_MODE=true")
	}
	if c.APISwapTimeout < c.SwapConfirmTimeout {
		return fmt.Errorf("API_SWAP_TIMEOUT (%v) must be at least SWAP_CONFIRM_TIMEOUT (%v)", c.APISwapTimeout, c.SwapConfirmTimeout)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
