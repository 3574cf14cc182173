package swapengine

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/cache"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/config"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/controls"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/jupiter"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/rpc"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/storage"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/wallet"
	"github.com/sirupsen/logrus"
)

// Engine wires the orchestrator to Solana RPC, Jupiter, the local wallet
// and the optional Redis and ClickHouse backends.
type Engine struct {
	rpc          *rpc.Client
	wallet       *wallet.Wallet
	quotes       QuoteService
	redisCache   storage.SwapCache
	controls     *controls.Store
	clickhouse   storage.SwapStore
	decision     *DecisionEngine
	orchestrator *Orchestrator
	logger       *logrus.Logger
}

// EngineConfig holds configuration for the swap engine
type EngineConfig struct {
	// RPC settings
	RPCURL       string
	RPCTimeout   time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Jupiter
	JupiterBaseURL string
	JupiterAPIKey  string
	JupiterRPS     float64
	PriorityFee    PriorityFeePolicy

	// Wallet
	WalletPrivateKey string
	WalletSignMode   wallet.SignMode

	// Storage
	RedisAddr          string
	ClickHouseAddr     string
	ClickHouseDB       string
	ClickHouseUsername string
	ClickHousePassword string

	Orchestrator OrchestratorConfig
	Intents      IntentPolicy
	Risk         RiskConfig
	Logger       *logrus.Logger
}

// DefaultEngineConfig returns sensible defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RPCURL:         "https://api.mainnet-beta.solana.com",
		RPCTimeout:     30 * time.Second,
		RetryBackoff:   500 * time.Millisecond,
		JupiterBaseURL: "https://api.jup.ag/swap/v1",
		PriorityFee:    DefaultPriorityFeePolicy(),
		WalletSignMode: wallet.SignModeSign,
		Orchestrator:   DefaultOrchestratorConfig(),
		Intents:        DefaultIntentPolicy(),
		Risk:           DefaultRiskConfig(),
	}
}

// EngineConfigFrom maps process configuration onto an EngineConfig.
func EngineConfigFrom(cfg *config.Config, logger *logrus.Logger) EngineConfig {
	ec := DefaultEngineConfig()

	ec.RPCURL = cfg.RPCUrl
	ec.RPCTimeout = cfg.RPCTimeout
	ec.MaxRetries = cfg.MaxRetries
	ec.RetryBackoff = cfg.RetryBackoff

	ec.JupiterBaseURL = cfg.JupiterBaseURL
	ec.JupiterAPIKey = cfg.JupiterAPIKey
	ec.JupiterRPS = cfg.JupiterRPS

	ec.WalletPrivateKey = cfg.WalletPrivateKey
	ec.WalletSignMode = wallet.SignMode(cfg.WalletSignMode)

	ec.RedisAddr = cfg.RedisAddr
	ec.ClickHouseAddr = cfg.ClickHouseAddr
	ec.ClickHouseDB = cfg.ClickHouseDatabase
	ec.ClickHouseUsername = cfg.ClickHouseUsername
	ec.ClickHousePassword = cfg.ClickHousePassword

	ec.Orchestrator.MaxAttempts = cfg.SwapMaxAttempts
	ec.Orchestrator.ComputeBudget = ComputeBudget{
		UnitLimit:              uint32(cfg.SwapComputeUnitLimit),
		UnitPriceMicroLamports: uint64(cfg.SwapComputeUnitPrice),
	}
	ec.Orchestrator.Backoff = Backoff{
		Base:   cfg.SwapBackoffBase,
		Jitter: cfg.SwapBackoffJitter,
		Max:    cfg.SwapBackoffMax,
	}
	ec.Orchestrator.Commitment = rpc.Commitment(cfg.SwapCommitment)
	ec.Orchestrator.DefaultSlippageBps = uint16(cfg.SwapDefaultSlippageBps)
	ec.Orchestrator.ConfirmTimeout = cfg.SwapConfirmTimeout
	ec.Orchestrator.ExplorerTxURL = cfg.ExplorerTxURL

	ec.Intents = IntentPolicy{
		DefaultSlippageBps: uint16(cfg.SwapDefaultSlippageBps),
		MaxSlippageBps:     uint16(cfg.SwapMaxSlippageBps),
	}
	ec.Risk = RiskConfig{
		MaxPriceImpactBps: uint16(cfg.SwapMaxPriceImpactBps),
		AllowedTokens:     cfg.SwapAllowedTokens,
	}
	ec.Logger = logger
	return ec
}

// NewEngine creates a new swap engine with all dependencies
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	logger := cfg.Logger

	// 1. Shared RPC client
	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCURL,
		Timeout:      cfg.RPCTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	// 2. Wallet
	w, err := wallet.NewWallet(wallet.WalletConfig{
		RPC:               rpcClient,
		PrivateKey:        cfg.WalletPrivateKey,
		SignMode:          cfg.WalletSignMode,
		DefaultCommitment: cfg.Orchestrator.Commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	// 3. Jupiter
	jup := jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterAPIKey).WithRateLimit(cfg.JupiterRPS)
	quotes, err := NewRiskGuard(NewJupiterQuoter(jup), cfg.Risk)
	if err != nil {
		return nil, fmt.Errorf("invalid risk config: %w", err)
	}

	e := &Engine{
		rpc:      rpcClient,
		wallet:   w,
		quotes:   quotes,
		decision: NewDecisionEngine(cfg.Intents),
		logger:   logger,
	}

	// 4. Redis: recent swaps and pause switches share one client
	var recorders []Recorder
	var pauses PauseChecker
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		store, err := controls.NewStore(rc.Client())
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("failed to create controls store: %w", err)
		}
		e.redisCache = rc
		e.controls = store
		recorders = append(recorders, rc)
		pauses = store
	}

	// 5. ClickHouse
	if cfg.ClickHouseAddr != "" && cfg.ClickHouseDB != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		e.clickhouse = ch
		recorders = append(recorders, ch)
	}

	// 6. Orchestrator
	orchCfg := cfg.Orchestrator
	orchCfg.Logger = logger
	watcher := NewConfirmationWatcher(rpcClient, WatcherConfig{
		Commitment: orchCfg.Commitment,
		Timeout:    orchCfg.ConfirmTimeout,
		Logger:     logger,
	})

	orch, err := NewOrchestrator(Dependencies{
		Quotes:    e.quotes,
		Builder:   NewJupiterBuilder(jup, cfg.PriorityFee),
		Lookups:   NewRPCLookupResolver(rpcClient, orchCfg.Commitment, logger),
		Ledger:    rpcClient,
		Signer:    w,
		Submitter: w,
		Confirmer: watcher,
		Balances:  w,
		Controls:  pauses,
		Recorders: recorders,
	}, orchCfg)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	e.orchestrator = orch

	logger.WithFields(logrus.Fields{
		"wallet":     w.Address(),
		"sign_mode":  cfg.WalletSignMode,
		"redis":      cfg.RedisAddr != "",
		"clickhouse": e.clickhouse != nil,
	}).Info("swap engine initialized")

	return e, nil
}

// ExecuteSwap runs req to a terminal state.
func (e *Engine) ExecuteSwap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	return e.orchestrator.Execute(ctx, req)
}

// ExecuteIntent parses intent for the engine's wallet and executes it.
func (e *Engine) ExecuteIntent(ctx context.Context, intent *SwapIntent) (*SwapResult, error) {
	req, err := e.decision.ParseIntent(intent, e.wallet.PublicKey())
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Stage: StageIdle, Err: err}
	}
	return e.orchestrator.Execute(ctx, req)
}

// GetQuote prices intent without executing it.
func (e *Engine) GetQuote(ctx context.Context, intent *SwapIntent) (*Quote, error) {
	req, err := e.decision.ParseIntent(intent, e.wallet.PublicKey())
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Stage: StageIdle, Err: err}
	}
	return e.quotes.GetQuote(ctx, QuoteParams{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      req.Amount,
		SlippageBps: req.SlippageBps,
	})
}

// GetWalletInfo returns wallet status
func (e *Engine) GetWalletInfo(ctx context.Context) (*WalletInfo, error) {
	balance, err := e.wallet.GetBalanceSOL(ctx)
	if err != nil {
		return nil, err
	}

	return &WalletInfo{
		Address:    e.wallet.Address(),
		BalanceSOL: balance,
	}, nil
}

func (e *Engine) Wallet() *wallet.Wallet     { return e.wallet }
func (e *Engine) Cache() storage.SwapCache   { return e.redisCache }
func (e *Engine) Controls() *controls.Store  { return e.controls }
func (e *Engine) History() storage.SwapStore { return e.clickhouse }

// Close cleans up all resources
func (e *Engine) Close() error {
	var errs []error

	if e.wallet != nil {
		if err := e.wallet.Close(); err != nil {
			errs = append(errs, fmt.Errorf("wallet close: %w", err))
		}
	}

	if e.redisCache != nil {
		if err := e.redisCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	if e.clickhouse != nil {
		if err := e.clickhouse.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}

	return nil
}

// WalletInfo is the engine wallet's address and SOL balance.
type WalletInfo struct {
	Address    string
	BalanceSOL float64
}
