package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/config"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/swapengine"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func main() {
	loadEnv()

	mode := flag.String("mode", "quote", "quote | execute")
	inTok := flag.String("in", "SOL", "input token symbol or mint (e.g. SOL)")
	outTok := flag.String("out", "USDC", "output token symbol or mint (e.g. USDC)")
	amt := flag.Float64("amt", 0, "amount in human units (e.g. 0.1)")
	raw := flag.Uint64("raw", 0, "amount in smallest units; overrides -amt")
	slippageBps := flag.Int("slippage-bps", 0, "slippage in bps (e.g. 50 = 0.5%); 0 uses the configured default")
	flag.Parse()

	if *amt <= 0 && *raw == 0 {
		fmt.Println("missing -amt or -raw (must be > 0)")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Println("invalid configuration:", err)
		os.Exit(2)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	engine, err := swapengine.NewEngine(ctx, swapengine.EngineConfigFrom(cfg, logger))
	if err != nil {
		fmt.Println("failed to init swapengine:", err)
		os.Exit(1)
	}
	defer engine.Close()

	intent := &swapengine.SwapIntent{
		InputToken:  *inTok,
		OutputToken: *outTok,
		Amount:      *amt,
		RawAmount:   *raw,
		RequestedAt: time.Now(),
	}
	if *slippageBps > 0 {
		slip := uint16(*slippageBps)
		intent.SlippageBps = &slip
	}

	switch *mode {
	case "quote":
		q, err := engine.GetQuote(ctx, intent)
		if err != nil {
			fmt.Println("quote failed:", err)
			os.Exit(1)
		}
		fmt.Printf("route=%s amount_in=%d amount_out=%d min_out=%d price_impact=%.4f%% slippage_bps=%d\n",
			q.RouteID, q.InAmount, q.OutAmount, q.OtherAmountThreshold, q.PriceImpactPct*100, q.SlippageBps)
	case "execute":
		res, err := engine.ExecuteIntent(ctx, intent)
		if err != nil {
			fmt.Println("execute failed:", swapengine.HumanMessage(err))
			if res != nil {
				fmt.Printf("execution_id=%s attempts=%d explorer=%s\n", res.ExecutionID, res.Attempts, res.ExplorerURL)
			}
			os.Exit(1)
		}
		fmt.Printf("success=%v sig=%s attempts=%d duration=%s\n%s\n",
			res.Success, res.Signature, res.Attempts, res.Duration, res.ExplorerURL)
	default:
		fmt.Println("invalid -mode (use quote|execute)")
		os.Exit(2)
	}
}
