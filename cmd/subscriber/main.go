// Tails executed swaps published on the Redis swaps channel.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/cache"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/models"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("redis", os.Getenv("REDIS_ADDR"), "redis address")
	failedOnly := flag.Bool("failed", false, "only print failed swaps")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *addr == "" {
		*addr = "localhost:6379"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down subscriber")
		cancel()
	}()

	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: *addr, Logger: logger})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer rc.Close()

	records, err := rc.SubscribeSwaps(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe")
	}

	logger.WithField("channel", cache.SwapsChannel).Info("subscriber running, press Ctrl+C to stop")
	for rec := range records {
		if *failedOnly && rec.Status != models.SwapStatusFailed {
			continue
		}
		entry := logger.WithFields(logrus.Fields{
			"execution_id": rec.ExecutionID,
			"pair":         rec.Pair(),
			"amount_in":    rec.AmountIn,
			"quoted_out":   rec.QuotedOut,
			"attempts":     rec.Attempts,
			"duration_ms":  rec.DurationMs,
		})
		if rec.Status == models.SwapStatusSuccess {
			entry.WithField("signature", rec.Signature).Info("swap executed")
		} else {
			entry.WithField("kind", rec.ErrorKind).Warn(rec.Error)
		}
	}
}
