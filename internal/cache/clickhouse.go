package cache

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/models"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/storage"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

var _ storage.SwapStore = (*ClickHouseStore)(nil)

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore is the append-only history of swap executions.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

const createSwapExecutionsTable = `
	CREATE TABLE IF NOT EXISTS swap_executions (
		execution_id     String,
		signature        String,
		status           LowCardinality(String),
		signer           String,
		input_mint       String,
		output_mint      String,
		amount_in        UInt64,
		quoted_out       UInt64,
		price_impact_pct Float64,
		slippage_bps     UInt16,
		route_id         String,
		attempts         UInt8,
		error_kind       LowCardinality(String),
		error            String,
		category         LowCardinality(String),
		started_at       DateTime64(3),
		finished_at      DateTime64(3),
		duration_ms      Int64
	) ENGINE = MergeTree()
	ORDER BY (finished_at, execution_id)
`

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, createSwapExecutionsTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create swap_executions table: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")

	return &ClickHouseStore{
		conn:   conn,
		logger: cfg.Logger,
	}, nil
}

func (c *ClickHouseStore) RecordSwap(ctx context.Context, rec *models.SwapRecord) error {
	query := `
		INSERT INTO swap_executions (
			execution_id, signature, status, signer, input_mint, output_mint,
			amount_in, quoted_out, price_impact_pct, slippage_bps, route_id,
			attempts, error_kind, error, category, started_at, finished_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		rec.ExecutionID,
		rec.Signature,
		rec.Status,
		rec.Signer,
		rec.InputMint,
		rec.OutputMint,
		rec.AmountIn,
		rec.QuotedOut,
		rec.PriceImpactPct,
		rec.SlippageBps,
		rec.RouteID,
		uint8(rec.Attempts),
		rec.ErrorKind,
		rec.Error,
		rec.Category,
		rec.StartedAt,
		rec.FinishedAt,
		rec.DurationMs,
	)

	if err != nil {
		return fmt.Errorf("failed to insert swap execution: %w", err)
	}

	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
