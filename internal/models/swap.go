package models

import "time"

// SwapRecord is the terminal record of one swap execution.
type SwapRecord struct {
	ExecutionID    string    `json:"execution_id"`
	Signature      string    `json:"signature,omitempty"`
	Status         string    `json:"status"` // success | failed
	Signer         string    `json:"signer"`
	InputMint      string    `json:"input_mint"`
	OutputMint     string    `json:"output_mint"`
	AmountIn       uint64    `json:"amount_in"`
	QuotedOut      uint64    `json:"quoted_out"`
	PriceImpactPct float64   `json:"price_impact_pct"`
	SlippageBps    uint16    `json:"slippage_bps"`
	RouteID        string    `json:"route_id,omitempty"`
	Attempts       int       `json:"attempts"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	Error          string    `json:"error,omitempty"`
	Category       string    `json:"category,omitempty"`
	ExplorerURL    string    `json:"explorer_url,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	DurationMs     int64     `json:"duration_ms"`
}

const (
	SwapStatusSuccess = "success"
	SwapStatusFailed  = "failed"
)

// Pair renders the record's mints as "IN/OUT".
func (r *SwapRecord) Pair() string {
	return r.InputMint + "/" + r.OutputMint
}
