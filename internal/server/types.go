package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK     bool   `json:"ok"`
	Wallet string `json:"wallet,omitempty"`
}

// QuoteResponse is a priced route for a swap intent.
type QuoteResponse struct {
	InputMint            string  `json:"input_mint"`
	OutputMint           string  `json:"output_mint"`
	InAmount             uint64  `json:"in_amount"`
	OutAmount            uint64  `json:"out_amount"`
	OtherAmountThreshold uint64  `json:"other_amount_threshold"`
	PriceImpactPct       float64 `json:"price_impact_pct"`
	SlippageBps          uint16  `json:"slippage_bps"`
	RouteID              string  `json:"route_id"`
}

// SwapResponse is the terminal outcome of POST /v1/swaps.
type SwapResponse struct {
	ExecutionID string         `json:"execution_id"`
	Success     bool           `json:"success"`
	Signature   string         `json:"signature,omitempty"`
	ExplorerURL string         `json:"explorer_url,omitempty"`
	Attempts    int            `json:"attempts"`
	Quote       *QuoteResponse `json:"quote,omitempty"`
	Error       string         `json:"error,omitempty"`
	ErrorKind   string         `json:"error_kind,omitempty"`
	Category    string         `json:"category,omitempty"`
	Message     string         `json:"message,omitempty"` // user-facing summary of Category
	DurationMs  int64          `json:"duration_ms"`
}

// ControlUpdateRequest pauses or resumes a scope.
type ControlUpdateRequest struct {
	Paused bool   `json:"paused"`
	Reason string `json:"reason"`
}
