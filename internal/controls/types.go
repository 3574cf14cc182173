package controls

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("control not found")

// GlobalScope pauses every swap.
const GlobalScope = "global"

// Control is an operator switch over a scope of swaps.
type Control struct {
	Scope     string    `json:"scope"`
	Paused    bool      `json:"paused"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PairScope is the scope covering swaps from inputMint to outputMint.
func PairScope(inputMint, outputMint string) string {
	return "pair." + inputMint + "-" + outputMint
}
