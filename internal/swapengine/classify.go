package swapengine

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Disposition tells the orchestrator what to do after an attempt.
type Disposition int

const (
	Success Disposition = iota
	Retryable
	Fatal
)

func (d Disposition) String() string {
	switch d {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// AttemptOutcome is the result of one attempt. Signature is set on Success,
// Err otherwise.
type AttemptOutcome struct {
	Disposition Disposition
	Signature   solana.Signature
	Err         error
}

func succeeded(sig solana.Signature) AttemptOutcome {
	return AttemptOutcome{Disposition: Success, Signature: sig}
}

func failed(err error) AttemptOutcome {
	return AttemptOutcome{Disposition: Classify(err), Err: err}
}

// retryableMessages are matched case-insensitively against error text.
var retryableMessages = []string{
	"block height exceeded",
	"blockhash not found",
	"transaction was not confirmed",
	"confirmation timeout",
	"max retries exceeded",
	"network request failed",
	"internal error",
}

// IsRetryableMessage reports whether msg contains a transient-failure marker.
func IsRetryableMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Classify maps a failure to a disposition. Kinds with a fixed policy win;
// anything else falls back to the message allow-list.
func Classify(err error) Disposition {
	if err == nil {
		return Success
	}

	var se *Error
	if errors.As(err, &se) {
		switch se.Kind {
		case KindQuoteUnavailable,
			KindInstructionBuildFailed,
			KindLookupUnavailable,
			KindBlockhashUnavailable,
			KindBlockhashExpired,
			KindSubmissionFailed,
			KindConfirmationTimeout,
			KindConfirmationUnavailable:
			return Retryable
		case KindInvalidRequest,
			KindInsufficientBalance,
			KindSwapsPaused,
			KindAssemblyFailed,
			KindOnChainExecutionFailed,
			KindCancelled:
			return Fatal
		}
	}

	if IsRetryableMessage(err.Error()) {
		return Retryable
	}
	return Fatal
}

// Backoff computes the wait before a retry:
// min(Base*2^(retry-1) + Jitter*U[0,1), Max).
type Backoff struct {
	Base   time.Duration
	Jitter time.Duration
	Max    time.Duration

	// Rand returns a value in [0,1). Defaults to math/rand.
	Rand func() float64
}

// DefaultBackoff is 1s base, up to 1s jitter, 5s cap.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:   time.Second,
		Jitter: time.Second,
		Max:    5 * time.Second,
	}
}

// Delay returns the wait before retry number retry (1-based).
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	r := rand.Float64
	if b.Rand != nil {
		r = b.Rand
	}

	exp := float64(b.Base) * math.Pow(2, float64(retry-1))
	d := exp + float64(b.Jitter)*r()
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}
