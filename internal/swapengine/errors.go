package swapengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Stage is a state of the execution state machine.
type Stage string

const (
	StageIdle              Stage = "idle"
	StageQuoteFetch        Stage = "quote_fetch"
	StageBuildInstructions Stage = "build_instructions"
	StageResolveLookups    Stage = "resolve_lookups"
	StageAssemble          Stage = "assemble"
	StageSign              Stage = "sign"
	StageBlockhashRecheck  Stage = "blockhash_recheck"
	StageSubmit            Stage = "submit"
	StageConfirm           Stage = "confirm"
	StageRetryWait         Stage = "retry_wait"
	StageDone              Stage = "done"
	StageAborted           Stage = "aborted"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindInsufficientBalance
	KindSwapsPaused
	KindQuoteUnavailable
	KindInstructionBuildFailed
	KindLookupUnavailable
	KindBlockhashUnavailable
	KindAssemblyFailed
	KindSigningFailed
	KindBlockhashExpired
	KindSubmissionFailed
	KindSubmissionRejected
	KindOnChainExecutionFailed
	KindConfirmationTimeout
	KindConfirmationUnavailable
	KindCancelled
)

var kindNames = map[Kind]string{
	KindUnknown:                 "unknown",
	KindInvalidRequest:          "invalid_request",
	KindInsufficientBalance:     "insufficient_balance",
	KindSwapsPaused:             "swaps_paused",
	KindQuoteUnavailable:        "quote_unavailable",
	KindInstructionBuildFailed:  "instruction_build_failed",
	KindLookupUnavailable:       "lookup_unavailable",
	KindBlockhashUnavailable:    "blockhash_unavailable",
	KindAssemblyFailed:          "assembly_failed",
	KindSigningFailed:           "signing_failed",
	KindBlockhashExpired:        "blockhash_expired",
	KindSubmissionFailed:        "submission_failed",
	KindSubmissionRejected:      "submission_rejected",
	KindOnChainExecutionFailed:  "on_chain_execution_failed",
	KindConfirmationTimeout:     "confirmation_timeout",
	KindConfirmationUnavailable: "confirmation_unavailable",
	KindCancelled:               "user_cancelled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is matching against *Error.
var (
	ErrInvalidRequest          = errors.New("invalid swap request")
	ErrInsufficientBalance     = errors.New("insufficient funds for this transaction")
	ErrSwapsPaused             = errors.New("swaps are paused")
	ErrQuoteUnavailable        = errors.New("quote unavailable")
	ErrInstructionBuildFailed  = errors.New("failed to build swap instructions")
	ErrLookupUnavailable       = errors.New("lookup tables unavailable")
	ErrBlockhashUnavailable    = errors.New("blockhash unavailable")
	ErrAssemblyFailed          = errors.New("failed to assemble transaction")
	ErrSigningFailed           = errors.New("signing failed")
	ErrBlockhashExpired        = errors.New("block height exceeded")
	ErrSubmissionFailed        = errors.New("transaction submission failed")
	ErrSubmissionRejected      = errors.New("transaction rejected")
	ErrOnChainExecutionFailed  = errors.New("transaction failed")
	ErrConfirmationTimeout     = errors.New("confirmation timeout")
	ErrConfirmationUnavailable = errors.New("confirmation status unavailable")
	ErrCancelled               = errors.New("swap cancelled by user")
)

var kindSentinels = map[Kind]error{
	KindInvalidRequest:          ErrInvalidRequest,
	KindInsufficientBalance:     ErrInsufficientBalance,
	KindSwapsPaused:             ErrSwapsPaused,
	KindQuoteUnavailable:        ErrQuoteUnavailable,
	KindInstructionBuildFailed:  ErrInstructionBuildFailed,
	KindLookupUnavailable:       ErrLookupUnavailable,
	KindBlockhashUnavailable:    ErrBlockhashUnavailable,
	KindAssemblyFailed:          ErrAssemblyFailed,
	KindSigningFailed:           ErrSigningFailed,
	KindBlockhashExpired:        ErrBlockhashExpired,
	KindSubmissionFailed:        ErrSubmissionFailed,
	KindSubmissionRejected:      ErrSubmissionRejected,
	KindOnChainExecutionFailed:  ErrOnChainExecutionFailed,
	KindConfirmationTimeout:     ErrConfirmationTimeout,
	KindConfirmationUnavailable: ErrConfirmationUnavailable,
	KindCancelled:               ErrCancelled,
}

// Error is a classified swap failure.
type Error struct {
	Kind    Kind
	Stage   Stage
	Attempt int

	// Signature and Payload are set once a transaction reached the ledger.
	Signature   solana.Signature
	Payload     interface{}
	ExplorerURL string

	Err error
}

func newError(kind Kind, stage Stage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func (e *Error) Error() string {
	if e.Kind == KindOnChainExecutionFailed {
		payload, _ := json.Marshal(e.Payload)
		msg := fmt.Sprintf("Transaction failed: %s", payload)
		if e.ExplorerURL != "" {
			msg += "\n" + e.ExplorerURL
		}
		return msg
	}

	base := e.Kind.String()
	if s, ok := kindSentinels[e.Kind]; ok {
		base = s.Error()
	}
	if e.Err == nil {
		return base
	}
	return base + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// Category is the user-facing grouping of a failure.
type Category string

const (
	CategoryNone              Category = ""
	CategoryInsufficientFunds Category = "insufficient_funds"
	CategorySlippage          Category = "slippage"
	CategoryGeneric           Category = "generic"
)

// slippageCustomCode is the aggregator program's SlippageToleranceExceeded
// error (0x1771).
const slippageCustomCode = 6001

// Categorize groups err for display.
func Categorize(err error) Category {
	if err == nil {
		return CategoryNone
	}
	if errors.Is(err, ErrInsufficientBalance) {
		return CategoryInsufficientFunds
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"), strings.Contains(msg, "insufficient lamports"):
		return CategoryInsufficientFunds
	case strings.Contains(msg, "slippage"), strings.Contains(msg, "0x1771"):
		return CategorySlippage
	}

	var se *Error
	if errors.As(err, &se) && se.Kind == KindOnChainExecutionFailed && customErrorCode(se.Payload) == slippageCustomCode {
		return CategorySlippage
	}
	return CategoryGeneric
}

// HumanMessage renders err the way it is shown to a user.
func HumanMessage(err error) string {
	switch Categorize(err) {
	case CategoryNone:
		return ""
	case CategoryInsufficientFunds:
		return "Insufficient funds for this transaction"
	case CategorySlippage:
		return "Price moved too much. Try increasing slippage tolerance."
	default:
		return err.Error()
	}
}

// customErrorCode extracts N from {"InstructionError":[idx,{"Custom":N}]}.
func customErrorCode(payload interface{}) int64 {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return -1
	}
	ie, ok := m["InstructionError"].([]interface{})
	if !ok || len(ie) != 2 {
		return -1
	}
	detail, ok := ie[1].(map[string]interface{})
	if !ok {
		return -1
	}
	switch v := detail["Custom"].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return -1
		}
		return n
	default:
		return -1
	}
}
