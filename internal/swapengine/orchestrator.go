package swapengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/controls"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/metrics"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/models"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OrchestratorConfig holds the retry and transaction policy.
type OrchestratorConfig struct {
	MaxAttempts        int
	ComputeBudget      ComputeBudget
	Backoff            Backoff
	Commitment         rpc.Commitment
	DefaultSlippageBps uint16
	ConfirmTimeout     time.Duration
	ExplorerTxURL      string // fmt pattern with one %s for the signature
	Logger             *logrus.Logger
}

// DefaultOrchestratorConfig returns the production policy
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxAttempts:        3,
		ComputeBudget:      DefaultComputeBudget(),
		Backoff:            DefaultBackoff(),
		Commitment:         rpc.CommitmentConfirmed,
		DefaultSlippageBps: 50,
		ConfirmTimeout:     60 * time.Second,
		ExplorerTxURL:      "https://solscan.io/tx/%s/",
	}
}

// Dependencies are the collaborators of an Orchestrator. Balances, Controls
// and Recorders are optional.
type Dependencies struct {
	Quotes    QuoteService
	Builder   InstructionBuilder
	Lookups   LookupTableResolver
	Ledger    Ledger
	Signer    Signer
	Submitter Submitter
	Confirmer Confirmer

	Balances  BalanceSource
	Controls  PauseChecker
	Recorders []Recorder
}

// Orchestrator drives one swap through quote, build, lookup resolution,
// assembly, signing, freshness recheck, submission and confirmation,
// retrying transient failures from a fresh quote.
type Orchestrator struct {
	deps       Dependencies
	signing    *SigningGateway
	submission *SubmissionGateway
	cfg        OrchestratorConfig
	logger     *logrus.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(deps Dependencies, cfg OrchestratorConfig) (*Orchestrator, error) {
	switch {
	case deps.Quotes == nil:
		return nil, fmt.Errorf("quote service is required")
	case deps.Builder == nil:
		return nil, fmt.Errorf("instruction builder is required")
	case deps.Lookups == nil:
		return nil, fmt.Errorf("lookup table resolver is required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("ledger is required")
	case deps.Submitter == nil:
		return nil, fmt.Errorf("submitter is required")
	case deps.Confirmer == nil:
		return nil, fmt.Errorf("confirmer is required")
	}

	def := DefaultOrchestratorConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.ComputeBudget.UnitLimit == 0 {
		cfg.ComputeBudget = def.ComputeBudget
	}
	if cfg.Backoff.Base == 0 && cfg.Backoff.Max == 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.Commitment == "" {
		cfg.Commitment = def.Commitment
	}
	if cfg.DefaultSlippageBps == 0 {
		cfg.DefaultSlippageBps = def.DefaultSlippageBps
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = def.ConfirmTimeout
	}
	if cfg.ExplorerTxURL == "" {
		cfg.ExplorerTxURL = def.ExplorerTxURL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Orchestrator{
		deps:       deps,
		signing:    NewSigningGateway(deps.Signer, cfg.Logger),
		submission: NewSubmissionGateway(deps.Submitter),
		cfg:        cfg,
		logger:     cfg.Logger,
		sleep:      sleepContext,
	}, nil
}

// Execute runs a swap to a terminal state. The result is always non-nil;
// err is a *Error when the swap did not succeed.
func (o *Orchestrator) Execute(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	if req.SlippageBps == 0 {
		req.SlippageBps = o.cfg.DefaultSlippageBps
	}

	run := &execution{
		req:     req,
		started: time.Now(),
		result:  &SwapResult{ExecutionID: uuid.NewString()},
	}
	run.log = o.logger.WithFields(logrus.Fields{
		"execution_id": run.result.ExecutionID,
		"input_mint":   req.InputMint.String(),
		"output_mint":  req.OutputMint.String(),
		"amount":       req.Amount,
		"signer":       req.Signer.String(),
	})
	run.transition(0, StageIdle, nil)

	if err := req.validate(); err != nil {
		return o.finish(run, &Error{Kind: KindInvalidRequest, Stage: StageIdle, Err: err})
	}
	if err := o.checkPaused(ctx, run); err != nil {
		return o.finish(run, err)
	}
	if err := o.checkBalance(ctx, run); err != nil {
		return o.finish(run, err)
	}

	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return o.finish(run, &Error{Kind: KindCancelled, Stage: StageRetryWait, Attempt: attempt, Err: ctx.Err()})
		}

		run.result.Attempts = attempt
		outcome := o.runAttempt(ctx, run, attempt)

		switch outcome.Disposition {
		case Success:
			run.result.Signature = outcome.Signature
			return o.finish(run, nil)
		case Fatal:
			return o.finish(run, outcome.Err)
		}

		lastErr = outcome.Err
		if attempt == o.cfg.MaxAttempts {
			break
		}

		delay := o.cfg.Backoff.Delay(attempt)
		run.transition(attempt, StageRetryWait, outcome.Err)
		run.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"stage":   StageRetryWait,
			"backoff": delay,
		}).WithError(outcome.Err).Warn("attempt failed, retrying")
		metrics.BackoffSeconds.Observe(delay.Seconds())

		if err := o.sleep(ctx, delay); err != nil {
			return o.finish(run, &Error{Kind: KindCancelled, Stage: StageRetryWait, Attempt: attempt, Err: err})
		}
	}

	run.log.WithField("attempts", o.cfg.MaxAttempts).Error("max attempts reached")
	return o.finish(run, lastErr)
}

// execution is the state owned by one Execute call.
type execution struct {
	req     SwapRequest
	started time.Time
	result  *SwapResult
	log     *logrus.Entry
}

func (e *execution) transition(attempt int, stage Stage, err error) {
	e.result.Trace = append(e.result.Trace, Transition{
		Attempt: attempt,
		Stage:   stage,
		At:      time.Now(),
		Err:     err,
	})
}

func (o *Orchestrator) runAttempt(ctx context.Context, run *execution, attempt int) AttemptOutcome {
	req := run.req
	log := run.log.WithField("attempt", attempt)

	var started time.Time
	enter := func(stage Stage) {
		started = time.Now()
		run.transition(attempt, stage, nil)
		log.WithField("stage", stage).Debug("entering stage")
	}
	done := func(stage Stage) {
		metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())
	}
	fail := func(stage Stage, sig solana.Signature, err error) AttemptOutcome {
		done(stage)
		se := o.stageError(ctx, stage, attempt, sig, err)
		out := failed(se)
		metrics.SwapAttempts.WithLabelValues(out.Disposition.String(), string(stage), se.Kind.String()).Inc()
		log.WithFields(logrus.Fields{
			"stage":       stage,
			"kind":        se.Kind.String(),
			"disposition": out.Disposition.String(),
		}).WithError(se).Warn("stage failed")
		return out
	}

	enter(StageQuoteFetch)
	quote, err := o.deps.Quotes.GetQuote(ctx, QuoteParams{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      req.Amount,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		return fail(StageQuoteFetch, solana.Signature{}, err)
	}
	if quote == nil {
		return fail(StageQuoteFetch, solana.Signature{}, fmt.Errorf("empty quote"))
	}
	run.result.Quote = quote
	done(StageQuoteFetch)
	log.WithFields(logrus.Fields{
		"route":      quote.RouteID,
		"out_amount": quote.OutAmount,
	}).Info("quote received")

	enter(StageBuildInstructions)
	set, err := o.deps.Builder.BuildInstructions(ctx, quote, req.Signer)
	if err != nil {
		return fail(StageBuildInstructions, solana.Signature{}, err)
	}
	if set == nil || set.Swap == nil {
		return fail(StageBuildInstructions, solana.Signature{}, fmt.Errorf("builder returned no swap instruction"))
	}
	done(StageBuildInstructions)

	enter(StageResolveLookups)
	tables, err := o.deps.Lookups.ResolveLookupTables(ctx, set.LookupTableAddresses)
	if err != nil {
		return fail(StageResolveLookups, solana.Signature{}, err)
	}
	done(StageResolveLookups)
	if len(tables) < len(set.LookupTableAddresses) {
		log.WithFields(logrus.Fields{
			"requested": len(set.LookupTableAddresses),
			"resolved":  len(tables),
		}).Warn("some lookup tables were not resolved")
	}

	enter(StageAssemble)
	latest, err := o.deps.Ledger.GetLatestBlockhash(ctx, o.cfg.Commitment.AtLeastConfirmed())
	if err != nil {
		return fail(StageAssemble, solana.Signature{}, newError(KindBlockhashUnavailable, StageAssemble, err))
	}
	lease := BlockhashLease{
		Blockhash:       latest.Blockhash,
		LastValidHeight: latest.LastValidBlockHeight,
		FetchedAt:       time.Now(),
	}
	env, err := Assemble(set, o.cfg.ComputeBudget, lease, req.Signer, tables)
	if err != nil {
		return fail(StageAssemble, solana.Signature{}, err)
	}
	done(StageAssemble)

	enter(StageSign)
	signed := o.signing.Sign(ctx, env)
	done(StageSign)
	if !signed.Signed {
		if ctx.Err() != nil {
			return fail(StageSign, solana.Signature{}, ctx.Err())
		}
		metrics.SigningFallbacks.Inc()
		log.WithField("stage", StageSign).WithError(signed.Err).Warn("signing failed, submitting unsigned for sign-and-send")
	}

	enter(StageBlockhashRecheck)
	height, err := o.deps.Ledger.GetBlockHeight(ctx, o.cfg.Commitment)
	if err != nil {
		return fail(StageBlockhashRecheck, solana.Signature{},
			newError(KindBlockhashExpired, StageBlockhashRecheck, fmt.Errorf("could not verify blockhash validity: %w", err)))
	}
	if height > lease.LastValidHeight {
		return fail(StageBlockhashRecheck, solana.Signature{},
			newError(KindBlockhashExpired, StageBlockhashRecheck, fmt.Errorf("current height %d > last valid height %d", height, lease.LastValidHeight)))
	}
	done(StageBlockhashRecheck)

	enter(StageSubmit)
	sig, err := o.submission.Submit(ctx, signed.Tx)
	if err != nil {
		return fail(StageSubmit, solana.Signature{}, err)
	}
	done(StageSubmit)
	log.WithField("signature", sig.String()).Info("transaction submitted")

	enter(StageConfirm)
	conf, err := o.deps.Confirmer.Confirm(ctx, sig, lease)
	if err != nil {
		return fail(StageConfirm, sig, err)
	}
	if conf.Status != ConfirmationConfirmed {
		return fail(StageConfirm, sig, confirmationError(conf, o.cfg.ConfirmTimeout))
	}
	done(StageConfirm)

	metrics.SwapAttempts.WithLabelValues(Success.String(), string(StageDone), "").Inc()
	run.transition(attempt, StageDone, nil)
	log.WithFields(logrus.Fields{
		"signature": sig.String(),
		"slot":      conf.Slot,
	}).Info("swap confirmed")
	return succeeded(sig)
}

// stageError attributes err to stage and attempt, defaulting its kind by
// stage. A cancelled context always wins.
func (o *Orchestrator) stageError(ctx context.Context, stage Stage, attempt int, sig solana.Signature, err error) *Error {
	var out *Error
	var se *Error

	switch {
	case ctx.Err() != nil:
		out = &Error{Kind: KindCancelled, Err: ctx.Err()}
	case errors.As(err, &se):
		cp := *se
		out = &cp
	default:
		out = &Error{Kind: defaultKind(stage), Err: err}
	}

	out.Stage = stage
	out.Attempt = attempt
	if isZeroSignature(out.Signature) {
		out.Signature = sig
	}
	if !isZeroSignature(out.Signature) {
		out.ExplorerURL = o.explorerURL(out.Signature)
	}
	return out
}

func defaultKind(stage Stage) Kind {
	switch stage {
	case StageQuoteFetch:
		return KindQuoteUnavailable
	case StageBuildInstructions:
		return KindInstructionBuildFailed
	case StageResolveLookups:
		return KindLookupUnavailable
	case StageAssemble:
		return KindAssemblyFailed
	case StageSign:
		return KindSigningFailed
	case StageBlockhashRecheck:
		return KindBlockhashExpired
	case StageSubmit:
		return KindSubmissionFailed
	case StageConfirm:
		return KindConfirmationUnavailable
	default:
		return KindUnknown
	}
}

func (o *Orchestrator) checkPaused(ctx context.Context, run *execution) error {
	if o.deps.Controls == nil {
		return nil
	}

	scopes := []string{
		controls.GlobalScope,
		controls.PairScope(run.req.InputMint.String(), run.req.OutputMint.String()),
	}
	paused, reason, err := o.deps.Controls.IsPaused(ctx, scopes...)
	if err != nil {
		run.log.WithError(err).Warn("could not read pause switches, continuing")
		return nil
	}
	if paused {
		return &Error{Kind: KindSwapsPaused, Stage: StageIdle, Err: errors.New(reason)}
	}
	return nil
}

// checkBalance refuses swaps larger than the signer's known balance before
// any quote is fetched. An unreadable balance skips the check.
func (o *Orchestrator) checkBalance(ctx context.Context, run *execution) error {
	if o.deps.Balances == nil {
		return nil
	}

	req := run.req
	balance, err := o.deps.Balances.SpendableBalance(ctx, req.Signer, req.InputMint)
	if err != nil {
		if ctx.Err() != nil {
			return &Error{Kind: KindCancelled, Stage: StageIdle, Err: ctx.Err()}
		}
		run.log.WithError(err).Warn("could not read balance, skipping pre-check")
		return nil
	}
	if req.Amount > balance {
		return &Error{
			Kind:  KindInsufficientBalance,
			Stage: StageIdle,
			Err:   fmt.Errorf("requested %d, available %d", req.Amount, balance),
		}
	}
	return nil
}

func (o *Orchestrator) finish(run *execution, err error) (*SwapResult, error) {
	res := run.result
	res.Duration = time.Since(run.started)

	if err == nil {
		res.Success = true
		res.ExplorerURL = o.explorerURL(res.Signature)
		run.log.WithFields(logrus.Fields{
			"signature": res.Signature.String(),
			"attempts":  res.Attempts,
			"duration":  res.Duration,
		}).Info("swap executed")
	} else {
		var se *Error
		if errors.As(err, &se) && !isZeroSignature(se.Signature) {
			res.Signature = se.Signature
			res.ExplorerURL = o.explorerURL(se.Signature)
		}
		res.Error = err.Error()
		res.Category = Categorize(err)
		run.transition(res.Attempts, StageAborted, err)
		run.log.WithFields(logrus.Fields{
			"attempts": res.Attempts,
			"kind":     KindOf(err).String(),
			"category": res.Category,
		}).WithError(err).Error("swap aborted")
	}

	result := "success"
	if !res.Success {
		result = "failed"
	}
	metrics.SwapExecutions.WithLabelValues(result, string(res.Category)).Inc()
	metrics.SwapDuration.Observe(res.Duration.Seconds())

	o.record(run, err)

	if err != nil {
		return res, err
	}
	return res, nil
}

// record hands the terminal record to every recorder. Failures are logged
// and never change the outcome.
func (o *Orchestrator) record(run *execution, err error) {
	if len(o.deps.Recorders) == 0 {
		return
	}

	res := run.result
	rec := &models.SwapRecord{
		ExecutionID: res.ExecutionID,
		Status:      models.SwapStatusSuccess,
		Signer:      run.req.Signer.String(),
		InputMint:   run.req.InputMint.String(),
		OutputMint:  run.req.OutputMint.String(),
		AmountIn:    run.req.Amount,
		SlippageBps: run.req.SlippageBps,
		Attempts:    res.Attempts,
		ExplorerURL: res.ExplorerURL,
		StartedAt:   run.started,
		FinishedAt:  run.started.Add(res.Duration),
		DurationMs:  res.Duration.Milliseconds(),
	}
	if !isZeroSignature(res.Signature) {
		rec.Signature = res.Signature.String()
	}
	if res.Quote != nil {
		rec.QuotedOut = res.Quote.OutAmount
		rec.PriceImpactPct = res.Quote.PriceImpactPct
		rec.RouteID = res.Quote.RouteID
	}
	if err != nil {
		rec.Status = models.SwapStatusFailed
		rec.ErrorKind = KindOf(err).String()
		rec.Error = err.Error()
		rec.Category = string(res.Category)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for _, r := range o.deps.Recorders {
		if rerr := r.RecordSwap(ctx, rec); rerr != nil {
			run.log.WithError(rerr).Warn("failed to record swap")
		}
	}
}

func (o *Orchestrator) explorerURL(sig solana.Signature) string {
	if isZeroSignature(sig) {
		return ""
	}
	return fmt.Sprintf(o.cfg.ExplorerTxURL, sig.String())
}

func isZeroSignature(sig solana.Signature) bool {
	return sig == solana.Signature{}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
