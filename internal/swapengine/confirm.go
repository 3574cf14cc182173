package swapengine

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/metrics"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// WatcherConfig tunes a ConfirmationWatcher.
type WatcherConfig struct {
	Commitment      rpc.Commitment
	Timeout         time.Duration
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	Logger          *logrus.Logger
}

// DefaultWatcherConfig waits up to 60s at "confirmed", polling from 500ms
// backing off to 4s.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Commitment:      rpc.CommitmentConfirmed,
		Timeout:         60 * time.Second,
		PollInterval:    500 * time.Millisecond,
		MaxPollInterval: 4 * time.Second,
	}
}

// ConfirmationWatcher waits for a signature to reach a commitment level.
type ConfirmationWatcher struct {
	source SignatureStatusSource
	cfg    WatcherConfig
	logger *logrus.Logger
}

func NewConfirmationWatcher(source SignatureStatusSource, cfg WatcherConfig) *ConfirmationWatcher {
	def := DefaultWatcherConfig()
	if cfg.Commitment == "" {
		cfg.Commitment = def.Commitment
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxPollInterval < cfg.PollInterval {
		cfg.MaxPollInterval = cfg.PollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &ConfirmationWatcher{source: source, cfg: cfg, logger: cfg.Logger}
}

// Confirm polls until sig is confirmed, fails on-chain, outlives its lease
// or the timeout elapses. A failed status read never ends the wait: the
// transaction is already broadcast, so only a verdict or the timeout may. The
// caller's context being cancelled is returned as its error.
func (w *ConfirmationWatcher) Confirm(ctx context.Context, sig solana.Signature, lease BlockhashLease) (*ConfirmationResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	backoff := w.cfg.PollInterval
	log := w.logger.WithField("signature", sig.String())
	polled := false

	for {
		statuses, err := w.source.GetSignatureStatuses(waitCtx, sig)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if waitCtx.Err() == nil {
				metrics.ConfirmationPollErrors.Inc()
				log.WithError(err).Warn("signature status poll failed")
			}
		default:
			polled = true
			var status *rpc.SignatureStatus
			if len(statuses) > 0 {
				status = statuses[0]
			}

			if status != nil {
				if status.Err != nil {
					return &ConfirmationResult{
						Status:    ConfirmationOnChainError,
						Signature: sig,
						Slot:      status.Slot,
						Err:       status.Err,
					}, nil
				}
				if w.cfg.Commitment.Satisfies(status.ConfirmationStatus) {
					return &ConfirmationResult{
						Status:    ConfirmationConfirmed,
						Signature: sig,
						Slot:      status.Slot,
					}, nil
				}
				log.WithField("status", status.ConfirmationStatus).Debug("waiting for commitment")
			} else if lease.LastValidHeight > 0 {
				height, herr := w.source.GetBlockHeight(waitCtx, w.cfg.Commitment)
				if herr != nil {
					log.WithError(herr).Debug("block height unavailable, expiry not checked")
				} else if height > lease.LastValidHeight {
					return &ConfirmationResult{Status: ConfirmationExpired, Signature: sig}, nil
				}
			}
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-waitCtx.Done():
			timer.Stop()
			if !polled {
				log.Warn("no signature status was readable before the confirmation timeout")
			}
			return &ConfirmationResult{Status: ConfirmationTimedOut, Signature: sig}, nil
		case <-timer.C:
			backoff *= 2
			if backoff > w.cfg.MaxPollInterval {
				backoff = w.cfg.MaxPollInterval
			}
		}
	}
}

// confirmationError converts a non-confirmed result into a classified error.
func confirmationError(res *ConfirmationResult, timeout time.Duration) *Error {
	switch res.Status {
	case ConfirmationOnChainError:
		return &Error{
			Kind:      KindOnChainExecutionFailed,
			Stage:     StageConfirm,
			Signature: res.Signature,
			Payload:   res.Err,
			Err:       fmt.Errorf("%v", res.Err),
		}
	case ConfirmationExpired:
		return &Error{
			Kind:      KindBlockhashExpired,
			Stage:     StageConfirm,
			Signature: res.Signature,
			Err:       fmt.Errorf("signature %s not seen before lease expired", res.Signature),
		}
	default:
		return &Error{
			Kind:      KindConfirmationTimeout,
			Stage:     StageConfirm,
			Signature: res.Signature,
			Err:       fmt.Errorf("transaction was not confirmed in %v", timeout),
		}
	}
}
