package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
)

// awaitConfirmation leaves an external-domain intent processing unless a reconciled fact
// for it was already observed, in which case it is claimed immediately
func (w *SettlementWorker) awaitConfirmation(parent context.Context, intent *entity.Intent) {
	ctx, cancel := w.persistContext(parent)
	defer cancel()

	record, err := w.store.GetTransaction(ctx, intent.ID())
	if err != nil {
		w.logger.Error("Failed to load external intent", map[string]any{
			"intent_id": intent.ID(),
			"error":     err.Error(),
		})
		return
	}

	if w.claimFact(ctx, record) {
		return
	}

	w.logger.Info("External intent awaiting confirmation", map[string]any{
		"intent_id": intent.ID(),
		"kind":      intent.Kind(),
		"user_id":   intent.SubjectUserID(),
		"amount":    entity.FormatAmount(intent.Amount()),
	})
}

// claimFact completes an awaiting intent with the oldest matching unclaimed fact, if any.
// Facts observed more than one confirmation horizon before the intent was created are ignored.
func (w *SettlementWorker) claimFact(ctx context.Context, record *entity.TransactionRecord) bool {
	match := entity.MatchOf(record)
	match.NotBefore = record.CreatedAt.Add(-w.config.ConfirmationHorizon.Std())

	fact, err := w.store.FindUnclaimedFact(ctx, match)
	if err != nil {
		if !errors.Is(err, errs.ErrTransactionNotFound) {
			w.logger.Warn("Failed to look up reconciled facts", map[string]any{
				"intent_id": record.ID,
				"error":     err.Error(),
			})
		}
		return false
	}
	return w.confirm(ctx, record, fact)
}

// ConfirmFact completes the oldest external intent corroborated by a newly reconciled fact
func (w *SettlementWorker) ConfirmFact(parent context.Context, fact *entity.TransactionRecord) {
	if fact.ExternalRef == nil {
		return
	}
	ctx, cancel := w.persistContext(parent)
	defer cancel()

	record, err := w.store.FindAwaitingConfirmation(ctx, entity.MatchOf(fact))
	if err != nil {
		if !errors.Is(err, errs.ErrTransactionNotFound) {
			w.logger.Warn("Failed to look up awaiting intents", map[string]any{
				"external_ref": *fact.ExternalRef,
				"error":        err.Error(),
			})
		}
		return
	}
	w.confirm(ctx, record, fact)
}

func (w *SettlementWorker) confirm(ctx context.Context, record, fact *entity.TransactionRecord) bool {
	err := w.store.ConfirmExternalIntent(ctx, record.ID, *fact.ExternalRef, w.timeProvider.Now())
	if err != nil {
		if errors.Is(err, errs.ErrDuplicateExternalRef) || errors.Is(err, errs.ErrIllegalTransition) {
			w.logger.Debug("Fact already paired", map[string]any{
				"intent_id":    record.ID,
				"external_ref": *fact.ExternalRef,
			})
		} else {
			w.logger.Error("Failed to confirm external intent", map[string]any{
				"intent_id":    record.ID,
				"external_ref": *fact.ExternalRef,
				"error":        err.Error(),
			})
		}
		return false
	}

	w.terminal(record.Kind, record.LedgerDomain, entity.StatusCompleted, record.CreatedAt)
	w.logger.Info("External intent confirmed", map[string]any{
		"intent_id":    record.ID,
		"external_ref": *fact.ExternalRef,
		"user_id":      record.SubjectUserID,
	})
	w.notifier.Notify(ctx, record.SubjectUserID,
		fmt.Sprintf("%s of %s confirmed by external ledger", record.Kind.Label(), entity.FormatAmount(record.Amount)),
		entity.SeveritySuccess)
	return true
}

// SweepUnconfirmed retries pairing for awaiting external intents and fails those that
// have waited longer than the confirmation horizon
func (w *SettlementWorker) SweepUnconfirmed(ctx context.Context) {
	now := w.timeProvider.Now()
	listCtx, cancel := w.persistContext(ctx)
	awaiting, err := w.store.ListAwaitingConfirmation(listCtx, now, w.config.SweepBatch)
	cancel()
	if err != nil {
		w.logger.Warn("Failed to list awaiting intents", map[string]any{
			"error": err.Error(),
		})
		return
	}

	expired := 0
	for _, record := range awaiting {
		if w.expire(ctx, record, now) {
			expired++
		}
	}

	if expired > 0 {
		w.logger.Warn("Expired unconfirmed external intents", map[string]any{
			"expired": expired,
			"horizon": w.config.ConfirmationHorizon.Std().String(),
		})
	}
}

// expire pairs one awaiting intent or fails it once it is past the horizon
func (w *SettlementWorker) expire(parent context.Context, record *entity.TransactionRecord, now time.Time) bool {
	ctx, cancel := w.persistContext(parent)
	defer cancel()

	if w.claimFact(ctx, record) {
		return false
	}
	if now.Sub(record.UpdatedAt) < w.config.ConfirmationHorizon.Std() {
		return false
	}

	reason := errs.FailureReason(errs.ErrUnconfirmedTimeout)
	if err := w.store.UpdateTransactionStatus(ctx, record.ID, entity.StatusProcessing, entity.StatusFailed, reason, now); err != nil {
		w.logger.Error("Failed to expire external intent", map[string]any{
			"intent_id": record.ID,
			"error":     err.Error(),
		})
		return false
	}

	w.terminal(record.Kind, record.LedgerDomain, entity.StatusFailed, record.CreatedAt)
	w.notifier.Notify(ctx, record.SubjectUserID,
		fmt.Sprintf("%s of %s failed: %s", record.Kind.Label(), entity.FormatAmount(record.Amount), reason),
		entity.SeverityError)
	return true
}
