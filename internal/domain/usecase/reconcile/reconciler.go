package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/chain"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/notification"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/persistence"
)

// Outcome describes what Apply did with one chain event
type Outcome string

// Outcomes
const (
	OutcomeRecorded   Outcome = "recorded"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeDeferred   Outcome = "deferred"
	OutcomeRegistered Outcome = "registered"
	OutcomeInvalid    Outcome = "invalid"
)

// ConfirmationSink is told about every newly recorded fact so that awaiting
// external-domain intents can be paired with it
type ConfirmationSink interface {
	FactRecorded(fact *entity.TransactionRecord)
}

// Config controls how long a delivery is retried while the store is unavailable
type Config struct {
	RetryInterval coreport.Duration
	MaxInterval   coreport.Duration
}

// DefaultConfig backs off from one to ten seconds
func DefaultConfig() Config {
	return Config{
		RetryInterval: coreport.Second,
		MaxInterval:   10 * coreport.Second,
	}
}

// Reconciler absorbs externally observed settlement facts into the ledger store.
// It never touches internal balances.
type Reconciler struct {
	store         persistence.LedgerStore
	deferred      persistence.DeferredStore
	confirmations ConfirmationSink
	notifier      notification.NotificationSink
	logger        coreport.Logger
	timeProvider  coreport.TimeProvider
	metrics       coreport.SettlementMetrics
	config        Config
	newID         func() string
}

// NewReconciler creates a reconciler. deferred and confirmations may be nil; without a
// deferred store events for unlinked addresses are dropped and rely on redelivery.
func NewReconciler(
	store persistence.LedgerStore,
	deferred persistence.DeferredStore,
	confirmations ConfirmationSink,
	notifier notification.NotificationSink,
	logger coreport.Logger,
	timeProvider coreport.TimeProvider,
	metrics coreport.SettlementMetrics,
	config Config,
) *Reconciler {
	if metrics == nil {
		metrics = coreport.NoopMetrics{}
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = coreport.Second
	}
	if config.MaxInterval < config.RetryInterval {
		config.MaxInterval = config.RetryInterval
	}
	return &Reconciler{
		store:         store,
		deferred:      deferred,
		confirmations: confirmations,
		notifier:      notifier,
		logger:        logger,
		timeProvider:  timeProvider,
		metrics:       metrics,
		config:        config,
		newID:         uuid.NewString,
	}
}

// Run applies deliveries until the channel is closed or ctx is done
func (r *Reconciler) Run(ctx context.Context, deliveries <-chan chain.Delivery) {
	r.logger.Info("Reconciler started", nil)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciler stopped by context", nil)
			return
		case delivery, ok := <-deliveries:
			if !ok {
				r.logger.Info("Chain event stream closed, reconciler stopped", nil)
				return
			}
			r.handle(ctx, delivery)
		}
	}
}

// handle applies one delivery and acknowledges it. Transient store failures are retried
// in place so that the delivery is not acknowledged before it took effect.
func (r *Reconciler) handle(ctx context.Context, delivery chain.Delivery) {
	wait := r.config.RetryInterval.Std()
	for {
		_, err := r.Apply(ctx, delivery.Event)
		if err == nil || !errs.IsRetryable(err) {
			break
		}

		r.logger.Warn("Store unavailable while reconciling, retrying", map[string]any{
			"external_ref": delivery.Event.ExternalRef,
			"retry_in":     wait.String(),
			"error":        err.Error(),
		})

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		wait *= 2
		if wait > r.config.MaxInterval.Std() {
			wait = r.config.MaxInterval.Std()
		}
	}

	if delivery.Ack == nil {
		return
	}
	if err := delivery.Ack(ctx); err != nil {
		r.logger.Warn("Failed to acknowledge chain event", map[string]any{
			"external_ref": delivery.Event.ExternalRef,
			"error":        err.Error(),
		})
	}
}

// Apply absorbs one chain event. Malformed events yield OutcomeInvalid with the
// validation error; store failures are returned as is.
func (r *Reconciler) Apply(ctx context.Context, event entity.ChainEvent) (Outcome, error) {
	outcome, err := r.apply(ctx, event)
	if err == nil || outcome == OutcomeInvalid {
		r.metrics.ChainEvent(string(outcome))
	}
	return outcome, err
}

func (r *Reconciler) apply(ctx context.Context, raw entity.ChainEvent) (Outcome, error) {
	event, err := raw.Normalized()
	if err != nil {
		r.logger.Warn("Discarding malformed chain event", map[string]any{
			"external_ref": raw.ExternalRef,
			"kind":         raw.Kind,
			"error":        err.Error(),
		})
		return OutcomeInvalid, err
	}

	accounts, unresolved, err := r.resolve(ctx, event.Participants)
	if err != nil {
		return "", err
	}
	if len(unresolved) > 0 {
		deferred, err := r.deferEvent(ctx, event, unresolved)
		if err != nil || deferred {
			return OutcomeDeferred, err
		}
		// every address was linked while parking; resolve again and continue
		if accounts, unresolved, err = r.resolve(ctx, event.Participants); err != nil {
			return "", err
		}
		if len(unresolved) > 0 {
			return OutcomeDeferred, nil
		}
	}

	if event.Kind == entity.ChainUserRegistered {
		return r.register(ctx, event, accounts[0])
	}
	return r.record(ctx, event, accounts)
}

// resolve maps each participant address to its account, collecting unlinked addresses
func (r *Reconciler) resolve(ctx context.Context, addresses []string) ([]*entity.AccountLedger, []string, error) {
	accounts := make([]*entity.AccountLedger, len(addresses))
	var unresolved []string
	for i, address := range addresses {
		account, err := r.store.FindAccountByAddress(ctx, address)
		if errors.Is(err, errs.ErrAccountNotFound) {
			unresolved = append(unresolved, address)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		accounts[i] = account
	}
	return accounts, unresolved, nil
}

// deferEvent parks the event under each unlinked address. It reports false when every
// address turned out to be linked in the meantime, so the caller can apply it right away.
func (r *Reconciler) deferEvent(ctx context.Context, event entity.ChainEvent, unresolved []string) (bool, error) {
	if r.deferred == nil {
		r.logger.Warn("Skipping chain event for unlinked address", map[string]any{
			"external_ref": event.ExternalRef,
			"addresses":    unresolved,
		})
		return true, nil
	}

	for _, address := range unresolved {
		if err := r.deferred.Park(ctx, address, event); err != nil {
			return true, fmt.Errorf("%w: park chain event: %s", errs.ErrExternalUnavailable, err.Error())
		}
	}

	// a link that committed between resolve and Park would have replayed before the event was parked
	stillUnresolved := false
	for _, address := range unresolved {
		_, err := r.store.FindAccountByAddress(ctx, address)
		if errors.Is(err, errs.ErrAccountNotFound) {
			stillUnresolved = true
			continue
		}
		if err != nil {
			return true, err
		}
		if err := r.deferred.Release(ctx, address, event.ExternalRef); err != nil {
			r.logger.Warn("Failed to release parked chain event", map[string]any{
				"address":      address,
				"external_ref": event.ExternalRef,
				"error":        err.Error(),
			})
		}
	}

	if stillUnresolved {
		r.logger.Info("Deferred chain event for unlinked address", map[string]any{
			"external_ref": event.ExternalRef,
			"kind":         event.Kind,
			"addresses":    unresolved,
		})
	}
	return stillUnresolved, nil
}

func (r *Reconciler) register(ctx context.Context, event entity.ChainEvent, account *entity.AccountLedger) (Outcome, error) {
	changed, err := r.store.SetExternalRegistered(ctx, account.UserID, r.timeProvider.Now())
	if err != nil {
		return "", err
	}
	if !changed {
		return OutcomeDuplicate, nil
	}

	r.logger.Info("Account registered on external ledger", map[string]any{
		"user_id":      account.UserID,
		"external_ref": event.ExternalRef,
	})
	r.notifier.Notify(ctx, account.UserID, "Wallet registered on external ledger", entity.SeveritySuccess)
	return OutcomeRegistered, nil
}

func (r *Reconciler) record(ctx context.Context, event entity.ChainEvent, accounts []*entity.AccountLedger) (Outcome, error) {
	kind, _ := event.SettlementKind()
	subject := accounts[0]

	var counterpartyID *uint64
	if kind == entity.KindTransfer {
		id := accounts[1].UserID
		counterpartyID = &id
	}

	fact, err := entity.NewReconciledRecord(r.newID(), kind, subject.UserID, counterpartyID,
		event.Amount, event.ExternalRef, event.ExternalHeight, r.timeProvider.Now())
	if err != nil {
		return OutcomeInvalid, err
	}

	inserted, err := r.store.InsertIfAbsentByExternalRef(ctx, fact)
	if err != nil {
		return "", err
	}
	if !inserted {
		r.logger.Debug("Duplicate chain event absorbed", map[string]any{
			"external_ref": event.ExternalRef,
		})
		return OutcomeDuplicate, nil
	}

	r.logger.Info("Chain event reconciled", map[string]any{
		"record_id":       fact.ID,
		"external_ref":    event.ExternalRef,
		"external_height": event.ExternalHeight,
		"kind":            kind,
		"user_id":         subject.UserID,
		"amount":          entity.FormatAmount(event.Amount),
	})
	r.notifyRecorded(ctx, fact)

	if r.confirmations != nil {
		r.confirmations.FactRecorded(fact)
	}
	return OutcomeRecorded, nil
}

func (r *Reconciler) notifyRecorded(ctx context.Context, fact *entity.TransactionRecord) {
	amount := entity.FormatAmount(fact.Amount)
	switch fact.Kind {
	case entity.KindDeposit:
		r.notifier.Notify(ctx, fact.SubjectUserID,
			fmt.Sprintf("On-chain deposit of %s confirmed", amount), entity.SeveritySuccess)
	case entity.KindWithdraw:
		r.notifier.Notify(ctx, fact.SubjectUserID,
			fmt.Sprintf("On-chain withdrawal of %s confirmed", amount), entity.SeveritySuccess)
	case entity.KindTransfer:
		r.notifier.Notify(ctx, fact.SubjectUserID,
			fmt.Sprintf("On-chain transfer of %s to user %d confirmed", amount, *fact.CounterpartyUserID),
			entity.SeveritySuccess)
		r.notifier.Notify(ctx, *fact.CounterpartyUserID,
			fmt.Sprintf("Received %s on-chain from user %d", amount, fact.SubjectUserID),
			entity.SeveritySuccess)
	}
}

// ReplayDeferred re-applies every event parked on address and releases those that no
// longer need to wait. Returns the number of events released.
func (r *Reconciler) ReplayDeferred(ctx context.Context, address string) (int, error) {
	if r.deferred == nil {
		return 0, nil
	}

	normalized, err := entity.NormalizeAddress(address)
	if err != nil {
		return 0, err
	}

	// releasing before the address is linked would drop the events
	if _, err := r.store.FindAccountByAddress(ctx, normalized); err != nil {
		if errors.Is(err, errs.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}

	parked, err := r.deferred.Parked(ctx, normalized)
	if err != nil {
		return 0, fmt.Errorf("%w: read parked chain events: %s", errs.ErrExternalUnavailable, err.Error())
	}

	released := 0
	for _, event := range parked {
		outcome, err := r.Apply(ctx, event)
		if err != nil && errs.IsRetryable(err) {
			return released, err
		}
		// still-deferred events are now parked under their other unlinked address
		if err := r.deferred.Release(ctx, normalized, event.ExternalRef); err != nil {
			return released, fmt.Errorf("%w: release chain event: %s", errs.ErrExternalUnavailable, err.Error())
		}
		released++
		r.logger.Debug("Replayed parked chain event", map[string]any{
			"address":      normalized,
			"external_ref": event.ExternalRef,
			"outcome":      outcome,
		})
	}

	if released > 0 {
		r.logger.Info("Replayed parked chain events", map[string]any{
			"address":  normalized,
			"released": released,
		})
	}
	return released, nil
}
