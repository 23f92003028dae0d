package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/notification"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/persistence"
)

// WorkerConfig bounds how long the worker spends on each intent
type WorkerConfig struct {
	ProcessingTimeout   coreport.Duration
	PersistTimeout      coreport.Duration
	Retry               RetryConfig
	ConfirmationHorizon coreport.Duration
	SweepInterval       coreport.Duration
	SweepBatch          int
	ConfirmationBuffer  int
}

// DefaultWorkerConfig returns the default worker configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		ProcessingTimeout:   5 * coreport.Second,
		PersistTimeout:      5 * coreport.Second,
		Retry:               DefaultRetryConfig(),
		ConfirmationHorizon: 10 * coreport.Minute,
		SweepInterval:       30 * coreport.Second,
		SweepBatch:          100,
		ConfirmationBuffer:  256,
	}
}

// SettlementWorker is the single consumer of the intent queue and the only writer of
// internal balances. One goroutine runs Run; intents are handled strictly one at a time.
type SettlementWorker struct {
	queue         *IntentQueue
	store         persistence.LedgerStore
	notifier      notification.NotificationSink
	logger        coreport.Logger
	timeProvider  coreport.TimeProvider
	metrics       coreport.SettlementMetrics
	config        WorkerConfig
	confirmations chan *entity.TransactionRecord
	processing    atomic.Bool
	done          chan struct{}
}

// NewSettlementWorker creates a worker bound to one queue
func NewSettlementWorker(
	queue *IntentQueue,
	store persistence.LedgerStore,
	notifier notification.NotificationSink,
	logger coreport.Logger,
	timeProvider coreport.TimeProvider,
	metrics coreport.SettlementMetrics,
	config WorkerConfig,
) *SettlementWorker {
	if metrics == nil {
		metrics = coreport.NoopMetrics{}
	}
	if config.SweepBatch <= 0 {
		config.SweepBatch = 100
	}
	if config.ConfirmationBuffer <= 0 {
		config.ConfirmationBuffer = 256
	}
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = 5 * coreport.Second
	}
	return &SettlementWorker{
		queue:         queue,
		store:         store,
		notifier:      notifier,
		logger:        logger,
		timeProvider:  timeProvider,
		metrics:       metrics,
		config:        config,
		confirmations: make(chan *entity.TransactionRecord, config.ConfirmationBuffer),
		done:          make(chan struct{}),
	}
}

// Run consumes intents until the queue is closed and drained, or ctx is canceled
func (w *SettlementWorker) Run(ctx context.Context) {
	defer close(w.done)

	ticker := w.timeProvider.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	w.logger.Info("Settlement worker started", map[string]any{
		"queue_capacity": w.queue.Cap(),
	})

	for {
		select {
		case <-ctx.Done():
			w.logger.Warn("Settlement worker stopped by context", map[string]any{
				"pending_intents": w.queue.Len(),
			})
			return
		case intent, ok := <-w.queue.Intents():
			if !ok {
				w.logger.Info("Settlement worker drained queue and stopped", nil)
				return
			}
			w.processing.Store(true)
			w.Process(ctx, intent)
			w.processing.Store(false)
			w.metrics.QueueDepth(w.queue.Len())
		case fact := <-w.confirmations:
			w.ConfirmFact(ctx, fact)
		case <-ticker.C():
			w.SweepUnconfirmed(ctx)
		}
	}
}

// Done is closed when Run returns
func (w *SettlementWorker) Done() <-chan struct{} {
	return w.done
}

// IsProcessing reports whether an intent is being handled right now
func (w *SettlementWorker) IsProcessing() bool {
	return w.processing.Load()
}

// FactRecorded hands a newly reconciled fact to the worker without blocking.
// When the buffer is full the fact is left for the next sweep.
func (w *SettlementWorker) FactRecorded(fact *entity.TransactionRecord) {
	select {
	case w.confirmations <- fact:
	default:
		w.logger.Warn("Confirmation buffer full, deferring to sweep", map[string]any{
			"external_ref": deref(fact.ExternalRef),
		})
	}
}

// Process takes one intent to a terminal status, or to awaiting confirmation for the external domain
func (w *SettlementWorker) Process(ctx context.Context, intent *entity.Intent) {
	if err := w.markProcessing(ctx, intent); err != nil {
		if errors.Is(err, errAlreadyTerminal) {
			w.logger.Debug("Intent already settled, skipping", map[string]any{
				"intent_id": intent.ID(),
			})
			return
		}
		w.logger.Error("Failed to mark intent processing", map[string]any{
			"intent_id": intent.ID(),
			"error":     err.Error(),
		})
		w.fail(ctx, intent, entity.StatusPending, err)
		return
	}

	w.logger.Debug("Processing intent", map[string]any{
		"intent_id": intent.ID(),
		"kind":      intent.Kind(),
		"domain":    intent.Domain(),
		"user_id":   intent.SubjectUserID(),
		"amount":    entity.FormatAmount(intent.Amount()),
	})

	if intent.Domain() == entity.DomainExternal {
		w.awaitConfirmation(ctx, intent)
		return
	}

	err := w.settleInternal(ctx, intent)
	w.finish(ctx, intent, err)
}

var errAlreadyTerminal = errors.New("intent already terminal")

// persistContext bounds one store write. It outlives ctx so terminal writes still land
// during shutdown, but never outlives PersistTimeout.
func (w *SettlementWorker) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return w.timeProvider.WithTimeout(context.WithoutCancel(ctx), w.config.PersistTimeout)
}

// markProcessing moves the record pending→processing, retrying transient store failures
func (w *SettlementWorker) markProcessing(ctx context.Context, intent *entity.Intent) error {
	err := RetryOnTransientError(ctx, w.config.Retry, func() error {
		writeCtx, cancel := w.persistContext(ctx)
		defer cancel()
		return w.store.UpdateTransactionStatus(writeCtx, intent.ID(), entity.StatusPending, entity.StatusProcessing, "", w.timeProvider.Now())
	}, w.logger)
	if err == nil || !errors.Is(err, errs.ErrIllegalTransition) {
		return err
	}

	// an earlier attempt may have committed before its acknowledgement was lost
	readCtx, cancel := w.persistContext(ctx)
	defer cancel()
	record, getErr := w.store.GetTransaction(readCtx, intent.ID())
	if getErr != nil {
		return err
	}
	switch {
	case record.Status == entity.StatusProcessing:
		return nil
	case record.Status.IsTerminal():
		return errAlreadyTerminal
	default:
		return err
	}
}

// settleInternal re-validates the intent against current balances and applies it atomically
func (w *SettlementWorker) settleInternal(parent context.Context, intent *entity.Intent) error {
	ctx, cancel := w.timeProvider.WithTimeout(parent, w.config.ProcessingTimeout)
	defer cancel()

	err := RetryOnTransientError(ctx, w.config.Retry, func() error {
		return w.applyOnce(ctx, intent)
	}, w.logger)

	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return fmt.Errorf("%w: %s", errs.ErrProcessingTimeout, err.Error())
	}
	return err
}

func (w *SettlementWorker) applyOnce(ctx context.Context, intent *entity.Intent) error {
	subject, err := w.store.GetAccount(ctx, intent.SubjectUserID())
	if err != nil {
		return err
	}
	if counterpartyID, ok := intent.CounterpartyUserID(); ok {
		if _, err := w.store.GetAccount(ctx, counterpartyID); err != nil {
			return err
		}
	}

	// balances may have moved since submission; checked again here and inside the store
	if intent.IsDebit() && !subject.CanCover(intent.Amount()) {
		return errs.NewInsufficientFundsError(subject.UserID,
			entity.FormatAmount(intent.Amount()), entity.FormatAmount(subject.InternalBalance()))
	}

	err = w.store.ApplySettlement(ctx, intent.Settlement(w.timeProvider.Now()))
	if errors.Is(err, errs.ErrIllegalTransition) {
		// an earlier attempt may have committed before its acknowledgement was lost
		if record, getErr := w.store.GetTransaction(ctx, intent.ID()); getErr == nil && record.Status == entity.StatusCompleted {
			return nil
		}
	}
	return err
}

// finish records the outcome of an internal intent and notifies the participants
func (w *SettlementWorker) finish(ctx context.Context, intent *entity.Intent, err error) {
	if err == nil {
		w.terminal(intent.Kind(), intent.Domain(), entity.StatusCompleted, intent.SubmittedAt())
		w.logger.Info("Intent settled", map[string]any{
			"intent_id": intent.ID(),
			"kind":      intent.Kind(),
			"user_id":   intent.SubjectUserID(),
			"amount":    entity.FormatAmount(intent.Amount()),
		})
		w.notifySettled(ctx, intent)
		return
	}

	w.fail(ctx, intent, entity.StatusProcessing, err)
}

// fail records cause on the intent's own record and tells the participants
func (w *SettlementWorker) fail(ctx context.Context, intent *entity.Intent, from entity.TransactionStatus, cause error) {
	reason := errs.FailureReason(cause)
	settlementErr := errs.NewSettlementError(intent.ID(), string(intent.Kind()), reason, cause)

	var logErr *errs.SettlementError
	if errors.As(settlementErr, &logErr) {
		w.logger.Warn("Intent failed", logErr.LogFields())
	}

	err := RetryOnTransientError(context.WithoutCancel(ctx), w.config.Retry, func() error {
		writeCtx, cancel := w.persistContext(ctx)
		defer cancel()
		return w.store.UpdateTransactionStatus(writeCtx, intent.ID(), from, entity.StatusFailed, reason, w.timeProvider.Now())
	}, w.logger)
	if err != nil {
		w.logger.Error("Failed to mark intent failed", map[string]any{
			"intent_id": intent.ID(),
			"error":     err.Error(),
		})
		return
	}

	w.terminal(intent.Kind(), intent.Domain(), entity.StatusFailed, intent.SubmittedAt())
	w.notifier.Notify(ctx, intent.SubjectUserID(),
		fmt.Sprintf("%s of %s failed: %s", intent.Kind().Label(), entity.FormatAmount(intent.Amount()), reason),
		entity.SeverityError)
	if counterpartyID, ok := intent.CounterpartyUserID(); ok {
		w.notifier.Notify(ctx, counterpartyID,
			fmt.Sprintf("Incoming transfer of %s from user %d failed", entity.FormatAmount(intent.Amount()), intent.SubjectUserID()),
			entity.SeverityWarning)
	}
}

func (w *SettlementWorker) notifySettled(ctx context.Context, intent *entity.Intent) {
	w.notifier.Notify(ctx, intent.SubjectUserID(),
		fmt.Sprintf("%s of %s completed successfully", intent.Kind().Label(), entity.FormatAmount(intent.Amount())),
		entity.SeveritySuccess)
	if counterpartyID, ok := intent.CounterpartyUserID(); ok {
		w.notifier.Notify(ctx, counterpartyID,
			fmt.Sprintf("Received %s from user %d", entity.FormatAmount(intent.Amount()), intent.SubjectUserID()),
			entity.SeveritySuccess)
	}
}

func (w *SettlementWorker) terminal(kind entity.Kind, domain entity.LedgerDomain, status entity.TransactionStatus, submittedAt time.Time) {
	w.metrics.IntentTerminal(string(kind), string(domain), string(status), w.timeProvider.Since(submittedAt))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
