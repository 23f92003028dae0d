package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/ledger"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/notification"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/usecase"
)

// Listing limits
const (
	DefaultUserTransactionsLimit = 50
	DefaultTransactionsLimit     = 100
	MaxListLimit                 = 500
)

// Service implements the SettlementUseCase interface
type Service struct {
	store        persistence.LedgerStore
	queue        *IntentQueue
	worker       *SettlementWorker
	external     ledger.ExternalLedger
	notifier     notification.NotificationSink
	logger       coreport.Logger
	timeProvider coreport.TimeProvider
	metrics      coreport.SettlementMetrics
	newID        func() string
}

var _ usecase.SettlementUseCase = (*Service)(nil)

// NewService creates the settlement service. external may be nil, in which case
// external-domain intents are accepted without a live balance check.
func NewService(
	store persistence.LedgerStore,
	queue *IntentQueue,
	worker *SettlementWorker,
	external ledger.ExternalLedger,
	notifier notification.NotificationSink,
	logger coreport.Logger,
	timeProvider coreport.TimeProvider,
	metrics coreport.SettlementMetrics,
) *Service {
	if metrics == nil {
		metrics = coreport.NoopMetrics{}
	}
	return &Service{
		store:        store,
		queue:        queue,
		worker:       worker,
		external:     external,
		notifier:     notifier,
		logger:       logger,
		timeProvider: timeProvider,
		metrics:      metrics,
		newID:        uuid.NewString,
	}
}

// SubmitIntent validates, records and enqueues one settlement intent
func (s *Service) SubmitIntent(ctx context.Context, req usecase.SubmitIntentRequest) (*usecase.SubmitIntentResult, error) {
	amount, err := entity.ParseAmount(req.Amount)
	if err != nil {
		return nil, errs.NewValidationError("amount", "must be a positive decimal", err)
	}

	intent, err := entity.NewIntent(
		s.newID(),
		entity.Kind(req.Kind),
		req.SubjectUserID,
		amount,
		entity.LedgerDomain(req.Domain),
		req.CounterpartyUserID,
		s.timeProvider.Now(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.checkParticipants(ctx, intent); err != nil {
		s.logger.Info("Intent rejected at submission", map[string]any{
			"user_id": intent.SubjectUserID(),
			"kind":    intent.Kind(),
			"domain":  intent.Domain(),
			"error":   err.Error(),
		})
		return nil, err
	}

	record := entity.NewPendingRecord(intent)
	if err := s.store.CreateTransaction(ctx, record); err != nil {
		s.logger.Error("Failed to record pending intent", map[string]any{
			"intent_id": intent.ID(),
			"error":     err.Error(),
		})
		return nil, err
	}

	intentID, err := s.queue.Submit(intent)
	if err != nil {
		s.metrics.IntentRejected()
		s.logger.Warn("Intent queue refused intent", map[string]any{
			"intent_id":   intent.ID(),
			"queue_depth": s.queue.Len(),
			"error":       err.Error(),
		})
		// the record is never dequeued, so it is closed here rather than left pending
		if updateErr := s.store.UpdateTransactionStatus(context.WithoutCancel(ctx), intent.ID(),
			entity.StatusPending, entity.StatusFailed, errs.FailureReason(err), s.timeProvider.Now()); updateErr != nil {
			s.logger.Error("Failed to close refused intent", map[string]any{
				"intent_id": intent.ID(),
				"error":     updateErr.Error(),
			})
		}
		return nil, err
	}

	s.metrics.IntentSubmitted(string(intent.Kind()), string(intent.Domain()))
	s.metrics.QueueDepth(s.queue.Len())
	s.logger.Info("Intent accepted", map[string]any{
		"intent_id": intentID,
		"kind":      intent.Kind(),
		"domain":    intent.Domain(),
		"user_id":   intent.SubjectUserID(),
		"amount":    entity.FormatAmount(amount),
	})

	s.notifier.Notify(ctx, intent.SubjectUserID(),
		fmt.Sprintf("%s of %s is being processed", intent.Kind().Label(), entity.FormatAmount(amount)),
		entity.SeverityInfo)
	if counterpartyID, ok := intent.CounterpartyUserID(); ok {
		s.notifier.Notify(ctx, counterpartyID,
			fmt.Sprintf("Incoming transfer of %s", entity.FormatAmount(amount)),
			entity.SeverityInfo)
	}

	return &usecase.SubmitIntentResult{IntentID: intentID, Status: entity.StatusPending}, nil
}

// checkParticipants performs the submission-time checks that need stored state.
// These are advisory: the worker re-validates against the balance at apply time.
func (s *Service) checkParticipants(ctx context.Context, intent *entity.Intent) error {
	subject, err := s.loadParticipant(ctx, "subjectUserId", intent.SubjectUserID())
	if err != nil {
		return err
	}

	var counterparty *entity.AccountLedger
	if counterpartyID, ok := intent.CounterpartyUserID(); ok {
		counterparty, err = s.loadParticipant(ctx, "counterpartyUserId", counterpartyID)
		if err != nil {
			return err
		}
	}

	if intent.Domain() == entity.DomainInternal {
		if intent.IsDebit() && !subject.CanCover(intent.Amount()) {
			return errs.NewValidationError("amount", "balance already insufficient",
				errs.NewInsufficientFundsError(subject.UserID,
					entity.FormatAmount(intent.Amount()), entity.FormatAmount(subject.InternalBalance())))
		}
		return nil
	}

	if !subject.HasExternalAddress() {
		return errs.NewValidationError("subjectUserId", "no linked external address", errs.ErrAddressNotLinked)
	}
	if counterparty != nil && !counterparty.HasExternalAddress() {
		return errs.NewValidationError("counterpartyUserId", "no linked external address", errs.ErrAddressNotLinked)
	}
	if !intent.IsDebit() || s.external == nil {
		return nil
	}

	available, err := s.external.Balance(ctx, *subject.ExternalAddress)
	if err != nil {
		if !errors.Is(err, errs.ErrExternalUnavailable) {
			err = fmt.Errorf("%w: %s", errs.ErrExternalUnavailable, err.Error())
		}
		return err
	}
	if available.LessThan(intent.Amount()) {
		return errs.NewValidationError("amount", "external balance insufficient",
			errs.NewInsufficientFundsError(subject.UserID,
				entity.FormatAmount(intent.Amount()), entity.FormatAmount(available)))
	}
	return nil
}

func (s *Service) loadParticipant(ctx context.Context, field string, userID uint64) (*entity.AccountLedger, error) {
	account, err := s.store.GetAccount(ctx, userID)
	if errors.Is(err, errs.ErrAccountNotFound) {
		return nil, errs.NewValidationError(field, fmt.Sprintf("unknown user %d", userID), errs.ErrAccountNotFound)
	}
	return account, err
}

// GetTransaction retrieves one record
func (s *Service) GetTransaction(ctx context.Context, id string) (*entity.TransactionRecord, error) {
	if id == "" {
		return nil, errs.ErrTransactionNotFound
	}
	return s.store.GetTransaction(ctx, id)
}

// ListUserTransactions returns sent and received records for a user, newest first
func (s *Service) ListUserTransactions(ctx context.Context, userID uint64, limit int) ([]entity.UserTransaction, error) {
	if _, err := s.store.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListUserTransactions(ctx, userID, clampLimit(limit, DefaultUserTransactionsLimit))
}

// ListTransactions returns every record, newest first
func (s *Service) ListTransactions(ctx context.Context, limit int) ([]*entity.TransactionRecord, error) {
	return s.store.ListTransactions(ctx, clampLimit(limit, DefaultTransactionsLimit))
}

// QueueStatus reports queue length and capacity
func (s *Service) QueueStatus() usecase.QueueStatus {
	status := usecase.QueueStatus{
		QueueLength: s.queue.Len(),
		Capacity:    s.queue.Cap(),
	}
	if s.worker != nil {
		status.Processing = s.worker.IsProcessing()
	}
	return status
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
