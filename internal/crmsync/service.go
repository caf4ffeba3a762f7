package crmsync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"

	"github.com/yourusername/meeting-intelligence/internal/apierrors"
	"github.com/yourusername/meeting-intelligence/internal/logger"
	"github.com/yourusername/meeting-intelligence/internal/metrics"
	"github.com/yourusername/meeting-intelligence/internal/models"
	"github.com/yourusername/meeting-intelligence/internal/repository"
	"github.com/yourusername/meeting-intelligence/internal/security"
)

// Config tunes the retry budget for a single sync attempt.
type Config struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

func DefaultConfig() Config {
	return Config{MaxAttempts: 3, RetryBaseDelay: 500 * time.Millisecond}
}

// Service drives §4.6's sync workflow: format, upsert-in-progress, write
// through a per-CRM-system circuit breaker with exponential-backoff retry,
// record the terminal outcome.
type Service struct {
	cfg Config

	validationSessions *repository.ValidationSessionRepository
	drafts             *repository.DraftSummaryRepository
	records            *repository.CRMSyncRecordRepository
	rec                metrics.Recorder
	pii                *security.PresidioClient

	mu       sync.Mutex
	breakers map[models.CRMSystem]*gobreaker.CircuitBreaker
}

// NewService constructs the CRM Sync workflow. pii may be nil — Presidio
// ships disabled by default (security.PresidioConfig.Enabled=false), so a
// nil client is treated the same as a disabled one: RedactPII is a no-op.
func NewService(
	cfg Config,
	validationSessions *repository.ValidationSessionRepository,
	drafts *repository.DraftSummaryRepository,
	records *repository.CRMSyncRecordRepository,
	rec metrics.Recorder,
	pii *security.PresidioClient,
) *Service {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{
		cfg:                cfg,
		validationSessions: validationSessions,
		drafts:             drafts,
		records:            records,
		rec:                rec,
		pii:                pii,
		breakers:           make(map[models.CRMSystem]*gobreaker.CircuitBreaker),
	}
}

// redactPayload runs the summary text and each action item's description
// through Presidio before a payload is handed to a vendor adapter. Failures
// are logged and swallowed — a PII-scrubbing outage must not block CRM
// sync, and the pre-redaction text is what gets sent in that case.
func (s *Service) redactPayload(ctx context.Context, payload Payload) Payload {
	if s.pii == nil {
		return payload
	}
	log := logger.WithComponent("crmsync")

	if redacted, err := s.pii.RedactPII(ctx, payload.SummaryText); err == nil {
		payload.SummaryText = redacted
	} else {
		log.Warn().Err(err).Msg("PII redaction failed for summary text, sending unredacted")
	}
	for i, item := range payload.ActionItems {
		if item.Description == "" {
			continue
		}
		if redacted, err := s.pii.RedactPII(ctx, item.Description); err == nil {
			payload.ActionItems[i].Description = redacted
		} else {
			log.Warn().Err(err).Msg("PII redaction failed for action item, sending unredacted")
		}
	}
	return payload
}

func (s *Service) breakerFor(system models.CRMSystem) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[system]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(system),
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	s.breakers[system] = b
	return b
}

// Sync runs the full write workflow for one (validationSessionID,
// crmSystem) pair and returns the resulting record. It is safe to call
// repeatedly: a record already completed is returned unchanged without
// touching the adapter again.
func (s *Service) Sync(ctx context.Context, validationSessionID uuid.UUID, leadCRMID string, system models.CRMSystem) (*models.CRMSyncRecord, error) {
	log := logger.WithComponent("crmsync")

	session, err := s.validationSessions.GetByID(validationSessionID)
	if err != nil {
		return nil, apierrors.NewValidationError("validation session %s not found", validationSessionID)
	}
	if session.Status != models.ValidationCompleted {
		return nil, apierrors.NewValidationGateError("validation session %s has not completed review", validationSessionID)
	}

	draft, err := s.drafts.GetByID(session.DraftSummaryID)
	if err != nil {
		return nil, apierrors.NewValidationError("draft summary %s not found", session.DraftSummaryID)
	}

	record, err := s.records.GetOrCreate(validationSessionID, system)
	if err != nil {
		return nil, err
	}
	if record.SyncStatus == models.SyncCompleted {
		return record, nil
	}

	payload, err := FormatFromValidation(session, draft, leadCRMID, system)
	if err != nil {
		return nil, apierrors.NewValidationError("%s", err.Error())
	}
	payload = s.redactPayload(ctx, payload)

	adapter, err := New(system)
	if err != nil {
		return nil, apierrors.NewCRMAdapterError(false, err.Error(), nil)
	}

	record.SyncStatus = models.SyncInProgress
	if err := s.records.Update(record); err != nil {
		return nil, err
	}

	breaker := s.breakerFor(system)
	retries := s.cfg.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(s.cfg.RetryBaseDelay))

	var crmRecordID string
	attempts := 0
	retryErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		result, err := breaker.Execute(func() (interface{}, error) {
			return adapter.Write(ctx, payload)
		})
		if err != nil {
			if adapterErr, ok := err.(*apierrors.CRMAdapterErr); ok && !adapterErr.Retryable {
				return adapterErr
			}
			return retry.RetryableError(err)
		}
		crmRecordID = result.(string)
		return nil
	})

	record.Attempts = attempts
	if retryErr != nil {
		record.SyncStatus = models.SyncFailed
		record.LastError = retryErr.Error()
		if updErr := s.records.Update(record); updErr != nil {
			return nil, updErr
		}
		log.Error().Err(retryErr).Str("crm_system", string(system)).
			Str("validation_session_id", validationSessionID.String()).
			Msg("CRM sync failed after exhausting retries")
		s.rec.CRMSyncOutcome(string(system), "failed")
		return record, apierrors.NewCRMAdapterError(false, "CRM sync to "+string(system)+" failed", retryErr)
	}

	now := time.Now()
	record.SyncStatus = models.SyncCompleted
	record.CRMRecordID = crmRecordID
	record.SyncedAt = &now
	record.LastError = ""
	if err := s.records.Update(record); err != nil {
		return nil, err
	}
	s.rec.CRMSyncOutcome(string(system), "completed")

	return record, nil
}
