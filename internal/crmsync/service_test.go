package crmsync_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yourusername/meeting-intelligence/internal/apierrors"
	"github.com/yourusername/meeting-intelligence/internal/crmsync"
	"github.com/yourusername/meeting-intelligence/internal/metrics"
	"github.com/yourusername/meeting-intelligence/internal/models"
	"github.com/yourusername/meeting-intelligence/internal/repository"
	"github.com/yourusername/meeting-intelligence/internal/validation"
)

// flakyAdapter fails with a retryable error on its first call, then
// succeeds, simulating Scenario F's transient 503.
type flakyAdapter struct {
	calls     int32
	failFirst bool
}

func (a *flakyAdapter) Write(ctx context.Context, payload crmsync.Payload) (string, error) {
	n := atomic.AddInt32(&a.calls, 1)
	if a.failFirst && n == 1 {
		return "", apierrors.NewCRMAdapterError(true, "service unavailable", nil)
	}
	return "crm-" + payload.IdempotencyToken, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Lead{}, &models.Meeting{}, &models.CallBotSession{},
		&models.DraftSummary{}, &models.ActionItem{},
		&models.ValidationSession{}, &models.CRMSyncRecord{},
	))
	return db
}

func completedValidationSession(t *testing.T, db *gorm.DB) (*repository.ValidationSessionRepository, *repository.DraftSummaryRepository, *models.ValidationSession) {
	meeting := &models.Meeting{CalendarEventID: "evt-1", Title: "Discovery", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)}
	require.NoError(t, repository.NewMeetingRepository(db).Create(meeting))

	session := &models.CallBotSession{MeetingID: meeting.ID, BotSessionID: "bot-1", Platform: models.PlatformMeet, JoinTime: time.Now()}
	require.NoError(t, repository.NewCallBotSessionRepository(db).Create(session))

	draftRepo := repository.NewDraftSummaryRepository(db)
	draft := &models.DraftSummary{
		CallBotSessionID: session.ID,
		SummaryText:      "Discussed pricing and next steps.",
		ConfidenceScore:  0.9,
		SuggestedCRMUpdates: models.JSONColumn[map[string]models.CRMStageUpdate]{
			Data: map[string]models.CRMStageUpdate{"salesforce": {Stage: "Proposal/Price Quote"}},
		},
	}
	require.NoError(t, draftRepo.Create(draft))

	wf := validation.NewWorkflow(repository.NewValidationSessionRepository(db), draftRepo)
	vs, err := wf.Create(draft, "validator@example.com")
	require.NoError(t, err)

	for _, q := range vs.Questions.Data {
		resp := models.Response{QuestionID: q.ID, Approved: true}
		_, err := wf.SubmitResponse(vs.ID, resp)
		require.NoError(t, err)
	}
	vs, err = wf.Complete(vs.ID)
	require.NoError(t, err)

	return repository.NewValidationSessionRepository(db), draftRepo, vs
}

func TestSyncRejectsNonCompletedValidation(t *testing.T) {
	db := setupTestDB(t)

	meeting := &models.Meeting{CalendarEventID: "evt-2", Title: "Discovery", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)}
	require.NoError(t, repository.NewMeetingRepository(db).Create(meeting))
	session := &models.CallBotSession{MeetingID: meeting.ID, BotSessionID: "bot-2", Platform: models.PlatformMeet, JoinTime: time.Now()}
	require.NoError(t, repository.NewCallBotSessionRepository(db).Create(session))
	draftRepo := repository.NewDraftSummaryRepository(db)
	draft := &models.DraftSummary{CallBotSessionID: session.ID, SummaryText: "x", ConfidenceScore: 0.5}
	require.NoError(t, draftRepo.Create(draft))

	vsRepo := repository.NewValidationSessionRepository(db)
	wf := validation.NewWorkflow(vsRepo, draftRepo)
	pending, err := wf.Create(draft, "validator@example.com")
	require.NoError(t, err)

	crmRepo := repository.NewCRMSyncRecordRepository(db)
	svc := crmsync.NewService(crmsync.DefaultConfig(), vsRepo, draftRepo, crmRepo, metrics.Noop{}, nil)

	_, err = svc.Sync(context.Background(), pending.ID, "lead-1", models.CRMSalesforce)
	require.Error(t, err)
	var gateErr *apierrors.ValidationGateErr
	assert.ErrorAs(t, err, &gateErr)

	var recordCount int64
	require.NoError(t, db.Model(&models.CRMSyncRecord{}).Where("validation_session_id = ?", pending.ID).Count(&recordCount).Error)
	assert.Zero(t, recordCount, "no CRMSyncRecord should exist for the validation session id")
}

func TestSyncIsIdempotentAcrossTransientFailure(t *testing.T) {
	db := setupTestDB(t)
	vsRepo, draftRepo, vs := completedValidationSession(t, db)
	crmRepo := repository.NewCRMSyncRecordRepository(db)

	adapter := &flakyAdapter{failFirst: true}
	crmsync.Register(models.CRMSalesforce, func() crmsync.Adapter { return adapter })

	svc := crmsync.NewService(crmsync.Config{MaxAttempts: 3, RetryBaseDelay: time.Millisecond}, vsRepo, draftRepo, crmRepo, metrics.Noop{}, nil)

	record, err := svc.Sync(context.Background(), vs.ID, "lead-1", models.CRMSalesforce)
	require.NoError(t, err)
	assert.Equal(t, models.SyncCompleted, record.SyncStatus)
	assert.Equal(t, 2, record.Attempts)
	assert.NotEmpty(t, record.CRMRecordID)

	// Re-run: the record is already completed, so the adapter must not be
	// invoked again and no duplicate CRM object is created.
	callsBefore := atomic.LoadInt32(&adapter.calls)
	again, err := svc.Sync(context.Background(), vs.ID, "lead-1", models.CRMSalesforce)
	require.NoError(t, err)
	assert.Equal(t, record.CRMRecordID, again.CRMRecordID)
	assert.Equal(t, callsBefore, atomic.LoadInt32(&adapter.calls))
}

func TestSyncMarksFailedAfterExhaustingRetries(t *testing.T) {
	db := setupTestDB(t)
	vsRepo, draftRepo, vs := completedValidationSession(t, db)
	crmRepo := repository.NewCRMSyncRecordRepository(db)

	adapter := &alwaysFailAdapter{}
	crmsync.Register(models.CRMHubSpot, func() crmsync.Adapter { return adapter })

	svc := crmsync.NewService(crmsync.Config{MaxAttempts: 2, RetryBaseDelay: time.Millisecond}, vsRepo, draftRepo, crmRepo, metrics.Noop{}, nil)

	record, err := svc.Sync(context.Background(), vs.ID, "lead-1", models.CRMHubSpot)
	require.Error(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.SyncFailed, record.SyncStatus)
	assert.NotEmpty(t, record.LastError)
}

type alwaysFailAdapter struct{}

func (a *alwaysFailAdapter) Write(ctx context.Context, payload crmsync.Payload) (string, error) {
	return "", apierrors.NewCRMAdapterError(true, "connection refused", nil)
}
