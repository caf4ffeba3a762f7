package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yourusername/meeting-intelligence/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to connect to test database")

	err = db.AutoMigrate(
		&models.Lead{},
		&models.Meeting{},
		&models.CallBotSession{},
		&models.DraftSummary{},
		&models.ActionItem{},
		&models.ValidationSession{},
		&models.CRMSyncRecord{},
	)
	require.NoError(t, err, "Failed to migrate test database")

	return db
}

func seedMeeting(t *testing.T, db *gorm.DB) *models.Meeting {
	meeting := &models.Meeting{
		CalendarEventID: "evt-" + uuid.NewString(),
		Title:           "Discovery call",
		StartTime:       time.Now(),
		EndTime:         time.Now().Add(time.Hour),
		Attendees:       models.StringSlice{"a@example.com", "b@example.com"},
		Status:          models.MeetingScheduled,
	}
	require.NoError(t, NewMeetingRepository(db).Create(meeting))
	return meeting
}

func seedSession(t *testing.T, db *gorm.DB, meetingID uuid.UUID) *models.CallBotSession {
	session := &models.CallBotSession{
		MeetingID:        meetingID,
		BotSessionID:     "bot-" + uuid.NewString(),
		Platform:         models.PlatformMeet,
		JoinTime:         time.Now(),
		ConnectionStatus: models.ConnConnecting,
	}
	require.NoError(t, NewCallBotSessionRepository(db).Create(session))
	return session
}

func seedDraft(t *testing.T, db *gorm.DB, sessionID uuid.UUID) *models.DraftSummary {
	draft := &models.DraftSummary{
		CallBotSessionID: sessionID,
		SummaryText:      "Discussed requirements and next steps.",
		ConfidenceScore:  0.8,
	}
	require.NoError(t, NewDraftSummaryRepository(db).Create(draft))
	return draft
}

func seedValidation(t *testing.T, db *gorm.DB, draftID uuid.UUID) *models.ValidationSession {
	session := &models.ValidationSession{
		DraftSummaryID:    draftID,
		ValidatorIdentity: "validator@example.com",
		Status:            models.ValidationPending,
		StartedAt:         time.Now(),
		ExpiresAt:         time.Now().Add(30 * time.Minute),
	}
	require.NoError(t, NewValidationSessionRepository(db).Create(session))
	return session
}

func TestMeetingSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMeetingRepository(db)
	meeting := seedMeeting(t, db)

	require.NoError(t, repo.Delete(meeting.ID))

	_, err := repo.GetByID(meeting.ID)
	assert.Error(t, err, "Soft-deleted meeting should not be retrievable")

	var deleted models.Meeting
	require.NoError(t, db.Unscoped().First(&deleted, "id = ?", meeting.ID).Error)
	assert.True(t, deleted.DeletedAt.Valid, "DeletedAt should be set")
}

func TestCascadeSoftDelete_MeetingToCallBotSession(t *testing.T) {
	db := setupTestDB(t)
	meetingRepo := NewMeetingRepository(db)
	sessionRepo := NewCallBotSessionRepository(db)

	meeting := seedMeeting(t, db)
	session := seedSession(t, db, meeting.ID)

	require.NoError(t, meetingRepo.Delete(meeting.ID))

	_, err := sessionRepo.GetByID(session.ID)
	assert.Error(t, err, "CallBotSession should be soft deleted via cascade")

	var deleted models.CallBotSession
	require.NoError(t, db.Unscoped().First(&deleted, "id = ?", session.ID).Error)
	assert.True(t, deleted.DeletedAt.Valid)
}

// TestCascadeSoftDelete_FullChain exercises the entire ownership graph:
// Meeting -> CallBotSession -> DraftSummary -> {ActionItems, ValidationSession
// -> CRMSyncRecords}.
func TestCascadeSoftDelete_FullChain(t *testing.T) {
	db := setupTestDB(t)
	meetingRepo := NewMeetingRepository(db)
	sessionRepo := NewCallBotSessionRepository(db)
	draftRepo := NewDraftSummaryRepository(db)
	itemRepo := NewActionItemRepository(db)
	validationRepo := NewValidationSessionRepository(db)
	crmRepo := NewCRMSyncRecordRepository(db)

	meeting := seedMeeting(t, db)
	session := seedSession(t, db, meeting.ID)
	draft := seedDraft(t, db, session.ID)

	require.NoError(t, itemRepo.CreateBatch([]models.ActionItem{
		{DraftSummaryID: draft.ID, Description: "Send proposal", Priority: models.PriorityMedium, Confidence: 0.7},
	}))

	validation := seedValidation(t, db, draft.ID)

	record, err := crmRepo.GetOrCreate(validation.ID, models.CRMSalesforce)
	require.NoError(t, err)

	require.NoError(t, meetingRepo.Delete(meeting.ID))

	_, err = sessionRepo.GetByID(session.ID)
	assert.Error(t, err, "CallBotSession should be soft deleted via cascade")

	_, err = draftRepo.GetByID(draft.ID)
	assert.Error(t, err, "DraftSummary should be soft deleted via cascade")

	items, err := itemRepo.ListByDraftSummaryID(draft.ID)
	require.NoError(t, err)
	assert.Empty(t, items, "ActionItems should be soft deleted via cascade")

	_, err = validationRepo.GetByID(validation.ID)
	assert.Error(t, err, "ValidationSession should be soft deleted via cascade")

	var deletedRecord models.CRMSyncRecord
	err = db.First(&deletedRecord, "id = ?", record.ID).Error
	assert.Error(t, err, "CRMSyncRecord should be soft deleted via cascade")

	var unscoped models.CRMSyncRecord
	require.NoError(t, db.Unscoped().First(&unscoped, "id = ?", record.ID).Error)
	assert.True(t, unscoped.DeletedAt.Valid)
}

func TestListExcludesSoftDeleted(t *testing.T) {
	db := setupTestDB(t)
	itemRepo := NewActionItemRepository(db)

	meeting := seedMeeting(t, db)
	session := seedSession(t, db, meeting.ID)
	draft := seedDraft(t, db, session.ID)

	require.NoError(t, itemRepo.CreateBatch([]models.ActionItem{
		{DraftSummaryID: draft.ID, Description: "One", Priority: models.PriorityLow, Confidence: 0.5},
		{DraftSummaryID: draft.ID, Description: "Two", Priority: models.PriorityLow, Confidence: 0.5},
	}))

	items, err := itemRepo.ListByDraftSummaryID(draft.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, db.Delete(&items[0]).Error)

	items, err = itemRepo.ListByDraftSummaryID(draft.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1, "Should have 1 action item after soft delete")
}

func TestCRMSyncRecord_IdempotentGetOrCreate(t *testing.T) {
	db := setupTestDB(t)
	crmRepo := NewCRMSyncRecordRepository(db)

	meeting := seedMeeting(t, db)
	session := seedSession(t, db, meeting.ID)
	draft := seedDraft(t, db, session.ID)
	validation := seedValidation(t, db, draft.ID)

	first, err := crmRepo.GetOrCreate(validation.ID, models.CRMHubSpot)
	require.NoError(t, err)

	second, err := crmRepo.GetOrCreate(validation.ID, models.CRMHubSpot)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "GetOrCreate must not create a duplicate record")
}

func TestValidationSessionRepository_IsCompleted(t *testing.T) {
	db := setupTestDB(t)
	validationRepo := NewValidationSessionRepository(db)

	meeting := seedMeeting(t, db)
	session := seedSession(t, db, meeting.ID)
	draft := seedDraft(t, db, session.ID)
	validation := seedValidation(t, db, draft.ID)

	completed, _, err := validationRepo.IsCompleted(draft.ID)
	require.NoError(t, err)
	assert.False(t, completed, "Pending validation session should not gate-pass")

	now := time.Now()
	validation.Status = models.ValidationCompleted
	validation.CompletedAt = &now
	require.NoError(t, validationRepo.Update(validation))

	completed, found, err := validationRepo.IsCompleted(draft.ID)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, validation.ID, found.ID)
}
