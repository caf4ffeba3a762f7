package validation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yourusername/meeting-intelligence/internal/models"
	"github.com/yourusername/meeting-intelligence/internal/repository"
	"github.com/yourusername/meeting-intelligence/internal/validation"
)

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

func seedDraftWithActionItem(t *testing.T, db *gorm.DB) *models.DraftSummary {
	meeting := &models.Meeting{CalendarEventID: "evt-1", Title: "Discovery", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)}
	require.NoError(t, repository.NewMeetingRepository(db).Create(meeting))
	session := &models.CallBotSession{MeetingID: meeting.ID, BotSessionID: "bot-1", Platform: models.PlatformMeet, JoinTime: time.Now()}
	require.NoError(t, repository.NewCallBotSessionRepository(db).Create(session))

	draftRepo := repository.NewDraftSummaryRepository(db)
	draft := &models.DraftSummary{
		CallBotSessionID: session.ID,
		SummaryText:      "Discussed pricing and timelines.",
		ConfidenceScore:  0.8,
		SuggestedCRMUpdates: models.JSONColumn[map[string]models.CRMStageUpdate]{
			Data: map[string]models.CRMStageUpdate{"hubspot": {Stage: "presentationscheduled"}},
		},
	}
	require.NoError(t, draftRepo.Create(draft))
	require.NoError(t, repository.NewActionItemRepository(db).CreateBatch([]models.ActionItem{
		{DraftSummaryID: draft.ID, Description: "Send proposal", Priority: models.PriorityMedium, Confidence: 0.7},
	}))
	draft, err := draftRepo.GetByID(draft.ID)
	require.NoError(t, err)
	return draft
}

func TestGenerateQuestionsCoversAllThreeCategories(t *testing.T) {
	db := setupTestDB(t)
	draft := seedDraftWithActionItem(t, db)

	questions := validation.GenerateQuestions(draft)

	var sawConfirmation, sawActionItem, sawCRM bool
	for _, q := range questions {
		switch q.Type {
		case models.QuestionConfirmation:
			sawConfirmation = true
		case models.QuestionActionItem:
			sawActionItem = true
		case models.QuestionCRMApproval:
			sawCRM = true
		}
	}
	assert.True(t, sawConfirmation)
	assert.True(t, sawActionItem)
	assert.True(t, sawCRM)
}

func TestCompleteRequiresAllRequiredQuestionsAnswered(t *testing.T) {
	db := setupTestDB(t)
	draft := seedDraftWithActionItem(t, db)
	draftRepo := repository.NewDraftSummaryRepository(db)
	wf := validation.NewWorkflow(repository.NewValidationSessionRepository(db), draftRepo)

	session, err := wf.Create(draft, "validator@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.ValidationPending, session.Status)

	_, err = wf.Complete(session.ID)
	assert.ErrorIs(t, err, validation.ErrMissingRequired)

	_, err = wf.SubmitResponse(session.ID, models.Response{QuestionID: "confirm-summary", Approved: true})
	require.NoError(t, err)

	questions, err := wf.Questions(session.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, questions)
}

func TestCompleteTransitionsThroughInProgressToCompleted(t *testing.T) {
	db := setupTestDB(t)
	draft := seedDraftWithActionItem(t, db)
	draftRepo := repository.NewDraftSummaryRepository(db)
	sessionsRepo := repository.NewValidationSessionRepository(db)
	wf := validation.NewWorkflow(sessionsRepo, draftRepo)

	vs, err := wf.Create(draft, "validator@example.com")
	require.NoError(t, err)

	questions := vs.Questions.Data
	for _, q := range questions {
		vs2, err := wf.SubmitResponse(vs.ID, models.Response{QuestionID: q.ID, Approved: true})
		require.NoError(t, err)
		assert.Equal(t, models.ValidationInProgress, vs2.Status)
	}

	completed, err := wf.Complete(vs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ValidationCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.NotEmpty(t, completed.ValidatedSummary)
	assert.Contains(t, completed.ApprovedCRMUpdates.Data, "hubspot")
}

// TestCompleteIsIdempotent is the §8 round-trip property for validation
// completion: completing twice returns the same terminal session.
func TestCompleteIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	draft := seedDraftWithActionItem(t, db)
	draftRepo := repository.NewDraftSummaryRepository(db)
	wf := validation.NewWorkflow(repository.NewValidationSessionRepository(db), draftRepo)

	vs, err := wf.Create(draft, "validator@example.com")
	require.NoError(t, err)
	for _, q := range vs.Questions.Data {
		_, err := wf.SubmitResponse(vs.ID, models.Response{QuestionID: q.ID, Approved: true})
		require.NoError(t, err)
	}
	first, err := wf.Complete(vs.ID)
	require.NoError(t, err)

	second, err := wf.Complete(vs.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ValidatedSummary, second.ValidatedSummary)
	assert.Equal(t, first.Status, second.Status)
}

// TestSessionExpiresAfterWindow exercises Scenario E's precondition: a
// session whose review window has elapsed lapses irreversibly to expired
// and rejects further submission.
func TestSessionExpiresAfterWindow(t *testing.T) {
	db := setupTestDB(t)
	draft := seedDraftWithActionItem(t, db)
	draftRepo := repository.NewDraftSummaryRepository(db)
	wf := validation.NewWorkflow(repository.NewValidationSessionRepository(db), draftRepo).WithExpiry(10 * time.Millisecond)

	vs, err := wf.Create(draft, "validator@example.com")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = wf.SubmitResponse(vs.ID, models.Response{QuestionID: "confirm-summary", Approved: true})
	assert.ErrorIs(t, err, validation.ErrExpired)

	_, err = wf.Complete(vs.ID)
	assert.ErrorIs(t, err, validation.ErrExpired)
}

func TestSubmitResponseRejectsUnknownQuestion(t *testing.T) {
	db := setupTestDB(t)
	draft := seedDraftWithActionItem(t, db)
	draftRepo := repository.NewDraftSummaryRepository(db)
	wf := validation.NewWorkflow(repository.NewValidationSessionRepository(db), draftRepo)

	vs, err := wf.Create(draft, "validator@example.com")
	require.NoError(t, err)

	_, err = wf.SubmitResponse(vs.ID, models.Response{QuestionID: "does-not-exist", Approved: true})
	assert.ErrorIs(t, err, validation.ErrUnknownQuestion)
}
