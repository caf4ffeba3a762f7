// Package validation is the Validation Workflow (§4.5): a human reviewer
// confirms a DraftSummary's accuracy, approves or edits each action item,
// and approves per-CRM suggested stage updates before CRM Sync is allowed
// to run.
package validation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/meeting-intelligence/internal/logger"
	"github.com/yourusername/meeting-intelligence/internal/models"
	"github.com/yourusername/meeting-intelligence/internal/repository"
)

// DefaultExpiry is how long a validator has to complete a session before it
// lapses to expired (VALIDATION_EXPIRY_S default, §6).
const DefaultExpiry = 30 * time.Minute

var (
	ErrNotFound        = errors.New("validation: session not found")
	ErrExpired         = errors.New("validation: session has expired")
	ErrAlreadyComplete = errors.New("validation: session already completed")
	ErrMissingRequired = errors.New("validation: one or more required questions are unanswered")
	ErrUnknownQuestion = errors.New("validation: response references an unknown question id")
)

// Workflow creates and drives ValidationSessions through to completion.
type Workflow struct {
	sessions *repository.ValidationSessionRepository
	drafts   *repository.DraftSummaryRepository
	expiry   time.Duration
}

func NewWorkflow(sessions *repository.ValidationSessionRepository, drafts *repository.DraftSummaryRepository) *Workflow {
	return &Workflow{sessions: sessions, drafts: drafts, expiry: DefaultExpiry}
}

// WithExpiry overrides the default review window; primarily for tests that
// want to exercise the expired transition without sleeping.
func (w *Workflow) WithExpiry(d time.Duration) *Workflow {
	w.expiry = d
	return w
}

// Create generates the review questions for a draft summary and persists a
// new pending ValidationSession. The draft must already exist and carry its
// ActionItems and SuggestedCRMUpdates.
func (w *Workflow) Create(draft *models.DraftSummary, validatorIdentity string) (*models.ValidationSession, error) {
	now := time.Now()
	session := &models.ValidationSession{
		DraftSummaryID:    draft.ID,
		ValidatorIdentity: validatorIdentity,
		Status:            models.ValidationPending,
		Questions:         models.JSONColumn[[]models.Question]{Data: GenerateQuestions(draft)},
		Responses:         models.JSONColumn[map[string]models.Response]{Data: map[string]models.Response{}},
		StartedAt:         now,
		ExpiresAt:         now.Add(w.expiry),
	}
	if err := w.sessions.Create(session); err != nil {
		return nil, fmt.Errorf("validation: creating session: %w", err)
	}
	return session, nil
}

// GenerateQuestions builds the three review categories §4.5 requires: one
// confirmation question for overall summary accuracy, one action-item
// question per ActionItem, and one CRM-approval question per suggested CRM
// update.
func GenerateQuestions(draft *models.DraftSummary) []models.Question {
	questions := make([]models.Question, 0, 1+len(draft.ActionItems)+len(draft.SuggestedCRMUpdates.Data))

	questions = append(questions, models.Question{
		ID:       "confirm-summary",
		Type:     models.QuestionConfirmation,
		Prompt:   "Is the generated summary an accurate account of the meeting?",
		Required: true,
	})

	for _, item := range draft.ActionItems {
		questions = append(questions, models.Question{
			ID:       "action-" + item.ID.String(),
			Type:     models.QuestionActionItem,
			Prompt:   fmt.Sprintf("Approve or edit action item: %q (assignee: %s)", item.Description, item.Assignee),
			RefID:    item.ID.String(),
			Required: true,
		})
	}

	for crmSystem := range draft.SuggestedCRMUpdates.Data {
		questions = append(questions, models.Question{
			ID:       "crm-" + crmSystem,
			Type:     models.QuestionCRMApproval,
			Prompt:   fmt.Sprintf("Approve the suggested %s stage update?", crmSystem),
			RefID:    crmSystem,
			Required: true,
		})
	}

	return questions
}

// Questions returns the session's generated questions, first checking expiry.
func (w *Workflow) Questions(sessionID uuid.UUID) ([]models.Question, error) {
	session, err := w.get(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Questions.Data, nil
}

// SubmitResponse records one validator answer. The first response on a
// pending session transitions it to in_progress.
func (w *Workflow) SubmitResponse(sessionID uuid.UUID, response models.Response) (*models.ValidationSession, error) {
	session, err := w.get(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.ValidationCompleted {
		return nil, ErrAlreadyComplete
	}

	if !hasQuestion(session.Questions.Data, response.QuestionID) {
		return nil, ErrUnknownQuestion
	}

	if session.Responses.Data == nil {
		session.Responses.Data = map[string]models.Response{}
	}
	session.Responses.Data[response.QuestionID] = response

	if session.Status == models.ValidationPending {
		session.Status = models.ValidationInProgress
	}

	if err := w.sessions.Update(session); err != nil {
		return nil, fmt.Errorf("validation: recording response: %w", err)
	}

	logger.WithValidator(session.ValidatorIdentity).Info().
		Str("session_id", sessionID.String()).
		Str("question_id", response.QuestionID).
		Msg("validation response recorded")

	return session, nil
}

// Complete transitions a session to completed once every required question
// has an answer, composing validated_summary and approved_crm_updates from
// the collected responses.
func (w *Workflow) Complete(sessionID uuid.UUID) (*models.ValidationSession, error) {
	session, err := w.get(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.ValidationCompleted {
		return session, nil
	}

	for _, q := range session.Questions.Data {
		if !q.Required {
			continue
		}
		if _, ok := session.Responses.Data[q.ID]; !ok {
			return nil, ErrMissingRequired
		}
	}

	draft, err := w.drafts.GetByID(session.DraftSummaryID)
	if err != nil {
		return nil, fmt.Errorf("validation: loading draft for completion: %w", err)
	}

	session.ValidatedSummary = composeValidatedSummary(draft, session.Responses.Data)
	session.ApprovedCRMUpdates = models.JSONColumn[map[string]models.CRMStageUpdate]{
		Data: composeApprovedCRMUpdates(draft, session.Responses.Data),
	}

	now := time.Now()
	session.Status = models.ValidationCompleted
	session.CompletedAt = &now

	if err := w.sessions.Update(session); err != nil {
		return nil, fmt.Errorf("validation: completing session: %w", err)
	}

	return session, nil
}

// get loads a session, lapsing it to expired in place if its review window
// has passed and it hasn't completed yet.
func (w *Workflow) get(sessionID uuid.UUID) (*models.ValidationSession, error) {
	session, err := w.sessions.GetByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("validation: loading session: %w", err)
	}

	if session.Status != models.ValidationCompleted && session.Status != models.ValidationExpired && time.Now().After(session.ExpiresAt) {
		session.Status = models.ValidationExpired
		if err := w.sessions.Update(session); err != nil {
			return nil, fmt.Errorf("validation: marking session expired: %w", err)
		}
		return session, ErrExpired
	}
	if session.Status == models.ValidationExpired {
		return session, ErrExpired
	}

	return session, nil
}

func hasQuestion(questions []models.Question, id string) bool {
	for _, q := range questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// composeValidatedSummary applies any edited text from the confirmation
// question over the draft's generated summary text.
func composeValidatedSummary(draft *models.DraftSummary, responses map[string]models.Response) string {
	if r, ok := responses["confirm-summary"]; ok && r.EditedText != "" {
		return r.EditedText
	}
	return draft.SummaryText
}

// composeApprovedCRMUpdates keeps only the CRM stage suggestions the
// validator approved, with any edited stage text substituted in.
func composeApprovedCRMUpdates(draft *models.DraftSummary, responses map[string]models.Response) map[string]models.CRMStageUpdate {
	approved := make(map[string]models.CRMStageUpdate)
	for crmSystem, suggestion := range draft.SuggestedCRMUpdates.Data {
		r, ok := responses["crm-"+crmSystem]
		if !ok || !r.Approved {
			continue
		}
		stage := suggestion.Stage
		if r.EditedText != "" {
			stage = r.EditedText
		}
		approved[crmSystem] = models.CRMStageUpdate{Stage: stage}
	}
	return approved
}
