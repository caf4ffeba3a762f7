package api

import (
	"errors"
	"net/http"

	"github.com/yourusername/meeting-intelligence/internal/models"
	"github.com/yourusername/meeting-intelligence/internal/repository"
	"github.com/yourusername/meeting-intelligence/internal/validation"
)

// ValidationHandler covers the human-review endpoints (§4.5/§6).
type ValidationHandler struct {
	workflow *validation.Workflow
	repos    *repository.Repositories
}

func NewValidationHandler(workflow *validation.Workflow, repos *repository.Repositories) *ValidationHandler {
	return &ValidationHandler{workflow: workflow, repos: repos}
}

type createValidationInput struct {
	DraftSummaryID string `json:"draft_summary_id"`
	Validator      string `json:"validator"`
}

// Create handles POST /validation/sessions.
func (h *ValidationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input createValidationInput
	if err := parseJSON(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.DraftSummaryID == "" || input.Validator == "" {
		respondError(w, http.StatusBadRequest, "draft_summary_id and validator are required")
		return
	}

	draftID, err := parseUUID(input.DraftSummaryID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid draft_summary_id")
		return
	}

	draft, err := h.repos.DraftSummary.GetByID(draftID)
	if err != nil {
		respondError(w, http.StatusNotFound, "draft summary not found")
		return
	}

	session, err := h.workflow.Create(draft, input.Validator)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"validation_session": session})
}

// Questions handles GET /validation/sessions/{id}/questions.
func (h *ValidationHandler) Questions(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	questions, err := h.workflow.Questions(sessionID)
	if err != nil {
		respondValidationErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, questions)
}

type submitResponseInput struct {
	QuestionID string `json:"question_id"`
	Approved   bool   `json:"approved"`
	EditedText string `json:"edited_text,omitempty"`
}

// SubmitResponse handles POST /validation/sessions/{id}/responses.
func (h *ValidationHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var input submitResponseInput
	if err := parseJSON(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.QuestionID == "" {
		respondError(w, http.StatusBadRequest, "question_id is required")
		return
	}

	_, err = h.workflow.SubmitResponse(sessionID, models.Response{
		QuestionID: input.QuestionID,
		Approved:   input.Approved,
		EditedText: input.EditedText,
	})
	if err != nil {
		respondValidationErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Complete handles POST /validation/sessions/{id}/complete.
func (h *ValidationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getUUIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.workflow.Complete(sessionID)
	if err != nil {
		respondValidationErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"validated": session.Status == models.ValidationCompleted})
}

// respondValidationErr maps the validation package's sentinel errors to
// HTTP status codes.
func respondValidationErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validation.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, validation.ErrExpired):
		respondError(w, http.StatusGone, err.Error())
	case errors.Is(err, validation.ErrAlreadyComplete):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, validation.ErrMissingRequired), errors.Is(err, validation.ErrUnknownQuestion):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
